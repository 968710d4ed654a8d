package domain

import "time"

// Dispute is a participant's complaint against an order. Admins resolve
// with a refund, a release, or no money movement.
type Dispute struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"`
	FilerID    string     `json:"filer_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"` // open, resolved
	Resolution string     `json:"resolution,omitempty"` // refund, release, none
	Notes      string     `json:"notes,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"

	ResolutionRefund  = "refund"
	ResolutionRelease = "release"
	ResolutionNone    = "none"
)
