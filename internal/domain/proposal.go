package domain

import "time"

// ProposalStatus is the resolution state of a master's offer.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a master's offer against an order. At most one proposal
// per order is ever accepted; accepting one force-rejects its siblings.
type Proposal struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	MasterID  string         `json:"master_id"`
	Price     int64          `json:"price"` // kopecks
	Message   string         `json:"message,omitempty"`
	Status    ProposalStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
