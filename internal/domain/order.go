package domain

import "time"

// OrderKind distinguishes repair requests from listed spare parts.
type OrderKind string

const (
	KindRepair OrderKind = "repair"
	KindPart   OrderKind = "part"
)

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	StatusOpen         OrderStatus = "open"
	StatusActiveSearch OrderStatus = "active_search"
	StatusProposed     OrderStatus = "proposed"
	StatusAccepted     OrderStatus = "accepted"
	StatusInProgress   OrderStatus = "in_progress"
	StatusCompleted    OrderStatus = "completed"
	StatusCancelled    OrderStatus = "cancelled"
	StatusDeleted      OrderStatus = "deleted"
	// StatusExchanged marks a part listing consumed by a settled swap.
	// It is applied by exchange settlement, never by a direct client action.
	StatusExchanged OrderStatus = "exchanged"
)

// Order is a client's repair request or a listed part for sale/exchange.
type Order struct {
	ID             string      `json:"id"`
	ClientID       string      `json:"client_id"`
	MasterID       string      `json:"master_id,omitempty"` // empty until a proposal is accepted
	Kind           OrderKind   `json:"kind"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	ProposedPrice  *int64      `json:"proposed_price,omitempty"` // kopecks
	AgreedPrice    *int64      `json:"agreed_price,omitempty"`   // set on acceptance, kopecks
	Status         OrderStatus `json:"status"`
	IsActiveSearch bool        `json:"is_active_search"`
	UseEscrow      bool        `json:"use_escrow"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Open reports whether the order is still accepting proposals.
func (o *Order) Open() bool {
	switch o.Status {
	case StatusOpen, StatusActiveSearch, StatusProposed:
		return true
	}
	return false
}

// Terminal reports whether the order can no longer change status.
func (o *Order) Terminal() bool {
	switch o.Status {
	case StatusCompleted, StatusCancelled, StatusExchanged:
		return true
	}
	return false
}
