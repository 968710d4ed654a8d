package alerts

import "time"

// Task type constants
const (
	TaskProposalAccepted = "order:proposal_accepted"
	TaskOrderCompleted   = "order:completed"
	TaskOrderCancelled   = "order:cancelled"
	TaskExchangeSettled  = "exchange:settled"
	TaskAdminAlert       = "admin:alert"
)

// Proposal accepted payload (sent to the master)
type ProposalAcceptedPayload struct {
	OrderID  string    `json:"order_id"`
	ClientID string    `json:"client_id"`
	MasterID string    `json:"master_id"`
	Price    int64     `json:"price"`
	SentAt   time.Time `json:"sent_at"`
}

// Order completed payload (sent to the master, payout released)
type OrderCompletedPayload struct {
	OrderID  string    `json:"order_id"`
	ClientID string    `json:"client_id"`
	MasterID string    `json:"master_id"`
	Amount   int64     `json:"amount"`
	SentAt   time.Time `json:"sent_at"`
}

// Order cancelled payload (sent to both parties)
type OrderCancelledPayload struct {
	OrderID  string    `json:"order_id"`
	ClientID string    `json:"client_id"`
	MasterID string    `json:"master_id"`
	SentAt   time.Time `json:"sent_at"`
}

// Exchange settled payload (sent to both parties)
type ExchangeSettledPayload struct {
	ExchangeID      string    `json:"exchange_id"`
	ProposerID      string    `json:"proposer_id"`
	ResponderID     string    `json:"responder_id"`
	PriceDifference int64     `json:"price_difference"`
	SentAt          time.Time `json:"sent_at"`
}

// Admin alert payload
type AdminAlertPayload struct {
	ActorID  string    `json:"actor_id"`
	Severity string    `json:"severity"` // info|warning|critical
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}
