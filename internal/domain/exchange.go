package domain

import "time"

// ExchangeStatus tracks a peer-to-peer part swap.
type ExchangeStatus string

const (
	ExchangeProposed  ExchangeStatus = "proposed"  // proposer created, awaiting responder
	ExchangeAccepted  ExchangeStatus = "accepted"  // responder agreed to terms
	ExchangeSettled   ExchangeStatus = "settled"   // both confirmed, money leg done
	ExchangeCancelled ExchangeStatus = "cancelled"
)

// Exchange is a swap of two listed parts. PartA belongs to the
// proposer, PartB to the responder. PriceDifference is
// priceOf(PartB) - priceOf(PartA): positive means the proposer owes
// the difference, negative means the responder does.
type Exchange struct {
	ID                 string         `json:"id"`
	PartAID            string         `json:"part_a_id"`
	PartBID            string         `json:"part_b_id"`
	ProposerID         string         `json:"proposer_id"`
	ResponderID        string         `json:"responder_id"`
	PriceDifference    int64          `json:"price_difference"` // kopecks
	Status             ExchangeStatus `json:"status"`
	ProposerConfirmed  bool           `json:"proposer_confirmed"`
	ResponderConfirmed bool           `json:"responder_confirmed"`
	CreatedAt          time.Time      `json:"created_at"`
	SettledAt          *time.Time     `json:"settled_at,omitempty"`
}
