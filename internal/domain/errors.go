package domain

import "errors"

// Every public engine operation returns either a result or exactly one
// of these. The HTTP layer maps them to status codes; this package
// never formats user-facing text.
var (
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrForbiddenTransition = errors.New("role not allowed for this transition")
	ErrOrderNotOpen        = errors.New("order is not accepting proposals")
	ErrDuplicateProposal   = errors.New("master already has a pending proposal on this order")
	ErrDuplicateSettlement = errors.New("order already has a settled sale transaction")
	ErrInvalidEscrowState  = errors.New("transaction is not in a state that allows this escrow operation")
	ErrInsufficientFunds   = errors.New("insufficient available balance")
	ErrNotFound            = errors.New("record not found")
	ErrForbidden           = errors.New("actor is not allowed to perform this action")
)
