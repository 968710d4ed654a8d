package domain

import "time"

// TransactionType classifies a monetary movement.
type TransactionType string

const (
	TxSale       TransactionType = "sale"
	TxPurchase   TransactionType = "purchase"
	TxCommission TransactionType = "commission"
	TxRefund     TransactionType = "refund"
	TxWithdrawal TransactionType = "withdrawal"
	TxDeposit    TransactionType = "deposit"
)

// TransactionStatus advances forward only:
// pending -> held -> completed|refunded, pending -> completed,
// completed -> released. Reversal is always a new refund record,
// never a mutation of the original amounts.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxHeld      TransactionStatus = "held"
	TxCompleted TransactionStatus = "completed"
	TxReleased  TransactionStatus = "released"
	TxRefunded  TransactionStatus = "refunded"
	TxFailed    TransactionStatus = "failed"
)

// FinancialTransaction is one ledger entry tied to an order (or an
// exchange, via Reference). Amounts are kopecks.
type FinancialTransaction struct {
	ID                 string            `json:"id"`
	Reference          string            `json:"reference"` // order or exchange id
	Type               TransactionType   `json:"type"`
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	FromUserID         string            `json:"from_user_id,omitempty"`
	ToUserID           string            `json:"to_user_id,omitempty"`
	PlatformCommission int64             `json:"platform_commission"`
	CommissionRate     string            `json:"commission_rate"` // percentage used, e.g. "5"
	Status             TransactionStatus `json:"status"`
	Description        string            `json:"description,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

// Settled reports whether the transaction represents money that has
// actually moved (as opposed to failed or still pending).
func (t *FinancialTransaction) Settled() bool {
	switch t.Status {
	case TxHeld, TxCompleted, TxReleased:
		return true
	}
	return false
}
