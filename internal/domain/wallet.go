package domain

import "time"

// PlatformWalletID is the pseudo-wallet accumulating commission.
const PlatformWalletID = "platform"

// Wallet is a per-user running balance in kopecks. Pending holds funds
// escrowed or awaiting capture; they are part of Balance but not
// withdrawable. Wallets are created lazily and never deleted.
type Wallet struct {
	UserID      string    `json:"user_id"`
	Balance     int64     `json:"balance"`
	Pending     int64     `json:"pending_balance"`
	TotalEarned int64     `json:"total_earned"`
	TotalSpent  int64     `json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Available is the withdrawable portion of the balance.
func (w *Wallet) Available() int64 {
	return w.Balance - w.Pending
}
