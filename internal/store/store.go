// Package store defines the persistence contract of the engine: atomic
// read-modify-write per entity group. Every engine operation runs
// inside one Update call and commits all-or-nothing — an order status
// change is never visible without its paired transaction record.
package store

import (
	"context"

	"github.com/fixparts/fixparts/internal/domain"
)

// Tx is the view of the store inside one atomic unit. Reads of orders
// and wallets acquire the per-entity lock for the duration of the
// unit, so concurrent operations against the same entity serialize.
type Tx interface {
	Order(ctx context.Context, id string) (*domain.Order, error)
	PutOrder(ctx context.Context, o *domain.Order) error

	Proposal(ctx context.Context, id string) (*domain.Proposal, error)
	ProposalsByOrder(ctx context.Context, orderID string) ([]*domain.Proposal, error)
	PutProposal(ctx context.Context, p *domain.Proposal) error

	Transaction(ctx context.Context, id string) (*domain.FinancialTransaction, error)
	// SaleByReference returns the non-failed sale transaction for a
	// reference (order or exchange id), or domain.ErrNotFound. It is
	// the idempotency guard of the settlement engine.
	SaleByReference(ctx context.Context, ref string) (*domain.FinancialTransaction, error)
	PutTransaction(ctx context.Context, t *domain.FinancialTransaction) error

	// Wallet creates the wallet lazily on first use.
	Wallet(ctx context.Context, userID string) (*domain.Wallet, error)
	PutWallet(ctx context.Context, w *domain.Wallet) error

	Exchange(ctx context.Context, id string) (*domain.Exchange, error)
	PutExchange(ctx context.Context, x *domain.Exchange) error

	Dispute(ctx context.Context, id string) (*domain.Dispute, error)
	PutDispute(ctx context.Context, d *domain.Dispute) error
}

// Store is the durable repository behind the engine.
type Store interface {
	// Update runs fn atomically; if fn returns an error nothing it
	// wrote becomes visible.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(Tx) error) error

	OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// OpenOrders is the master-facing discovery feed: orders in the
	// open family whose client has search visibility switched on.
	OpenOrders(ctx context.Context) ([]domain.Order, error)
	TransactionsByUser(ctx context.Context, userID string) ([]domain.FinancialTransaction, error)
	AllTransactions(ctx context.Context) ([]domain.FinancialTransaction, error)
	AllWallets(ctx context.Context) ([]domain.Wallet, error)
	AllDisputes(ctx context.Context) ([]domain.Dispute, error)

	Setting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}
