// Package settlement orchestrates the financial side of order
// transitions: sale capture, escrow hold/release, compensating
// refunds and withdrawals. Every operation runs inside one store
// transaction and either commits the wallet movements together with
// the transaction record or not at all.
package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fixparts/fixparts/internal/commission"
	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/money"
	"github.com/fixparts/fixparts/internal/store"
)

type Engine struct {
	store store.Store
	calc  *commission.Calculator
}

func NewEngine(st store.Store, calc *commission.Calculator) *Engine {
	return &Engine{store: st, calc: calc}
}

// Calculator exposes the rate table for the admin settings surface.
func (e *Engine) Calculator() *commission.Calculator { return e.calc }

// ProcessSale captures a sale for the given reference (order or
// exchange id). Idempotent per reference: a second call finds the
// existing non-failed sale and returns ErrDuplicateSettlement without
// touching any wallet.
func (e *Engine) ProcessSale(ctx context.Context, ref, buyerID, sellerID string, amount int64, useEscrow bool) (*domain.FinancialTransaction, error) {
	var t *domain.FinancialTransaction
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		t, err = e.ProcessSaleTx(ctx, tx, ref, buyerID, sellerID, amount, useEscrow)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ProcessSaleTx is ProcessSale inside a caller-owned transaction, used
// when the sale must commit atomically with an order transition.
func (e *Engine) ProcessSaleTx(ctx context.Context, tx store.Tx, ref, buyerID, sellerID string, amount int64, useEscrow bool) (*domain.FinancialTransaction, error) {
	if _, err := tx.SaleByReference(ctx, ref); err == nil {
		return nil, domain.ErrDuplicateSettlement
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	buyer, err := tx.Wallet(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer.Available() < amount {
		return nil, domain.ErrInsufficientFunds
	}

	comm := e.calc.Commission(amount, domain.TxSale)
	now := time.Now()
	t := &domain.FinancialTransaction{
		ID:                 uuid.New().String(),
		Reference:          ref,
		Type:               domain.TxSale,
		Amount:             amount,
		Currency:           money.Currency,
		FromUserID:         buyerID,
		ToUserID:           sellerID,
		PlatformCommission: comm,
		CommissionRate:     e.calc.Rate(domain.TxSale).String(),
		Description:        "sale capture",
		CreatedAt:          now,
	}

	if useEscrow {
		// Funds leave the buyer's available balance but are not yet
		// credited anywhere; commission is realized at release.
		t.Status = domain.TxHeld
		buyer.Pending += amount
		if err := tx.PutWallet(ctx, buyer); err != nil {
			return nil, err
		}
	} else {
		t.Status = domain.TxCompleted
		t.CompletedAt = &now
		buyer.Balance -= amount
		buyer.TotalSpent += amount
		if err := tx.PutWallet(ctx, buyer); err != nil {
			return nil, err
		}
		if err := e.creditSale(ctx, tx, sellerID, amount, comm); err != nil {
			return nil, err
		}
	}

	if err := tx.PutTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// creditSale pays the seller net of commission and books the
// commission on the platform pseudo-wallet.
func (e *Engine) creditSale(ctx context.Context, tx store.Tx, sellerID string, amount, comm int64) error {
	seller, err := tx.Wallet(ctx, sellerID)
	if err != nil {
		return err
	}
	net := amount - comm
	seller.Balance += net
	seller.TotalEarned += net
	if err := tx.PutWallet(ctx, seller); err != nil {
		return err
	}
	platform, err := tx.Wallet(ctx, domain.PlatformWalletID)
	if err != nil {
		return err
	}
	platform.Balance += comm
	platform.TotalEarned += comm
	return tx.PutWallet(ctx, platform)
}

// ReleaseEscrow hands held funds to the seller after buyer
// confirmation. Legal only on a held transaction.
func (e *Engine) ReleaseEscrow(ctx context.Context, transactionID string) (*domain.FinancialTransaction, error) {
	var t *domain.FinancialTransaction
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		t, err = e.ReleaseEscrowTx(ctx, tx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) ReleaseEscrowTx(ctx context.Context, tx store.Tx, transactionID string) (*domain.FinancialTransaction, error) {
	t, err := tx.Transaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TxHeld {
		return nil, domain.ErrInvalidEscrowState
	}

	buyer, err := tx.Wallet(ctx, t.FromUserID)
	if err != nil {
		return nil, err
	}
	buyer.Pending -= t.Amount
	buyer.Balance -= t.Amount
	buyer.TotalSpent += t.Amount
	if err := tx.PutWallet(ctx, buyer); err != nil {
		return nil, err
	}
	if err := e.creditSale(ctx, tx, t.ToUserID, t.Amount, t.PlatformCommission); err != nil {
		return nil, err
	}

	now := time.Now()
	t.Status = domain.TxReleased
	t.CompletedAt = &now
	if err := tx.PutTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RefundTransaction reverses a held or completed sale back to the
// buyer with a new compensating refund record. The original keeps its
// historical amounts and is marked refunded; commission already
// realized is reversed in full.
func (e *Engine) RefundTransaction(ctx context.Context, transactionID, reason string) (*domain.FinancialTransaction, error) {
	var r *domain.FinancialTransaction
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		r, err = e.RefundTransactionTx(ctx, tx, transactionID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (e *Engine) RefundTransactionTx(ctx context.Context, tx store.Tx, transactionID, reason string) (*domain.FinancialTransaction, error) {
	t, err := tx.Transaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TxHeld && t.Status != domain.TxCompleted {
		return nil, domain.ErrInvalidEscrowState
	}

	buyer, err := tx.Wallet(ctx, t.FromUserID)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TxHeld {
		// Funds never left the buyer's balance; dropping the hold
		// restores the available balance exactly.
		buyer.Pending -= t.Amount
		if err := tx.PutWallet(ctx, buyer); err != nil {
			return nil, err
		}
	} else {
		seller, err := tx.Wallet(ctx, t.ToUserID)
		if err != nil {
			return nil, err
		}
		net := t.Amount - t.PlatformCommission
		seller.Balance -= net
		seller.TotalEarned -= net
		if err := tx.PutWallet(ctx, seller); err != nil {
			return nil, err
		}
		platform, err := tx.Wallet(ctx, domain.PlatformWalletID)
		if err != nil {
			return nil, err
		}
		platform.Balance -= t.PlatformCommission
		platform.TotalEarned -= t.PlatformCommission
		if err := tx.PutWallet(ctx, platform); err != nil {
			return nil, err
		}
		buyer.Balance += t.Amount
		buyer.TotalSpent -= t.Amount
		if err := tx.PutWallet(ctx, buyer); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	refund := &domain.FinancialTransaction{
		ID:          uuid.New().String(),
		Reference:   t.Reference,
		Type:        domain.TxRefund,
		Amount:      t.Amount,
		Currency:    t.Currency,
		FromUserID:  t.ToUserID,
		ToUserID:    t.FromUserID,
		Status:      domain.TxCompleted,
		Description: reason,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.PutTransaction(ctx, refund); err != nil {
		return nil, err
	}
	t.Status = domain.TxRefunded
	if err := tx.PutTransaction(ctx, t); err != nil {
		return nil, err
	}
	return refund, nil
}

// Withdraw debits the available balance, books withdrawal commission
// on the platform wallet and records a withdrawal transaction for the
// net amount handed to the payout method.
func (e *Engine) Withdraw(ctx context.Context, userID string, amount int64, method string) (*domain.Wallet, *domain.FinancialTransaction, error) {
	var (
		w *domain.Wallet
		t *domain.FinancialTransaction
	)
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		w, err = tx.Wallet(ctx, userID)
		if err != nil {
			return err
		}
		if w.Available() < amount {
			return domain.ErrInsufficientFunds
		}
		comm := e.calc.Commission(amount, domain.TxWithdrawal)
		w.Balance -= amount
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}
		platform, err := tx.Wallet(ctx, domain.PlatformWalletID)
		if err != nil {
			return err
		}
		platform.Balance += comm
		platform.TotalEarned += comm
		if err := tx.PutWallet(ctx, platform); err != nil {
			return err
		}
		now := time.Now()
		t = &domain.FinancialTransaction{
			ID:                 uuid.New().String(),
			Reference:          uuid.New().String(),
			Type:               domain.TxWithdrawal,
			Amount:             amount - comm,
			Currency:           money.Currency,
			FromUserID:         userID,
			PlatformCommission: comm,
			CommissionRate:     e.calc.Rate(domain.TxWithdrawal).String(),
			Status:             domain.TxCompleted,
			Description:        method,
			CreatedAt:          now,
			CompletedAt:        &now,
		}
		return tx.PutTransaction(ctx, t)
	})
	if err != nil {
		return nil, nil, err
	}
	return w, t, nil
}

// Deposit credits a top-up to the user's balance with a deposit
// transaction. No commission.
func (e *Engine) Deposit(ctx context.Context, userID string, amount int64, source string) (*domain.Wallet, error) {
	var w *domain.Wallet
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		w, err = tx.Wallet(ctx, userID)
		if err != nil {
			return err
		}
		w.Balance += amount
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}
		now := time.Now()
		return tx.PutTransaction(ctx, &domain.FinancialTransaction{
			ID:          uuid.New().String(),
			Reference:   uuid.New().String(),
			Type:        domain.TxDeposit,
			Amount:      amount,
			Currency:    money.Currency,
			ToUserID:    userID,
			Status:      domain.TxCompleted,
			Description: source,
			CreatedAt:   now,
			CompletedAt: &now,
		})
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}
