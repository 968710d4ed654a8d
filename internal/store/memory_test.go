package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixparts/fixparts/internal/domain"
)

func seedOrder(t *testing.T, m *Memory, id string) {
	t.Helper()
	now := time.Now()
	err := m.Update(context.Background(), func(tx Tx) error {
		return tx.PutOrder(context.Background(), &domain.Order{
			ID: id, ClientID: "c1", Kind: domain.KindRepair, Title: "fix",
			Status: domain.StatusOpen, CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedOrder(t, m, "o1")

	boom := errors.New("boom")
	err := m.Update(ctx, func(tx Tx) error {
		o, err := tx.Order(ctx, "o1")
		if err != nil {
			return err
		}
		o.Status = domain.StatusCancelled
		if err := tx.PutOrder(ctx, o); err != nil {
			return err
		}
		w, err := tx.Wallet(ctx, "c1")
		if err != nil {
			return err
		}
		w.Balance = 999_00
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update err = %v, want boom", err)
	}

	err = m.View(ctx, func(tx Tx) error {
		o, err := tx.Order(ctx, "o1")
		if err != nil {
			return err
		}
		if o.Status != domain.StatusOpen {
			t.Errorf("rolled-back write visible: status = %s", o.Status)
		}
		w, err := tx.Wallet(ctx, "c1")
		if err != nil {
			return err
		}
		if w.Balance != 0 {
			t.Errorf("rolled-back wallet visible: balance = %d", w.Balance)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestUpdateReadsItsOwnWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedOrder(t, m, "o1")

	err := m.Update(ctx, func(tx Tx) error {
		o, err := tx.Order(ctx, "o1")
		if err != nil {
			return err
		}
		o.Title = "changed"
		if err := tx.PutOrder(ctx, o); err != nil {
			return err
		}
		again, err := tx.Order(ctx, "o1")
		if err != nil {
			return err
		}
		if again.Title != "changed" {
			t.Errorf("staged write not visible inside unit: %q", again.Title)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSaleByReferenceSkipsFailed(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	put := func(id string, status domain.TransactionStatus) {
		err := m.Update(ctx, func(tx Tx) error {
			return tx.PutTransaction(ctx, &domain.FinancialTransaction{
				ID: id, Reference: "order-1", Type: domain.TxSale,
				Amount: 100_00, Status: status, CreatedAt: now,
			})
		})
		if err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	put("t1", domain.TxFailed)

	err := m.View(ctx, func(tx Tx) error {
		_, err := tx.SaleByReference(ctx, "order-1")
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed sale matched: %v", err)
	}

	put("t2", domain.TxHeld)
	err = m.View(ctx, func(tx Tx) error {
		sale, err := tx.SaleByReference(ctx, "order-1")
		if err != nil {
			return err
		}
		if sale.ID != "t2" {
			t.Errorf("matched %s, want t2", sale.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWalletLazyCreation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Update(ctx, func(tx Tx) error {
		w, err := tx.Wallet(ctx, "new-user")
		if err != nil {
			return err
		}
		if w.Balance != 0 || w.Pending != 0 {
			t.Errorf("fresh wallet not zeroed: %+v", w)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
