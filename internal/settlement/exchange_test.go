package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/store"
)

func listPart(t *testing.T, st *store.Memory, ownerID string, price int64) *domain.Order {
	t.Helper()
	now := time.Now()
	o := &domain.Order{
		ID:            uuid.New().String(),
		ClientID:      ownerID,
		Kind:          domain.KindPart,
		Title:         "part",
		ProposedPrice: &price,
		Status:        domain.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := st.Update(context.Background(), func(tx store.Tx) error {
		return tx.PutOrder(context.Background(), o)
	})
	if err != nil {
		t.Fatalf("list part: %v", err)
	}
	return o
}

func getOrder(t *testing.T, st *store.Memory, id string) *domain.Order {
	t.Helper()
	var o *domain.Order
	err := st.View(context.Background(), func(tx store.Tx) error {
		var err error
		o, err = tx.Order(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("order %s: %v", id, err)
	}
	return o
}

func TestProposeExchangePriceDifference(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 450_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if x.PriceDifference != 150_00 {
		t.Errorf("difference = %d, want %d", x.PriceDifference, 150_00)
	}
	if x.ResponderID != "bob" || x.Status != domain.ExchangeProposed {
		t.Errorf("exchange = %+v", x)
	}
}

func TestProposeExchangeValidation(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 450_00)

	// Repair orders are not swappable.
	repair := listPart(t, st, "alice", 100_00)
	repair.Kind = domain.KindRepair
	if err := st.Update(ctx, func(tx store.Tx) error { return tx.PutOrder(ctx, repair) }); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ProposeExchange(ctx, repair.ID, partB.ID, "alice"); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Errorf("repair swap err = %v, want ErrOrderNotOpen", err)
	}

	// Proposer must own part A and must not own part B.
	if _, err := e.ProposeExchange(ctx, partB.ID, partA.ID, "alice"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign part A err = %v, want ErrForbidden", err)
	}
	partA2 := listPart(t, st, "alice", 200_00)
	if _, err := e.ProposeExchange(ctx, partA.ID, partA2.ID, "alice"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("self swap err = %v, want ErrForbidden", err)
	}
}

func TestExchangeSettlementWithDifference(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 450_00)
	fund(t, e, "alice", 500_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "alice"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	x, err = e.ConfirmExchange(ctx, x.ID, "bob")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	if x.Status != domain.ExchangeSettled || x.SettledAt == nil {
		t.Fatalf("exchange not settled: %+v", x)
	}

	// Alice owes the 150.00 difference; commission is the 10.00 floor
	// (5% of 150.00 is 7.50).
	if w := getWallet(t, st, "alice"); w.Balance != 350_00 {
		t.Errorf("alice balance = %d, want %d", w.Balance, 350_00)
	}
	if w := getWallet(t, st, "bob"); w.Balance != 140_00 {
		t.Errorf("bob balance = %d, want %d", w.Balance, 140_00)
	}
	if w := getWallet(t, st, domain.PlatformWalletID); w.Balance != 10_00 {
		t.Errorf("platform balance = %d, want %d", w.Balance, 10_00)
	}

	if o := getOrder(t, st, partA.ID); o.Status != domain.StatusExchanged {
		t.Errorf("part A status = %s, want exchanged", o.Status)
	}
	if o := getOrder(t, st, partB.ID); o.Status != domain.StatusExchanged {
		t.Errorf("part B status = %s, want exchanged", o.Status)
	}

	// The difference leg is a sale under the exchange reference, so a
	// replayed settlement would trip the duplicate guard.
	err = st.View(ctx, func(tx store.Tx) error {
		sale, err := tx.SaleByReference(ctx, x.ID)
		if err != nil {
			return err
		}
		if sale.Amount != 150_00 || sale.FromUserID != "alice" || sale.ToUserID != "bob" {
			t.Errorf("difference sale = %+v", sale)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("difference sale lookup: %v", err)
	}
}

func TestExchangeSettlementReversedDifference(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 450_00)
	partB := listPart(t, st, "bob", 300_00)
	fund(t, e, "bob", 500_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if x.PriceDifference != -150_00 {
		t.Fatalf("difference = %d, want %d", x.PriceDifference, -150_00)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("bob confirm: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "alice"); err != nil {
		t.Fatalf("alice confirm: %v", err)
	}

	// Bob owes; alice receives net of the commission floor.
	if w := getWallet(t, st, "bob"); w.Balance != 350_00 {
		t.Errorf("bob balance = %d, want %d", w.Balance, 350_00)
	}
	if w := getWallet(t, st, "alice"); w.Balance != 140_00 {
		t.Errorf("alice balance = %d, want %d", w.Balance, 140_00)
	}
}

func TestExchangeZeroDifferenceNoTransaction(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 300_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "alice"); err != nil {
		t.Fatalf("alice confirm: %v", err)
	}
	x, err = e.ConfirmExchange(ctx, x.ID, "bob")
	if err != nil {
		t.Fatalf("bob confirm: %v", err)
	}
	if x.Status != domain.ExchangeSettled {
		t.Fatalf("status = %s, want settled", x.Status)
	}

	txs, err := st.AllTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Errorf("zero-difference swap produced transactions: %+v", txs)
	}
}

func TestExchangeConfirmationQuorum(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 300_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	x, err = e.ConfirmExchange(ctx, x.ID, "alice")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if x.Status != domain.ExchangeAccepted || !x.ProposerConfirmed || x.ResponderConfirmed {
		t.Errorf("single confirmation settled early: %+v", x)
	}
	if o := getOrder(t, st, partA.ID); o.Status != domain.StatusOpen {
		t.Errorf("part A consumed before quorum: %s", o.Status)
	}
}

func TestExchangeConfirmBeforeAccept(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 300_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "alice"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("confirm before accept err = %v, want ErrInvalidTransition", err)
	}
}

func TestExchangeCancel(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 300_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.CancelExchange(ctx, x.ID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("stranger cancel err = %v, want ErrForbidden", err)
	}
	x, err = e.CancelExchange(ctx, x.ID, "bob")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if x.Status != domain.ExchangeCancelled {
		t.Errorf("status = %s, want cancelled", x.Status)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("accept after cancel err = %v, want ErrInvalidTransition", err)
	}
}

func TestExchangeSettlementRejectsConsumedPart(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 300_00)
	partC := listPart(t, st, "carol", 200_00)
	fund(t, e, "carol", 500_00)

	// Two accepted exchanges compete for bob's part.
	x1, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose x1: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x1.ID, "bob"); err != nil {
		t.Fatalf("accept x1: %v", err)
	}
	x2, err := e.ProposeExchange(ctx, partC.ID, partB.ID, "carol")
	if err != nil {
		t.Fatalf("propose x2: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x2.ID, "bob"); err != nil {
		t.Fatalf("accept x2: %v", err)
	}

	// The first exchange settles and consumes both parts.
	if _, err := e.ConfirmExchange(ctx, x1.ID, "alice"); err != nil {
		t.Fatalf("alice confirm: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x1.ID, "bob"); err != nil {
		t.Fatalf("bob confirm x1: %v", err)
	}

	// Confirming the loser must not settle it a second time.
	if _, err := e.ConfirmExchange(ctx, x2.ID, "carol"); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("confirm on consumed part err = %v, want ErrOrderNotOpen", err)
	}
	loser, err := e.GetExchange(ctx, x2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loser.Status != domain.ExchangeCancelled {
		t.Errorf("losing exchange status = %s, want cancelled", loser.Status)
	}

	// Carol paid nothing and her listing is untouched.
	if w := getWallet(t, st, "carol"); w.Balance != 500_00 {
		t.Errorf("carol balance = %d, want %d", w.Balance, 500_00)
	}
	if o := getOrder(t, st, partC.ID); o.Status != domain.StatusOpen {
		t.Errorf("part C status = %s, want open", o.Status)
	}
	err = st.View(ctx, func(tx store.Tx) error {
		_, err := tx.SaleByReference(ctx, x2.ID)
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("losing exchange sale lookup err = %v, want ErrNotFound", err)
	}
}

func TestExchangeConfirmOnDeletedPartCancels(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 300_00)

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Bob pulls his listing before anyone confirms.
	now := time.Now()
	err = st.Update(ctx, func(tx store.Tx) error {
		partB.Status = domain.StatusDeleted
		partB.DeletedAt = &now
		return tx.PutOrder(ctx, partB)
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.ConfirmExchange(ctx, x.ID, "alice"); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("confirm on deleted part err = %v, want ErrOrderNotOpen", err)
	}
	reloaded, err := e.GetExchange(ctx, x.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != domain.ExchangeCancelled {
		t.Errorf("status = %s, want cancelled", reloaded.Status)
	}
	if o := getOrder(t, st, partA.ID); o.Status != domain.StatusOpen {
		t.Errorf("part A status = %s, want open", o.Status)
	}
}

func TestExchangeSettlementRollsBackOnInsufficientFunds(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	partA := listPart(t, st, "alice", 300_00)
	partB := listPart(t, st, "bob", 450_00)
	// Alice owes 150.00 but holds nothing.

	x, err := e.ProposeExchange(ctx, partA.ID, partB.ID, "alice")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.AcceptExchange(ctx, x.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "alice"); err != nil {
		t.Fatalf("alice confirm: %v", err)
	}
	if _, err := e.ConfirmExchange(ctx, x.ID, "bob"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("settling confirm err = %v, want ErrInsufficientFunds", err)
	}

	// The failed settlement must leave no trace: bob's confirmation is
	// not recorded and both listings stay open.
	reloaded, err := e.GetExchange(ctx, x.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != domain.ExchangeAccepted || reloaded.ResponderConfirmed {
		t.Errorf("failed settlement left residue: %+v", reloaded)
	}
	if o := getOrder(t, st, partA.ID); o.Status != domain.StatusOpen {
		t.Errorf("part A status = %s, want open", o.Status)
	}
	if o := getOrder(t, st, partB.ID); o.Status != domain.StatusOpen {
		t.Errorf("part B status = %s, want open", o.Status)
	}
}
