package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/money"
	"github.com/fixparts/fixparts/internal/store"
)

// Exchange settlement: a peer-to-peer swap of two listed parts with a
// price-difference leg. The difference — never either part's full
// price — is routed through ProcessSale, so commission and the
// idempotency guard apply to it exactly as to a normal sale.

func listingPrice(o *domain.Order) int64 {
	if o.AgreedPrice != nil {
		return *o.AgreedPrice
	}
	if o.ProposedPrice != nil {
		return *o.ProposedPrice
	}
	return 0
}

// ProposeExchange creates a swap offer of the proposer's part A for
// the responder's part B. Both listings must be open part listings.
func (e *Engine) ProposeExchange(ctx context.Context, partAID, partBID, proposerID string) (*domain.Exchange, error) {
	var x *domain.Exchange
	err := e.store.Update(ctx, func(tx store.Tx) error {
		partA, err := tx.Order(ctx, partAID)
		if err != nil {
			return err
		}
		partB, err := tx.Order(ctx, partBID)
		if err != nil {
			return err
		}
		if partA.Kind != domain.KindPart || partB.Kind != domain.KindPart ||
			!partA.Open() || !partB.Open() {
			return domain.ErrOrderNotOpen
		}
		if partA.ClientID != proposerID || partB.ClientID == proposerID {
			return domain.ErrForbidden
		}
		x = &domain.Exchange{
			ID:              uuid.New().String(),
			PartAID:         partAID,
			PartBID:         partBID,
			ProposerID:      proposerID,
			ResponderID:     partB.ClientID,
			PriceDifference: listingPrice(partB) - listingPrice(partA),
			Status:          domain.ExchangeProposed,
			CreatedAt:       time.Now(),
		}
		return tx.PutExchange(ctx, x)
	})
	if err != nil {
		return nil, err
	}
	return x, nil
}

// AcceptExchange is the responder agreeing to the proposed terms.
func (e *Engine) AcceptExchange(ctx context.Context, exchangeID, actorID string) (*domain.Exchange, error) {
	var x *domain.Exchange
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		x, err = tx.Exchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		if x.ResponderID != actorID {
			return domain.ErrForbidden
		}
		if x.Status != domain.ExchangeProposed {
			return domain.ErrInvalidTransition
		}
		x.Status = domain.ExchangeAccepted
		return tx.PutExchange(ctx, x)
	})
	if err != nil {
		return nil, err
	}
	return x, nil
}

// ConfirmExchange records one party's confirmation that the physical
// swap happened. Settlement runs only once both parties have
// confirmed: the price difference is captured as a sale from whoever
// owes it, and both listings are flagged exchanged. A zero difference
// settles with no transaction. If either part stopped being an open
// listing since the proposal (taken by another exchange, deleted,
// cancelled), the exchange is cancelled instead of settling.
func (e *Engine) ConfirmExchange(ctx context.Context, exchangeID, actorID string) (*domain.Exchange, error) {
	var x *domain.Exchange
	var stale bool
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		x, err = tx.Exchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		if x.Status != domain.ExchangeAccepted {
			return domain.ErrInvalidTransition
		}
		switch actorID {
		case x.ProposerID:
			x.ProposerConfirmed = true
		case x.ResponderID:
			x.ResponderConfirmed = true
		default:
			return domain.ErrForbidden
		}
		if _, err := openPartsTx(ctx, tx, x); err != nil {
			if !errors.Is(err, domain.ErrOrderNotOpen) {
				return err
			}
			stale = true
			x.Status = domain.ExchangeCancelled
			return tx.PutExchange(ctx, x)
		}
		if !x.ProposerConfirmed || !x.ResponderConfirmed {
			return tx.PutExchange(ctx, x)
		}
		return e.settleExchangeTx(ctx, tx, x)
	})
	if err != nil {
		return nil, err
	}
	if stale {
		return nil, domain.ErrOrderNotOpen
	}
	return x, nil
}

// openPartsTx re-reads both listings and fails with ErrOrderNotOpen
// unless each is still an open, undeleted part listing. Settlement
// must never pay for or flag a part a second exchange already took.
func openPartsTx(ctx context.Context, tx store.Tx, x *domain.Exchange) ([]*domain.Order, error) {
	parts := make([]*domain.Order, 0, 2)
	for _, partID := range []string{x.PartAID, x.PartBID} {
		part, err := tx.Order(ctx, partID)
		if err != nil {
			return nil, err
		}
		if !part.Open() || part.DeletedAt != nil {
			return nil, domain.ErrOrderNotOpen
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (e *Engine) settleExchangeTx(ctx context.Context, tx store.Tx, x *domain.Exchange) error {
	parts, err := openPartsTx(ctx, tx, x)
	if err != nil {
		return err
	}

	diff := x.PriceDifference
	switch {
	case diff > 0:
		// Proposer receives the more expensive part and owes the
		// difference.
		if _, err := e.ProcessSaleTx(ctx, tx, x.ID, x.ProposerID, x.ResponderID, diff, false); err != nil {
			return err
		}
	case diff < 0:
		if _, err := e.ProcessSaleTx(ctx, tx, x.ID, x.ResponderID, x.ProposerID, money.Abs(diff), false); err != nil {
			return err
		}
	}

	for _, part := range parts {
		part.Status = domain.StatusExchanged
		part.IsActiveSearch = false
		if err := tx.PutOrder(ctx, part); err != nil {
			return err
		}
	}

	now := time.Now()
	x.Status = domain.ExchangeSettled
	x.SettledAt = &now
	return tx.PutExchange(ctx, x)
}

// CancelExchange withdraws a swap before settlement. Either party may
// cancel while it is proposed or accepted.
func (e *Engine) CancelExchange(ctx context.Context, exchangeID, actorID string) (*domain.Exchange, error) {
	var x *domain.Exchange
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		x, err = tx.Exchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		if actorID != x.ProposerID && actorID != x.ResponderID {
			return domain.ErrForbidden
		}
		if x.Status != domain.ExchangeProposed && x.Status != domain.ExchangeAccepted {
			return domain.ErrInvalidTransition
		}
		x.Status = domain.ExchangeCancelled
		return tx.PutExchange(ctx, x)
	})
	if err != nil {
		return nil, err
	}
	return x, nil
}

// GetExchange returns one exchange visible to its participants.
func (e *Engine) GetExchange(ctx context.Context, exchangeID string) (*domain.Exchange, error) {
	var x *domain.Exchange
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		x, err = tx.Exchange(ctx, exchangeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return x, nil
}
