// Package marketplace owns the order lifecycle and the proposal
// subsystem: creation, visibility toggles, competing proposals,
// acceptance with escrow hold, completion with escrow release, and
// the refunding cancellation path. Each operation is one atomic store
// update — a reader never observes an order transition without its
// paired proposal resolution and transaction record.
package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/settlement"
	"github.com/fixparts/fixparts/internal/store"
)

type Service struct {
	store  store.Store
	settle *settlement.Engine
}

func NewService(st store.Store, settle *settlement.Engine) *Service {
	return &Service{store: st, settle: settle}
}

type CreateOrderInput struct {
	Kind          domain.OrderKind
	Title         string
	Description   string
	ProposedPrice *int64
	UseEscrow     bool
}

func (s *Service) CreateOrder(ctx context.Context, actor domain.Actor, in CreateOrderInput) (*domain.Order, error) {
	now := time.Now()
	o := &domain.Order{
		ID:            uuid.New().String(),
		ClientID:      actor.ID,
		Kind:          in.Kind,
		Title:         in.Title,
		Description:   in.Description,
		ProposedPrice: in.ProposedPrice,
		Status:        domain.StatusOpen,
		UseEscrow:     in.UseEscrow,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// lockOrder fetches the order and checks the actor may act on behalf
// of its client. Admins pass for any order.
func clientOwns(o *domain.Order, actor domain.Actor) bool {
	return actor.Admin() || o.ClientID == actor.ID
}

// UpdateOrder edits title/description/asking price; legal only while
// the order is in the open family.
func (s *Service) UpdateOrder(ctx context.Context, actor domain.Actor, orderID string, in CreateOrderInput) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		if !o.Open() {
			return domain.ErrOrderNotOpen
		}
		o.Title = in.Title
		o.Description = in.Description
		o.ProposedPrice = in.ProposedPrice
		o.UpdatedAt = time.Now()
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ToggleSearch flips visibility to masters while the order is in the
// open family, driving open <-> active_search.
func (s *Service) ToggleSearch(ctx context.Context, actor domain.Actor, orderID string, active bool) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		if o.IsActiveSearch == active {
			return tx.PutOrder(ctx, o) // idempotent toggle
		}
		switch o.Status {
		case domain.StatusOpen:
			if active {
				if err := o.Transition(domain.StatusActiveSearch, actor.Role); err != nil {
					return err
				}
			}
		case domain.StatusActiveSearch:
			if !active {
				if err := o.Transition(domain.StatusOpen, actor.Role); err != nil {
					return err
				}
			}
		case domain.StatusProposed:
			// proposals already arrived; only the visibility flag moves
		default:
			return domain.ErrInvalidTransition
		}
		o.IsActiveSearch = active
		o.UpdatedAt = time.Now()
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// SubmitProposal attaches a master's offer to an open order. The
// first proposal drives the order into proposed.
func (s *Service) SubmitProposal(ctx context.Context, actor domain.Actor, orderID string, price int64, message string) (*domain.Proposal, error) {
	var p *domain.Proposal
	err := s.store.Update(ctx, func(tx store.Tx) error {
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Open() || o.DeletedAt != nil {
			return domain.ErrOrderNotOpen
		}
		siblings, err := tx.ProposalsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.MasterID == actor.ID && sib.Status == domain.ProposalPending {
				return domain.ErrDuplicateProposal
			}
		}
		p = &domain.Proposal{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			MasterID:  actor.ID,
			Price:     price,
			Message:   message,
			Status:    domain.ProposalPending,
			CreatedAt: time.Now(),
		}
		if err := tx.PutProposal(ctx, p); err != nil {
			return err
		}
		if o.Status != domain.StatusProposed {
			if err := o.Transition(domain.StatusProposed, domain.RoleSystem); err != nil {
				return err
			}
			o.UpdatedAt = time.Now()
			return tx.PutOrder(ctx, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// WithdrawProposal lets a master retract their own pending proposal.
func (s *Service) WithdrawProposal(ctx context.Context, actor domain.Actor, proposalID string) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.Proposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.MasterID != actor.ID && !actor.Admin() {
			return domain.ErrForbidden
		}
		return s.rejectProposalTx(ctx, tx, p)
	})
}

// AcceptProposal resolves the competition: the chosen proposal is
// accepted, every sibling is force-rejected, the order takes the
// agreed price and master, and — when the order uses escrow — the
// sale is captured as a hold. One atomic unit.
func (s *Service) AcceptProposal(ctx context.Context, actor domain.Actor, proposalID string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.Proposal(ctx, proposalID)
		if err != nil {
			return err
		}
		o, err = tx.Order(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		if p.Status != domain.ProposalPending {
			return domain.ErrInvalidTransition
		}
		if err := o.Transition(domain.StatusAccepted, actor.Role); err != nil {
			return err
		}

		p.Status = domain.ProposalAccepted
		if err := tx.PutProposal(ctx, p); err != nil {
			return err
		}
		siblings, err := tx.ProposalsByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.ID == p.ID || sib.Status != domain.ProposalPending {
				continue
			}
			sib.Status = domain.ProposalRejected
			if err := tx.PutProposal(ctx, sib); err != nil {
				return err
			}
		}

		price := p.Price
		o.AgreedPrice = &price
		o.MasterID = p.MasterID
		o.UpdatedAt = time.Now()
		if err := tx.PutOrder(ctx, o); err != nil {
			return err
		}

		if o.UseEscrow {
			if _, err := s.settle.ProcessSaleTx(ctx, tx, o.ID, o.ClientID, o.MasterID, price, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// RejectProposal declines one proposal. When nothing pending remains
// the order reverts to open.
func (s *Service) RejectProposal(ctx context.Context, actor domain.Actor, proposalID string) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.Proposal(ctx, proposalID)
		if err != nil {
			return err
		}
		o, err := tx.Order(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		return s.rejectProposalTx(ctx, tx, p)
	})
}

func (s *Service) rejectProposalTx(ctx context.Context, tx store.Tx, p *domain.Proposal) error {
	if p.Status != domain.ProposalPending {
		return domain.ErrInvalidTransition
	}
	p.Status = domain.ProposalRejected
	if err := tx.PutProposal(ctx, p); err != nil {
		return err
	}
	o, err := tx.Order(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if o.Status != domain.StatusProposed {
		return nil
	}
	siblings, err := tx.ProposalsByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.Status == domain.ProposalPending {
			return nil
		}
	}
	if err := o.Transition(domain.StatusOpen, domain.RoleSystem); err != nil {
		return err
	}
	o.IsActiveSearch = false
	o.UpdatedAt = time.Now()
	return tx.PutOrder(ctx, o)
}

// StartWork is the assigned master's explicit accepted -> in_progress
// trigger.
func (s *Service) StartWork(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.Admin() && o.MasterID != actor.ID {
			return domain.ErrForbidden
		}
		if err := o.Transition(domain.StatusInProgress, actor.Role); err != nil {
			return err
		}
		o.UpdatedAt = time.Now()
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CompleteOrder is the client's fulfillment confirmation. It drives
// the money: escrow orders release the held sale, direct orders
// capture the sale now.
func (s *Service) CompleteOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		if o.AgreedPrice == nil {
			return domain.ErrInvalidTransition
		}
		if err := o.Transition(domain.StatusCompleted, actor.Role); err != nil {
			return err
		}
		if o.UseEscrow {
			sale, err := tx.SaleByReference(ctx, o.ID)
			if err != nil {
				return err
			}
			if _, err := s.settle.ReleaseEscrowTx(ctx, tx, sale.ID); err != nil {
				return err
			}
		} else {
			if _, err := s.settle.ProcessSaleTx(ctx, tx, o.ID, o.ClientID, o.MasterID, *o.AgreedPrice, false); err != nil {
				return err
			}
		}
		o.UpdatedAt = time.Now()
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CancelOrder cancels any non-terminal order. A held sale is refunded
// in the same atomic unit — cancellation and refund are one operation.
// Masters may cancel only while no master is assigned.
func (s *Service) CancelOrder(ctx context.Context, actor domain.Actor, orderID, reason string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		switch actor.Role {
		case domain.RoleAdmin:
		case domain.RoleClient:
			if o.ClientID != actor.ID {
				return domain.ErrForbidden
			}
		case domain.RoleMaster:
			if o.MasterID != "" {
				return domain.ErrForbidden
			}
		default:
			return domain.ErrForbidden
		}
		if err := o.Transition(domain.StatusCancelled, actor.Role); err != nil {
			return err
		}
		sale, err := tx.SaleByReference(ctx, o.ID)
		if err == nil && sale.Status == domain.TxHeld {
			if _, err := s.settle.RefundTransactionTx(ctx, tx, sale.ID, reason); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		o.UpdatedAt = time.Now()
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrder soft-deletes. An order with a held sale must be
// cancelled (refunding the hold) first.
func (s *Service) DeleteOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		sale, err := tx.SaleByReference(ctx, o.ID)
		if err == nil && sale.Status == domain.TxHeld {
			return domain.ErrInvalidEscrowState
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := o.Transition(domain.StatusDeleted, actor.Role); err != nil {
			return err
		}
		now := time.Now()
		o.DeletedAt = &now
		o.UpdatedAt = now
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// RestoreOrder brings a soft-deleted order back to open. Restore
// clears the agreement, so a proposal that was accepted before the
// delete is rejected here; surviving pending proposals push the order
// straight back to proposed.
func (s *Service) RestoreOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if !clientOwns(o, actor) {
			return domain.ErrForbidden
		}
		if err := o.Transition(domain.StatusOpen, actor.Role); err != nil {
			return err
		}
		siblings, err := tx.ProposalsByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		hasPending := false
		for _, sib := range siblings {
			switch sib.Status {
			case domain.ProposalAccepted:
				sib.Status = domain.ProposalRejected
				if err := tx.PutProposal(ctx, sib); err != nil {
					return err
				}
			case domain.ProposalPending:
				hasPending = true
			}
		}
		if hasPending {
			if err := o.Transition(domain.StatusProposed, domain.RoleSystem); err != nil {
				return err
			}
		}
		o.UpdatedAt = time.Now()
		return tx.PutOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// OpenDispute files a participant complaint against an order.
func (s *Service) OpenDispute(ctx context.Context, actor domain.Actor, orderID, reason string) (*domain.Dispute, error) {
	var d *domain.Dispute
	err := s.store.Update(ctx, func(tx store.Tx) error {
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if o.ClientID != actor.ID && o.MasterID != actor.ID {
			return domain.ErrForbidden
		}
		d = &domain.Dispute{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			FilerID:   actor.ID,
			Reason:    reason,
			Status:    domain.DisputeOpen,
			CreatedAt: time.Now(),
		}
		return tx.PutDispute(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetOrder returns one order with its proposals.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, []*domain.Proposal, error) {
	var (
		o  *domain.Order
		ps []*domain.Proposal
	)
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		ps, err = tx.ProposalsByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return o, ps, nil
}
