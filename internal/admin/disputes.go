package admin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/api"
	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/settlement"
	"github.com/fixparts/fixparts/internal/store"
)

// Handler carries the admin surface: disputes, wallets, ledger and
// commission settings.
type Handler struct {
	Settle *settlement.Engine
	Store  store.Store
}

func NewHandler(settle *settlement.Engine, st store.Store) *Handler {
	return &Handler{Settle: settle, Store: st}
}

// GET /admin/disputes
func (h *Handler) ListDisputes(c echo.Context) error {
	disputes, err := h.Store.AllDisputes(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch disputes"})
	}
	return c.JSON(http.StatusOK, echo.Map{"disputes": disputes})
}

// POST /admin/disputes/:id/resolve
func (h *Handler) ResolveDispute(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dispute id required"})
	}
	var req struct {
		Resolution string `json:"resolution"` // refund|release|none
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil || req.Resolution == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: resolution required"})
	}
	if req.Resolution != domain.ResolutionRefund &&
		req.Resolution != domain.ResolutionRelease &&
		req.Resolution != domain.ResolutionNone {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resolution"})
	}

	ctx := c.Request().Context()
	var d *domain.Dispute
	err := h.Store.Update(ctx, func(tx store.Tx) error {
		var err error
		d, err = tx.Dispute(ctx, id)
		if err != nil {
			return err
		}
		if d.Status != domain.DisputeOpen {
			return domain.ErrInvalidEscrowState
		}

		// Money movement follows the resolution. The sale is looked
		// up by order reference so the dispute and the settlement
		// stay in one atomic unit.
		switch req.Resolution {
		case domain.ResolutionRefund:
			sale, err := tx.SaleByReference(ctx, d.OrderID)
			if err != nil {
				return err
			}
			if _, err := h.Settle.RefundTransactionTx(ctx, tx, sale.ID, "dispute "+d.ID); err != nil {
				return err
			}
		case domain.ResolutionRelease:
			sale, err := tx.SaleByReference(ctx, d.OrderID)
			if err != nil {
				return err
			}
			if _, err := h.Settle.ReleaseEscrowTx(ctx, tx, sale.ID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		d.Status = domain.DisputeResolved
		d.Resolution = req.Resolution
		d.Notes = req.Notes
		d.ResolvedBy = actor.ID
		d.ResolvedAt = &now
		return tx.PutDispute(ctx, d)
	})
	if err != nil {
		return api.Error(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "resolved", "dispute": d})
}
