package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/alerts"
	"github.com/fixparts/fixparts/internal/api"
	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/settlement"
	"github.com/fixparts/fixparts/internal/shipping"
)

// ExchangeHandler exposes the peer-to-peer part swap flow.
type ExchangeHandler struct {
	Settle *settlement.Engine
}

func NewExchangeHandler(settle *settlement.Engine) *ExchangeHandler {
	return &ExchangeHandler{Settle: settle}
}

// Propose - offer my part A for their part B
func (h *ExchangeHandler) Propose(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		PartAID string `json:"part_a_id"`
		PartBID string `json:"part_b_id"`
	}
	if err := c.Bind(&req); err != nil || req.PartAID == "" || req.PartBID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "part_a_id and part_b_id required"})
	}
	x, err := h.Settle.ProposeExchange(c.Request().Context(), req.PartAID, req.PartBID, actor.ID)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusCreated, x)
}

// Accept - responder agrees to the terms
func (h *ExchangeHandler) Accept(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	x, err := h.Settle.AcceptExchange(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, x)
}

// Confirm - one party confirms the physical swap; settlement runs
// once both have confirmed
func (h *ExchangeHandler) Confirm(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	x, err := h.Settle.ConfirmExchange(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return api.Error(c, err)
	}
	if x.Status == domain.ExchangeSettled {
		_ = alerts.EnqueueExchangeSettled(x.ID, x.ProposerID, x.ResponderID, x.PriceDifference)
		_ = shipping.EnqueueShipment(x.PartAID, x.ProposerID, x.ResponderID)
		_ = shipping.EnqueueShipment(x.PartBID, x.ResponderID, x.ProposerID)
	}
	return c.JSON(http.StatusOK, x)
}

// Cancel - either party withdraws before settlement
func (h *ExchangeHandler) Cancel(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	x, err := h.Settle.CancelExchange(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, x)
}

// Get - one exchange
func (h *ExchangeHandler) Get(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	x, err := h.Settle.GetExchange(c.Request().Context(), c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}
	if actor.ID != x.ProposerID && actor.ID != x.ResponderID && !actor.Admin() {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this exchange"})
	}
	return c.JSON(http.StatusOK, x)
}
