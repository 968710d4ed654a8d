package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/alerts"
	"github.com/fixparts/fixparts/internal/api"
	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/shipping"
	"github.com/fixparts/fixparts/internal/store"
)

// Handler exposes the order lifecycle over HTTP.
type Handler struct {
	Svc   *Service
	Store store.Store
}

func NewHandler(svc *Service, st store.Store) *Handler {
	return &Handler{Svc: svc, Store: st}
}

// CreateOrder - client posts a repair request or part listing
func (h *Handler) CreateOrder(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Kind          string `json:"kind"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		ProposedPrice *int64 `json:"proposed_price"`
		UseEscrow     *bool  `json:"use_escrow"`
	}
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: title required"})
	}
	kind := domain.OrderKind(req.Kind)
	if kind != domain.KindRepair && kind != domain.KindPart {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be repair or part"})
	}
	if req.ProposedPrice != nil && *req.ProposedPrice < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}
	useEscrow := true
	if req.UseEscrow != nil {
		useEscrow = *req.UseEscrow
	}

	o, err := h.Svc.CreateOrder(c.Request().Context(), actor, CreateOrderInput{
		Kind:          kind,
		Title:         req.Title,
		Description:   req.Description,
		ProposedPrice: req.ProposedPrice,
		UseEscrow:     useEscrow,
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// UpdateOrder - client edits an order while it is still open
func (h *Handler) UpdateOrder(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		ProposedPrice *int64 `json:"proposed_price"`
	}
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	o, err := h.Svc.UpdateOrder(c.Request().Context(), actor, c.Param("id"), CreateOrderInput{
		Title:         req.Title,
		Description:   req.Description,
		ProposedPrice: req.ProposedPrice,
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ToggleSearch - client pauses/resumes visibility to masters
func (h *Handler) ToggleSearch(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	o, err := h.Svc.ToggleSearch(c.Request().Context(), actor, c.Param("id"), req.Active)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Discovery - public feed of searchable orders for masters
func (h *Handler) Discovery(c echo.Context) error {
	orders, err := h.Store.OpenOrders(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// MyOrders - everything the actor participates in
func (h *Handler) MyOrders(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.Store.OrdersByUser(c.Request().Context(), actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// GetOrder - one order with its proposals
func (h *Handler) GetOrder(c echo.Context) error {
	o, proposals, err := h.Svc.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o, "proposals": proposals})
}

// SubmitProposal - master offers a price against an order
func (h *Handler) SubmitProposal(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Price   int64  `json:"price"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be greater than zero"})
	}
	p, err := h.Svc.SubmitProposal(c.Request().Context(), actor, c.Param("id"), req.Price, req.Message)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// AcceptProposal - client picks the winning proposal; funds go to escrow
func (h *Handler) AcceptProposal(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.Svc.AcceptProposal(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}

	// Notify the winning master (best-effort)
	_ = alerts.EnqueueProposalAccepted(o.ID, o.ClientID, o.MasterID, *o.AgreedPrice)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Proposal accepted. Funds held in escrow where applicable.",
		"order":   o,
	})
}

// RejectProposal - client declines one proposal
func (h *Handler) RejectProposal(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Svc.RejectProposal(c.Request().Context(), actor, c.Param("id")); err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Proposal rejected"})
}

// WithdrawProposal - master retracts their own pending proposal
func (h *Handler) WithdrawProposal(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Svc.WithdrawProposal(c.Request().Context(), actor, c.Param("id")); err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Proposal withdrawn"})
}

// StartWork - assigned master begins fulfillment
func (h *Handler) StartWork(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.Svc.StartWork(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CompleteOrder - client confirms fulfillment, releasing escrow
func (h *Handler) CompleteOrder(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.Svc.CompleteOrder(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}

	// Payout notification and shipment label are best-effort and never
	// gate the settlement that already committed.
	_ = alerts.EnqueueOrderCompleted(o.ID, o.ClientID, o.MasterID, *o.AgreedPrice)
	_ = shipping.EnqueueShipment(o.ID, o.ClientID, o.MasterID)

	return c.JSON(http.StatusOK, echo.Map{"message": "Order completed", "order": o})
}

// CancelOrder - cancellation with atomic escrow refund
func (h *Handler) CancelOrder(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "order cancelled"
	}
	o, err := h.Svc.CancelOrder(c.Request().Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		return api.Error(c, err)
	}
	_ = alerts.EnqueueOrderCancelled(o.ID, o.ClientID, o.MasterID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Order cancelled", "order": o})
}

// DeleteOrder - soft delete
func (h *Handler) DeleteOrder(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.Svc.DeleteOrder(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order deleted", "order": o})
}

// RestoreOrder - bring a soft-deleted order back
func (h *Handler) RestoreOrder(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.Svc.RestoreOrder(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order restored", "order": o})
}

// OpenDispute - participant files a dispute against an order
func (h *Handler) OpenDispute(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}
	d, err := h.Svc.OpenDispute(c.Request().Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		return api.Error(c, err)
	}
	_ = alerts.EnqueueAdminAlert(actor.ID, "info", "New dispute opened: order "+d.OrderID)
	return c.JSON(http.StatusCreated, d)
}
