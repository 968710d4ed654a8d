package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/api"
)

// GET /admin/wallets
func (h *Handler) ListWallets(c echo.Context) error {
	wallets, err := h.Store.AllWallets(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch wallets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"wallets": wallets})
}

// GET /admin/transactions
func (h *Handler) ListTransactions(c echo.Context) error {
	txs, err := h.Store.AllTransactions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// GET /admin/users/:id/transactions
func (h *Handler) UserTransactions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	txs, err := h.Store.TransactionsByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "transactions": txs})
}

// POST /admin/escrow/:id/release releases a held sale outside the
// normal completion path, for support intervention.
func (h *Handler) ReleaseEscrow(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction id required"})
	}
	t, err := h.Settle.ReleaseEscrow(c.Request().Context(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "released", "transaction": t})
}

// POST /admin/transactions/:id/refund
func (h *Handler) RefundTransaction(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction id required"})
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)
	t, err := h.Settle.RefundTransaction(c.Request().Context(), id, req.Reason)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "refunded", "transaction": t})
}
