// Package wallet is the user-facing wallet surface: balance,
// transaction history, top-ups and withdrawals. All money movement
// goes through the settlement engine; these handlers never touch
// balances directly.
package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/api"
	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/settlement"
	"github.com/fixparts/fixparts/internal/store"
)

type Handler struct {
	Settle *settlement.Engine
	Store  store.Store
}

func NewHandler(settle *settlement.Engine, st store.Store) *Handler {
	return &Handler{Settle: settle, Store: st}
}

// Balance returns the authenticated user's wallet
func (h *Handler) Balance(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var w *domain.Wallet
	err := h.Store.View(c.Request().Context(), func(tx store.Tx) error {
		var err error
		w, err = tx.Wallet(c.Request().Context(), actor.ID)
		return err
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch wallet"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":           w.UserID,
		"balance":           w.Balance,
		"pending_balance":   w.Pending,
		"available_balance": w.Available(),
		"total_earned":      w.TotalEarned,
		"total_spent":       w.TotalSpent,
	})
}

// Transactions returns the user's ledger history
func (h *Handler) Transactions(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txs, err := h.Store.TransactionsByUser(c.Request().Context(), actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// Topup credits the wallet (payment confirmation handled upstream)
func (h *Handler) Topup(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Amount int64  `json:"amount"`
		Source string `json:"source"`
	}
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be greater than zero"})
	}
	w, err := h.Settle.Deposit(c.Request().Context(), actor.ID, req.Amount, req.Source)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Topup successful", "wallet": w})
}

// Withdraw debits available balance net of withdrawal commission
func (h *Handler) Withdraw(c echo.Context) error {
	actor, ok := api.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Amount int64  `json:"amount"`
		Method string `json:"method"`
	}
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be greater than zero"})
	}
	w, t, err := h.Settle.Withdraw(c.Request().Context(), actor.ID, req.Amount, req.Method)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Withdrawal successful",
		"wallet":      w,
		"transaction": t,
	})
}
