package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fixparts/fixparts/internal/commission"
	"github.com/fixparts/fixparts/internal/store"
)

const commissionSettingKey = "commission_config"

type commissionPayload struct {
	SaleRate       string `json:"sale_rate"`
	WithdrawalRate string `json:"withdrawal_rate"`
	MinCommission  int64  `json:"min_commission"`
}

// GET /admin/settings/commission
func (h *Handler) GetCommission(c echo.Context) error {
	cfg := h.Settle.Calculator().Config()
	return c.JSON(http.StatusOK, echo.Map{
		"sale_rate":       cfg.SaleRate.String(),
		"withdrawal_rate": cfg.WithdrawalRate.String(),
		"min_commission":  cfg.MinCommission,
	})
}

// PUT /admin/settings/commission swaps the rate table at runtime and
// persists it so a restart picks it back up.
func (h *Handler) UpdateCommission(c echo.Context) error {
	var req commissionPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	saleRate, err := decimal.NewFromString(req.SaleRate)
	if err != nil || saleRate.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale_rate"})
	}
	withdrawalRate, err := decimal.NewFromString(req.WithdrawalRate)
	if err != nil || withdrawalRate.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid withdrawal_rate"})
	}
	if req.MinCommission < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_commission"})
	}

	cfg := commission.Config{
		SaleRate:       saleRate,
		WithdrawalRate: withdrawalRate,
		MinCommission:  req.MinCommission,
	}
	h.Settle.Calculator().SetConfig(cfg)

	raw, _ := json.Marshal(req)
	if err := h.Store.PutSetting(c.Request().Context(), commissionSettingKey, string(raw)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist settings"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "commission updated"})
}

// RestoreCommission loads a previously persisted rate table at
// startup. Missing or unreadable settings leave the defaults in place.
func RestoreCommission(ctx context.Context, st store.Store, calc *commission.Calculator) {
	raw, err := st.Setting(ctx, commissionSettingKey)
	if err != nil || raw == "" {
		return
	}
	var req commissionPayload
	if json.Unmarshal([]byte(raw), &req) != nil {
		return
	}
	saleRate, err := decimal.NewFromString(req.SaleRate)
	if err != nil {
		return
	}
	withdrawalRate, err := decimal.NewFromString(req.WithdrawalRate)
	if err != nil {
		return
	}
	calc.SetConfig(commission.Config{
		SaleRate:       saleRate,
		WithdrawalRate: withdrawalRate,
		MinCommission:  req.MinCommission,
	})
}
