// Package commission computes the platform's cut of a monetary
// operation. Pure arithmetic: no I/O, no side effects, deterministic
// for a given rate table.
package commission

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fixparts/fixparts/internal/domain"
	"github.com/fixparts/fixparts/internal/money"
)

// Config is the admin-adjustable rate table. Rates are percentages,
// MinCommission is in kopecks and floors every commission-bearing type.
type Config struct {
	SaleRate       decimal.Decimal
	WithdrawalRate decimal.Decimal
	MinCommission  int64
}

// DefaultConfig mirrors the platform defaults: 5% on sales, 2% on
// withdrawals, 10 UAH floor.
func DefaultConfig() Config {
	return Config{
		SaleRate:       decimal.NewFromInt(5),
		WithdrawalRate: decimal.NewFromInt(2),
		MinCommission:  10_00,
	}
}

// Calculator applies the rate table. Safe for concurrent use; admins
// may swap the config at runtime.
type Calculator struct {
	mu  sync.RWMutex
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the current rate table.
func (c *Calculator) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetConfig replaces the rate table.
func (c *Calculator) SetConfig(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

// Rate returns the percentage applied to the given transaction type.
// Only sale and withdrawal bear commission.
func (c *Calculator) Rate(typ domain.TransactionType) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch typ {
	case domain.TxSale:
		return c.cfg.SaleRate
	case domain.TxWithdrawal:
		return c.cfg.WithdrawalRate
	}
	return decimal.Zero
}

// Commission computes max(amount*rate/100, minCommission) for
// commission-bearing types, 0 otherwise. Rounds half-up at the kopeck.
func (c *Calculator) Commission(amount int64, typ domain.TransactionType) int64 {
	rate := c.Rate(typ)
	if rate.IsZero() {
		return 0
	}
	c.mu.RLock()
	min := c.cfg.MinCommission
	c.mu.RUnlock()
	got := money.Percent(amount, rate)
	if got < min {
		return min
	}
	return got
}

// NetAmount is what the counter-party receives after commission.
func (c *Calculator) NetAmount(amount int64, typ domain.TransactionType) int64 {
	return amount - c.Commission(amount, typ)
}
