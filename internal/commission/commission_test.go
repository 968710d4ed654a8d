package commission

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fixparts/fixparts/internal/domain"
)

func TestCommissionDefaults(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	cases := []struct {
		name   string
		amount int64
		typ    domain.TransactionType
		want   int64
	}{
		{"sale at rate", 1000_00, domain.TxSale, 50_00},
		{"sale floored by minimum", 100_00, domain.TxSale, 10_00},
		{"sale exactly at minimum", 200_00, domain.TxSale, 10_00},
		{"withdrawal at rate", 1000_00, domain.TxWithdrawal, 20_00},
		{"withdrawal floored by minimum", 100_00, domain.TxWithdrawal, 10_00},
		{"deposit bears no commission", 1000_00, domain.TxDeposit, 0},
		{"refund bears no commission", 1000_00, domain.TxRefund, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := calc.Commission(tc.amount, tc.typ); got != tc.want {
				t.Errorf("Commission(%d, %s) = %d, want %d", tc.amount, tc.typ, got, tc.want)
			}
		})
	}
}

func TestNetAmount(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	if got := calc.NetAmount(1000_00, domain.TxSale); got != 950_00 {
		t.Errorf("NetAmount(1000_00, sale) = %d, want %d", got, 950_00)
	}
	// Floor applies: net of a small sale loses the full minimum.
	if got := calc.NetAmount(100_00, domain.TxSale); got != 90_00 {
		t.Errorf("NetAmount(100_00, sale) = %d, want %d", got, 90_00)
	}
}

func TestCommissionMonotonic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	prev := int64(0)
	for amount := int64(50_00); amount <= 5000_00; amount += 50_00 {
		got := calc.Commission(amount, domain.TxSale)
		if got < prev {
			t.Fatalf("commission decreased: Commission(%d) = %d < %d", amount, got, prev)
		}
		prev = got
	}
}

func TestSetConfig(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	calc.SetConfig(Config{
		SaleRate:       decimal.NewFromInt(10),
		WithdrawalRate: decimal.NewFromInt(1),
		MinCommission:  5_00,
	})
	if got := calc.Commission(1000_00, domain.TxSale); got != 100_00 {
		t.Errorf("Commission after SetConfig = %d, want %d", got, 100_00)
	}
	if got := calc.Commission(100_00, domain.TxWithdrawal); got != 5_00 {
		t.Errorf("withdrawal commission after SetConfig = %d, want %d (minimum)", got, 5_00)
	}
	if got := calc.Rate(domain.TxSale); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Rate(sale) = %s, want 10", got)
	}
}
