// Package money fixes the monetary conventions of the engine: all
// amounts are int64 minor currency units (kopecks), percentage math
// goes through decimal arithmetic and rounds half-up at the smallest
// unit so repeated small commissions do not drift.
package money

import "github.com/shopspring/decimal"

// Currency is the single settlement currency of the platform.
const Currency = "UAH"

// Percent computes round-half-up(amount * rate / 100) in minor units.
// rate is a percentage, e.g. "5" or "5.5".
func Percent(amount int64, rate decimal.Decimal) int64 {
	d := decimal.NewFromInt(amount).Mul(rate).Div(decimal.NewFromInt(100))
	// Round(0) rounds half away from zero; amounts here are never
	// negative, so this is round-half-up.
	return d.Round(0).IntPart()
}

// Abs returns the absolute value of a minor-unit amount.
func Abs(amount int64) int64 {
	if amount < 0 {
		return -amount
	}
	return amount
}
