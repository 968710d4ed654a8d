package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercent(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		rate   string
		want   int64
	}{
		{"whole percent", 1000_00, "5", 50_00},
		{"fractional rate", 1000_00, "2.5", 25_00},
		{"rounds half up", 10, "5", 1},       // 0.5 kopecks
		{"rounds down below half", 9, "5", 0}, // 0.45 kopecks
		{"rounds up above half", 150, "3.33", 5}, // 4.995 kopecks
		{"zero rate", 1000_00, "0", 0},
		{"zero amount", 0, "5", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tc.rate)
			if err != nil {
				t.Fatalf("bad rate %q: %v", tc.rate, err)
			}
			if got := Percent(tc.amount, rate); got != tc.want {
				t.Errorf("Percent(%d, %s) = %d, want %d", tc.amount, tc.rate, got, tc.want)
			}
		})
	}
}

func TestAbs(t *testing.T) {
	if got := Abs(-150_00); got != 150_00 {
		t.Errorf("Abs(-150_00) = %d, want %d", got, 150_00)
	}
	if got := Abs(150_00); got != 150_00 {
		t.Errorf("Abs(150_00) = %d, want %d", got, 150_00)
	}
	if got := Abs(0); got != 0 {
		t.Errorf("Abs(0) = %d, want 0", got)
	}
}
