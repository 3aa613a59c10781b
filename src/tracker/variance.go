package tracker

import (
	"strings"

	"crypto-tracker/src/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DailyVariance is (high-low)/low*100. It is 0 when either bound is missing
// or unparsable, or when low is zero.
func DailyVariance(t *models.MTicker) float64 {
	if t == nil {
		return 0
	}

	high, ok := parsePrice(t.High)
	if !ok {
		return 0
	}
	low, ok := parsePrice(t.Low)
	if !ok || low.IsZero() {
		return 0
	}

	v, _ := high.Sub(low).Div(low).Mul(hundred).Float64()
	return v
}

func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
