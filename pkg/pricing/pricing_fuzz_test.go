package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

// FuzzGrossFromNet checks the derivation never panics and never produces
// a commission below the absolute floor for a listable net.
func FuzzGrossFromNet(f *testing.F) {
	f.Add(0.0)
	f.Add(0.01)
	f.Add(0.03)
	f.Add(1.23)
	f.Add(-5.0)
	f.Add(999999.99)

	f.Fuzz(func(t *testing.T, val float64) {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			t.Skip()
		}
		net := decimal.NewFromFloat(val)
		gross := GrossFromNet(net)
		if gross.IsZero() {
			return
		}
		if gross.Sub(net).LessThan(MinCommission) {
			t.Errorf("commission below floor: net=%s gross=%s", net, gross)
		}
		if gross.LessThan(MinGross) {
			t.Errorf("gross below price floor: %s", gross)
		}
	})
}

// FuzzNetFromGross checks the inverse never yields a payout above the
// buyer price.
func FuzzNetFromGross(f *testing.F) {
	f.Add(0.0)
	f.Add(0.03)
	f.Add(0.12)
	f.Add(11.50)
	f.Add(-1.0)

	f.Fuzz(func(t *testing.T, val float64) {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			t.Skip()
		}
		gross := decimal.NewFromFloat(val)
		net := NetFromGross(gross)
		if net.IsZero() {
			return
		}
		if net.GreaterThan(gross) {
			t.Errorf("net above gross: gross=%s net=%s", gross, net)
		}
	})
}
