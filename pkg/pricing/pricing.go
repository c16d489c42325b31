// Package pricing implements the marketplace commission model: the buyer
// pays a gross price, the seller receives a net price, and the platform
// keeps a 15%-equivalent fee with an absolute minimum.
//
// All computation is done on decimal values; rounding to 2 places happens
// only at display/wire boundaries so chained derivations stay exact.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	// MinNet is the smallest net price a seller can receive.
	MinNet = decimal.RequireFromString("0.01")
	// MinGross is the price floor below which an order is clamped.
	MinGross = decimal.RequireFromString("0.03")
	// MinCommission is the absolute commission floor.
	MinCommission = decimal.RequireFromString("0.02")

	hundred    = decimal.NewFromInt(100)
	commission = decimal.NewFromInt(115)
)

// GrossFromNet computes the buyer-facing price for a desired seller
// payout. Nets below MinNet yield zero (nothing to list).
func GrossFromNet(net decimal.Decimal) decimal.Decimal {
	if net.LessThan(MinNet) {
		return decimal.Zero
	}
	gross := net.Div(hundred).Mul(commission)
	if gross.Sub(net).LessThan(MinCommission) {
		gross = net.Add(MinCommission)
	}
	if gross.LessThan(MinGross) {
		gross = MinGross
	}
	return gross
}

// NetFromGross computes the seller payout for a buyer-facing price.
// Grosses below MinGross yield zero.
func NetFromGross(gross decimal.Decimal) decimal.Decimal {
	if gross.LessThan(MinGross) {
		return decimal.Zero
	}
	net := gross.Div(commission).Mul(hundred)
	if gross.Sub(net).LessThan(MinCommission) {
		net = gross.Sub(MinCommission)
	}
	if net.LessThan(MinNet) {
		net = MinNet
	}
	return net
}

// Round2 rounds a price for display or wire use.
func Round2(p decimal.Decimal) decimal.Decimal {
	return p.Round(2)
}

// Cents converts a price to integer currency cents, rounding to 2 places
// first. The sell endpoint takes prices in cents.
func Cents(p decimal.Decimal) int64 {
	return p.Round(2).Mul(hundred).IntPart()
}

// FromCents converts wire cents back to a decimal price.
func FromCents(c int64) decimal.Decimal {
	return decimal.NewFromInt(c).Div(hundred)
}
