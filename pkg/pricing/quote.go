package pricing

import (
	"github.com/shopspring/decimal"
)

// Quote resolves the ask price for one item from the live order book and
// the user's constraints.
//
// Constraint precedence when several apply at once:
//  1. the percent multiplier scales the base price,
//  2. the auto-buy clamp lifts it to the highest standing buy order,
//  3. the minimum-price floor lifts it again if still below,
//  4. the don't-sell threshold zeroes the result last.
//
// A single forward pass; each later rule only ever raises (or zeroes) the
// price, so re-applying a resolved quote is a no-op.
type Quote struct {
	// Base is the reference gross price, normally the lowest sell order.
	Base decimal.Decimal
	// Percent multiplies Base (1.0 = unchanged).
	Percent decimal.Decimal
	// AutoBuy lifts the price to HighestBuy when enabled.
	AutoBuy    bool
	HighestBuy decimal.Decimal
	// Minimum is the user's price floor; zero means MinGross.
	Minimum decimal.Decimal
	// DontSell zeroes the quote when the resolved price is not above it.
	DontSell decimal.Decimal
}

// Resolve returns the gross ask price and the matching seller payout.
// A zero gross means the item should not be listed.
func (q Quote) Resolve() (gross, net decimal.Decimal) {
	if q.Base.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	price := q.Base
	if !q.Percent.IsZero() {
		price = price.Mul(q.Percent)
	}
	if q.AutoBuy && q.HighestBuy.GreaterThan(price) {
		price = q.HighestBuy
	}
	minimum := q.Minimum
	if minimum.IsZero() {
		minimum = MinGross
	}
	if price.LessThan(minimum) {
		price = minimum
	}
	if !q.DontSell.IsZero() && !price.GreaterThan(q.DontSell) {
		return decimal.Zero, decimal.Zero
	}
	return price, NetFromGross(price)
}
