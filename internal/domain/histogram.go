package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// GraphPoint is one aggregated level of an order book graph.
// The wire form is a mixed array: [price, quantity, label].
type GraphPoint struct {
	Price    decimal.Decimal
	Quantity int64
	Label    string
}

// UnmarshalJSON decodes the [price, qty, label] wire triple.
func (p *GraphPoint) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("graph point has %d elements, want at least 2", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Price); err != nil {
		return fmt.Errorf("graph point price: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Quantity); err != nil {
		return fmt.Errorf("graph point quantity: %w", err)
	}
	if len(raw) > 2 {
		// Label is display-only; ignore decode errors.
		_ = json.Unmarshal(raw[2], &p.Label)
	}
	return nil
}

// OrderGraph is one side of the order book.
type OrderGraph []GraphPoint

// MaxPrice returns the highest price level, or zero for an empty side.
func (g OrderGraph) MaxPrice() decimal.Decimal {
	max := decimal.Zero
	for _, p := range g {
		if p.Price.GreaterThan(max) {
			max = p.Price
		}
	}
	return max
}

// MinPrice returns the lowest price level, or zero for an empty side.
func (g OrderGraph) MinPrice() decimal.Decimal {
	if len(g) == 0 {
		return decimal.Zero
	}
	min := g[0].Price
	for _, p := range g[1:] {
		if p.Price.LessThan(min) {
			min = p.Price
		}
	}
	return min
}

// OrderHistogram is the live buy/sell order book snapshot for one item
// type, as returned by the itemordershistogram endpoint.
type OrderHistogram struct {
	Success     int        `json:"success"`
	BuyOrders   OrderGraph `json:"buy_order_graph"`
	SellOrders  OrderGraph `json:"sell_order_graph"`
	PricePrefix string     `json:"price_prefix"`
	PriceSuffix string     `json:"price_suffix"`
}

// IsSuccessful reports whether the platform marked the snapshot valid.
func (h *OrderHistogram) IsSuccessful() bool {
	return h != nil && h.Success == 1
}

// HighestBuyOrder is the best standing buy price; selling at or below it
// fills instantly ("auto-buy").
func (h *OrderHistogram) HighestBuyOrder() decimal.Decimal {
	if h == nil {
		return decimal.Zero
	}
	return h.BuyOrders.MaxPrice()
}

// LowestSellOrder is the cheapest standing ask.
func (h *OrderHistogram) LowestSellOrder() decimal.Decimal {
	if h == nil {
		return decimal.Zero
	}
	return h.SellOrders.MinPrice()
}

// FormatPrice renders a price with the wallet's currency affixes.
func (h *OrderHistogram) FormatPrice(p decimal.Decimal) string {
	return h.PricePrefix + p.StringFixed(2) + h.PriceSuffix
}
