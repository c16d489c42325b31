// Command pricetest prints the commission breakdown for a list of gross
// prices given on the command line, e.g.:
//
//	pricetest 0.62 1.00 12.49
//
// With no arguments it walks a fixed ladder of small prices where the
// commission floors dominate.
package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Kostya12rus/steam-work-example/pkg/pricing"
)

func main() {
	inputs := os.Args[1:]
	if len(inputs) == 0 {
		inputs = []string{"0.03", "0.05", "0.10", "0.23", "0.50", "1.00", "5.00", "25.00"}
	}

	fmt.Println("=== Commission breakdown (buyer pays / seller receives) ===")
	fmt.Printf("%-10s %-10s %-10s %-10s\n", "GROSS", "NET", "FEE", "ROUNDTRIP")

	for _, raw := range inputs {
		gross, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", raw, err)
			continue
		}

		net := pricing.NetFromGross(gross)
		fee := gross.Sub(net)

		// GrossFromNet(NetFromGross(g)) never exceeds g; the difference
		// shows where the floors clamp.
		roundtrip := pricing.GrossFromNet(net)

		fmt.Printf("%-10s %-10s %-10s %-10s\n",
			pricing.Round2(gross).StringFixed(2),
			pricing.Round2(net).StringFixed(2),
			pricing.Round2(fee).StringFixed(2),
			pricing.Round2(roundtrip).StringFixed(2))
	}

	fmt.Println()
	fmt.Println("=== Quote resolution sample ===")
	quote := pricing.Quote{
		Base:       decimal.RequireFromString("0.50"),
		Percent:    decimal.RequireFromString("0.95"),
		AutoBuy:    true,
		HighestBuy: decimal.RequireFromString("0.52"),
		Minimum:    decimal.RequireFromString("0.10"),
	}
	gross, net := quote.Resolve()
	fmt.Printf("base=%s percent=%s auto_buy=%s -> ask=%s payout=%s (%d cents)\n",
		quote.Base.StringFixed(2),
		quote.Percent.String(),
		quote.HighestBuy.StringFixed(2),
		pricing.Round2(gross).StringFixed(2),
		pricing.Round2(net).StringFixed(2),
		pricing.Cents(net))
}
