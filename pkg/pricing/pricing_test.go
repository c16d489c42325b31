package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGrossFromNet(t *testing.T) {
	tests := []struct {
		name string
		net  string
		want string
	}{
		{"Standard 15 Percent", "10.00", "11.50"},
		{"Commission Floor", "0.10", "0.12"},
		{"Price Floor", "0.01", "0.03"},
		{"Below Minimum Net", "0.005", "0"},
		{"Zero", "0", "0"},
		{"Large", "1000.00", "1150.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrossFromNet(d(tt.net))
			if !got.Equal(d(tt.want)) {
				t.Errorf("GrossFromNet(%s) = %s, want %s", tt.net, got, tt.want)
			}
		})
	}
}

func TestNetFromGross(t *testing.T) {
	tests := []struct {
		name  string
		gross string
		want  string
	}{
		{"Commission Floor", "0.12", "0.10"},
		{"Minimum Net Clamp", "0.03", "0.01"},
		{"Below Price Floor", "0.02", "0"},
		{"Zero", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetFromGross(d(tt.gross))
			if !got.Equal(d(tt.want)) {
				t.Errorf("NetFromGross(%s) = %s, want %s", tt.gross, got, tt.want)
			}
		})
	}

	t.Run("Standard 15 Percent", func(t *testing.T) {
		got := NetFromGross(d("11.50")).Round(2)
		if !got.Equal(d("10.00")) {
			t.Errorf("NetFromGross(11.50) = %s, want 10.00", got)
		}
	})
}

// The derivation must survive a round trip: deriving gross from net and
// net back from that gross lands on the original value (to 2 decimals),
// except where a floor clamp was triggered.
func TestPriceInversionRoundTrip(t *testing.T) {
	for _, net := range []string{"0.01", "0.05", "0.10", "0.50", "1.00", "3.33", "10.00", "99.99", "250.00"} {
		t.Run(net, func(t *testing.T) {
			orig := d(net)
			gross := GrossFromNet(orig)
			back := NetFromGross(gross)

			clamped := gross.Equal(MinGross) || gross.Sub(orig).Equal(MinCommission)
			if clamped {
				// Clamped values must be stable under re-application.
				if !GrossFromNet(back).Equal(gross) && !NetFromGross(gross).Equal(back) {
					t.Errorf("clamped quote not idempotent: net=%s gross=%s back=%s", net, gross, back)
				}
				return
			}
			if !back.Round(2).Equal(orig.Round(2)) {
				t.Errorf("round trip failed: net=%s gross=%s back=%s", net, gross, back)
			}
		})
	}
}

func TestCents(t *testing.T) {
	if got := Cents(d("11.499")); got != 1150 {
		t.Errorf("Cents(11.499) = %d, want 1150", got)
	}
	if got := FromCents(1150); !got.Equal(d("11.50")) {
		t.Errorf("FromCents(1150) = %s, want 11.50", got)
	}
}

func TestQuoteResolve(t *testing.T) {
	tests := []struct {
		name      string
		q         Quote
		wantGross string
	}{
		{
			"Base Only",
			Quote{Base: d("1.00"), Percent: d("1")},
			"1.00",
		},
		{
			"Percent Discount",
			Quote{Base: d("1.00"), Percent: d("0.9")},
			"0.90",
		},
		{
			"Auto Buy Lifts Price",
			Quote{Base: d("1.00"), Percent: d("0.5"), AutoBuy: true, HighestBuy: d("0.80")},
			"0.80",
		},
		{
			"Minimum Floor Wins Over Percent",
			Quote{Base: d("0.05"), Percent: d("0.5"), Minimum: d("0.10")},
			"0.10",
		},
		{
			"Dont Sell Zeroes Last",
			Quote{Base: d("1.00"), Percent: d("1"), DontSell: d("2.00")},
			"0",
		},
		{
			"Default Minimum Is Gross Floor",
			Quote{Base: d("0.01"), Percent: d("1")},
			"0.03",
		},
		{
			"No Histogram",
			Quote{},
			"0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross, net := tt.q.Resolve()
			if !gross.Equal(d(tt.wantGross)) {
				t.Errorf("gross = %s, want %s", gross, tt.wantGross)
			}
			if gross.IsZero() && !net.IsZero() {
				t.Errorf("zero gross must imply zero net, got net=%s", net)
			}
		})
	}

	t.Run("Idempotent At Floor", func(t *testing.T) {
		q := Quote{Base: d("0.01"), Percent: d("1")}
		gross, _ := q.Resolve()
		again, _ := Quote{Base: gross, Percent: d("1")}.Resolve()
		if !again.Equal(gross) {
			t.Errorf("re-applied floor quote moved: %s -> %s", gross, again)
		}
	})
}
