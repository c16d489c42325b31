package domain

import (
	"testing"
	"time"
)

func stackDescriptor(units ...*ItemUnit) *ItemDescriptor {
	d := &ItemDescriptor{
		AppID:      3017120,
		ClassID:    "100",
		InstanceID: "0",
		Name:       "Ore",
		Commodity:  true,
		Tradable:   true,
		Marketable: true,
	}
	d.Units = units
	return d
}

func unit(id string, amount int64) *ItemUnit {
	return &ItemUnit{AssetID: id, ClassID: "100", InstanceID: "0", Amount: amount}
}

func TestDescriptor_Take(t *testing.T) {
	tests := []struct {
		name string
		take int64
		want int64
	}{
		{"Take Zero", 0, 0},
		{"Take Part Of First Stack", 2, 2},
		{"Take Across Stacks", 7, 7},
		{"Take Everything", 8, 8},
		{"Take More Than Held", 100, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := stackDescriptor(unit("id1", 3), unit("id2", 5))
			got := d.Take(tt.take)
			if got.Amount() != tt.want {
				t.Errorf("Take(%d).Amount() = %d, want %d", tt.take, got.Amount(), tt.want)
			}
			if d.Amount() != 8 {
				t.Errorf("Take mutated the source: amount = %d, want 8", d.Amount())
			}
		})
	}
}

func TestDescriptor_TakeDrainsFrontToBack(t *testing.T) {
	d := stackDescriptor(unit("id1", 3), unit("id2", 5))
	got := d.Take(7)

	if len(got.Units) != 2 {
		t.Fatalf("expected 2 units in taken set, got %d", len(got.Units))
	}
	if got.Units[0].AssetID != "id1" || got.Units[0].Amount != 3 {
		t.Errorf("first unit = %s:%d, want id1:3", got.Units[0].AssetID, got.Units[0].Amount)
	}
	if got.Units[1].AssetID != "id2" || got.Units[1].Amount != 4 {
		t.Errorf("second unit = %s:%d, want id2:4", got.Units[1].AssetID, got.Units[1].Amount)
	}
}

// Selling 7 from stacks [id1:3, id2:5] must fully consume id1 and take 4
// from id2, leaving id2 with 1.
func TestDescriptor_SellScenario(t *testing.T) {
	d := stackDescriptor(unit("id1", 3), unit("id2", 5))

	sold := d.Take(7)
	d.Remove(sold)

	if got := d.Amount(); got != 1 {
		t.Fatalf("remaining amount = %d, want 1", got)
	}
	if u := d.Units[0]; u.Amount != 0 {
		t.Errorf("id1 amount = %d, want 0", u.Amount)
	}
	if u := d.Units[1]; u.Amount != 1 {
		t.Errorf("id2 amount = %d, want 1", u.Amount)
	}
}

// Conservation: for any k, Take(k).Amount() == min(k, total) and after
// Remove(Take(k)) the source holds total - min(k, total).
func TestDescriptor_AmountConservation(t *testing.T) {
	const total = 11
	for k := int64(0); k <= 15; k++ {
		d := stackDescriptor(unit("a", 4), unit("b", 1), unit("c", 6))

		want := k
		if want > total {
			want = total
		}

		taken := d.Take(k)
		if got := taken.Amount(); got != want {
			t.Errorf("k=%d: taken = %d, want %d", k, got, want)
		}

		d.Remove(taken)
		if got := d.Amount(); got != total-want {
			t.Errorf("k=%d: remaining = %d, want %d", k, got, total-want)
		}
	}
}

func TestDescriptor_AddMergesByUnitID(t *testing.T) {
	d := stackDescriptor(unit("id1", 3))
	d.Add(stackDescriptor(unit("id1", 2), unit("id3", 4)))

	if got := d.Amount(); got != 9 {
		t.Errorf("amount = %d, want 9", got)
	}
	if len(d.Units) != 2 {
		t.Errorf("units = %d, want 2", len(d.Units))
	}
	if d.Units[0].Amount != 5 {
		t.Errorf("id1 amount = %d, want 5", d.Units[0].Amount)
	}
}

func TestDescriptor_AddRejectsOtherTypes(t *testing.T) {
	d := stackDescriptor(unit("id1", 3))
	other := &ItemDescriptor{ClassID: "999", InstanceID: "0",
		Units: []*ItemUnit{{AssetID: "x", Amount: 5}}}

	d.Add(other)
	d.Remove(other)

	if got := d.Amount(); got != 3 {
		t.Errorf("amount changed to %d after foreign add/remove", got)
	}
}

func TestDescriptor_RemoveNeverGoesNegative(t *testing.T) {
	d := stackDescriptor(unit("id1", 2))
	d.Remove(stackDescriptor(unit("id1", 10)))

	if got := d.Amount(); got != 0 {
		t.Errorf("amount = %d, want 0", got)
	}
}

func TestDescriptor_MarketableAfter(t *testing.T) {
	t.Run("Epoch Marker", func(t *testing.T) {
		d := stackDescriptor()
		d.OwnerDescriptions = []Description{
			{Value: "Cannot be listed until [date]1735689600[/date]"},
		}
		got, ok := d.MarketableAfter()
		if !ok {
			t.Fatal("expected a parsed date")
		}
		want := time.Unix(1735689600, 0).UTC()
		if !got.Equal(want) {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("Localized Text", func(t *testing.T) {
		d := stackDescriptor()
		d.OwnerDescriptions = []Description{
			{Value: "Запрет до 05 янв 2025 (9:30:00)"},
		}
		got, ok := d.MarketableAfter()
		if !ok {
			t.Fatal("expected a parsed date")
		}
		want := time.Date(2025, time.January, 5, 9, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("No Date", func(t *testing.T) {
		d := stackDescriptor()
		d.OwnerDescriptions = []Description{{Value: "plain text"}}
		if _, ok := d.MarketableAfter(); ok {
			t.Error("expected no date")
		}
	})
}

func TestDescriptor_URLs(t *testing.T) {
	d := stackDescriptor()
	d.MarketHashName = "Iron Ore"
	d.IconPath = "abc123"
	d.NameColor = "D2D2D2"

	if got := d.MarketURL(); got != "https://steamcommunity.com/market/listings/3017120/Iron%20Ore" {
		t.Errorf("MarketURL = %s", got)
	}
	if got := d.IconURL(64, 64); got != "https://community.akamai.steamstatic.com/economy/image/abc123/64x64?allow_animated=1" {
		t.Errorf("IconURL = %s", got)
	}
	if got := d.Color(); got != "#D2D2D2" {
		t.Errorf("Color = %s", got)
	}
}
