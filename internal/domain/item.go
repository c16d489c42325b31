// Package domain holds the item, inventory and market data model.
// Everything here is plain data created fresh on each fetch; nothing
// talks to the network.
package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Kostya12rus/steam-work-example/pkg/safe"
)

// Key identifies a fungible item type. Two descriptions with equal
// classid+instanceid describe the same item and are merged.
type Key struct {
	ClassID    string
	InstanceID string
}

func (k Key) String() string {
	return k.ClassID + "_" + k.InstanceID
}

// ItemUnit is one concrete asset: a single unique item or one stack of a
// commodity item. Amount is 0 or more for stackables, normally 1 for
// unique items.
type ItemUnit struct {
	AssetID    string
	ClassID    string
	InstanceID string
	Amount     int64
	Pos        int
}

// Description is one free-text block attached to an item.
type Description struct {
	Type  string
	Value string
}

// Tag is one category tag attached to an item type.
type Tag struct {
	Category     string
	InternalName string
	CategoryName string
	Name         string
}

// ItemDescriptor is a fungible item type plus the units currently held.
// A descriptor owns its units: Take returns copies, Add and Remove edit
// the receiver only.
type ItemDescriptor struct {
	AppID      int
	ClassID    string
	InstanceID string

	Name           string
	MarketName     string
	MarketHashName string
	Type           string

	NameColor       string
	BackgroundColor string
	IconPath        string
	IconPathLarge   string

	Tradable   bool
	Marketable bool
	Commodity  bool

	TradableRestriction   int
	MarketableRestriction int

	Tags              []Tag
	Descriptions      []Description
	OwnerDescriptions []Description

	Units []*ItemUnit
}

// Key returns the merge key of this descriptor.
func (d *ItemDescriptor) Key() Key {
	return Key{ClassID: d.ClassID, InstanceID: d.InstanceID}
}

// Amount is the total number of units held across all stacks.
func (d *ItemDescriptor) Amount() int64 {
	var total int64
	for _, u := range d.Units {
		if u.Amount > 0 {
			total = safe.SafeAdd(total, u.Amount)
		}
	}
	return total
}

// Take returns a new descriptor holding up to amount units, draining
// stacks front to back. The receiver is not modified; the result holds
// copied units so later mutations cannot alias.
func (d *ItemDescriptor) Take(amount int64) *ItemDescriptor {
	out := d.cloneMeta()
	remaining := amount
	for _, u := range d.Units {
		if remaining <= 0 {
			break
		}
		if u.Amount <= 0 {
			continue
		}
		take := u.Amount
		if take > remaining {
			take = remaining
		}
		cp := *u
		cp.Amount = take
		out.Units = append(out.Units, &cp)
		remaining = safe.SafeSub(remaining, take)
	}
	return out
}

// Add merges another descriptor's units into the receiver, summing
// amounts for units with the same asset id and appending new ones.
// Descriptors of a different item type are ignored.
func (d *ItemDescriptor) Add(other *ItemDescriptor) {
	if other == nil || other.Key() != d.Key() {
		return
	}
	for _, u := range other.Units {
		if existing := d.unitByID(u.AssetID); existing != nil {
			existing.Amount = safe.SafeAdd(existing.Amount, u.Amount)
			continue
		}
		cp := *u
		d.Units = append(d.Units, &cp)
	}
}

// Remove decrements the receiver's units by the amounts held in other,
// matching by asset id. A unit never gives up more than it holds; units
// drained to zero stay in place with amount 0.
// Called only after the remote side confirmed consumption, so the local
// model never runs ahead of reality.
func (d *ItemDescriptor) Remove(other *ItemDescriptor) {
	if other == nil || other.Key() != d.Key() {
		return
	}
	for _, u := range other.Units {
		if existing := d.unitByID(u.AssetID); existing != nil {
			existing.Amount = safe.SubFloor(existing.Amount, u.Amount)
		}
	}
}

func (d *ItemDescriptor) unitByID(assetID string) *ItemUnit {
	for _, u := range d.Units {
		if u.AssetID == assetID {
			return u
		}
	}
	return nil
}

func (d *ItemDescriptor) cloneMeta() *ItemDescriptor {
	cp := *d
	cp.Units = nil
	return &cp
}

// IsTradable reports whether units can be sent in trade offers.
func (d *ItemDescriptor) IsTradable() bool { return d.Tradable }

// IsMarketable reports whether units can be listed on the market.
func (d *ItemDescriptor) IsMarketable() bool { return d.Marketable }

// Color returns the display color as a #-prefixed hex string, or "".
func (d *ItemDescriptor) Color() string {
	if d.NameColor == "" {
		return ""
	}
	return "#" + strings.TrimPrefix(d.NameColor, "#")
}

// MarketURL returns the public listing page for this item type, or ""
// when the item has no market presence.
func (d *ItemDescriptor) MarketURL() string {
	if d.MarketHashName == "" {
		return ""
	}
	return fmt.Sprintf("https://steamcommunity.com/market/listings/%d/%s",
		d.AppID, url.PathEscape(d.MarketHashName))
}

// IconURL returns the CDN image URL scaled to the given size, or "".
func (d *ItemDescriptor) IconURL(width, height int) string {
	if d.IconPath == "" {
		return ""
	}
	return fmt.Sprintf("https://community.akamai.steamstatic.com/economy/image/%s/%dx%d?allow_animated=1",
		d.IconPath, width, height)
}

var (
	epochDatePattern = regexp.MustCompile(`\[date\](\d+)\[/date\]`)
	textDatePattern  = regexp.MustCompile(`(\d{2})\s(\S+)\s(\d{4})\s\((\d{1,2}:\d{2}:\d{2})\)`)
)

// Month names as the platform localizes them; only the first three runes
// are significant.
var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
	"янв": time.January, "фев": time.February, "мар": time.March,
	"апр": time.April, "май": time.May, "июн": time.June,
	"июл": time.July, "авг": time.August, "сен": time.September,
	"окт": time.October, "ноя": time.November, "дек": time.December,
}

// MarketableAfter extracts the end of a marketability ban from the
// owner-only description blocks. The platform encodes it either as a
// [date]epoch[/date] marker or as a localized "DD Month YYYY (H:MM:SS)"
// string. Returns false when no date is present or parseable.
func (d *ItemDescriptor) MarketableAfter() (time.Time, bool) {
	for _, desc := range d.OwnerDescriptions {
		value := strings.TrimSpace(desc.Value)
		if value == "" {
			continue
		}

		if m := epochDatePattern.FindStringSubmatch(value); m != nil {
			epoch, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil {
				return time.Unix(epoch, 0).UTC(), true
			}
		}

		if m := textDatePattern.FindStringSubmatch(value); m != nil {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			monthKey := strings.ToLower(m[2])
			if n := []rune(monthKey); len(n) > 3 {
				monthKey = string(n[:3])
			}
			month, ok := monthNames[monthKey]
			if !ok {
				continue
			}
			clock, err := time.Parse("15:04:05", normalizeClock(m[4]))
			if err != nil {
				continue
			}
			return time.Date(year, month, day,
				clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// normalizeClock pads "H:MM:SS" to "HH:MM:SS".
func normalizeClock(s string) string {
	if len(s) == 7 {
		return "0" + s
	}
	return s
}
