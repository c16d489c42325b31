package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Kostya12rus/steam-work-example/pkg/pricing"
	"github.com/shopspring/decimal"
)

// ListingAsset is the description snapshot embedded in a market search
// result or an own-listing record.
type ListingAsset struct {
	AppID          int    `json:"appid"`
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Name           string `json:"name"`
	NameColor      string `json:"name_color"`
	MarketName     string `json:"market_name"`
	MarketHashName string `json:"market_hash_name"`
	Tradable       int    `json:"tradable"`
	Marketable     int    `json:"marketable"`
	Commodity      int    `json:"commodity"`
	IconURL        string `json:"icon_url"`
}

// MarketListing is one row of the market search results.
type MarketListing struct {
	Name          string       `json:"name"`
	HashName      string       `json:"hash_name"`
	SellListings  int          `json:"sell_listings"`
	SellPrice     int64        `json:"sell_price"` // gross, in cents
	SellPriceText string       `json:"sell_price_text"`
	SalePriceText string       `json:"sale_price_text"`
	AppName       string       `json:"app_name"`
	AppIcon       string       `json:"app_icon"`
	Asset         ListingAsset `json:"asset_description"`
}

// IsEmpty reports a blank search row.
func (m *MarketListing) IsEmpty() bool {
	return m.HashName == ""
}

// IsBugItem flags rows whose top-level hash name disagrees with the
// embedded asset description; the platform occasionally serves these and
// they cannot be bought or priced reliably.
func (m *MarketListing) IsBugItem() bool {
	return m.HashName != m.Asset.MarketHashName
}

// ForApp reports whether the listing belongs to the given app.
func (m *MarketListing) ForApp(appID int) bool {
	return m.Asset.AppID == appID
}

// MarketURL returns the public listing page, or "".
func (m *MarketListing) MarketURL() string {
	if m.Asset.AppID == 0 || m.Asset.MarketHashName == "" {
		return ""
	}
	return fmt.Sprintf("https://steamcommunity.com/market/listings/%d/%s",
		m.Asset.AppID, url.PathEscape(m.Asset.MarketHashName))
}

// IconURL returns the CDN image for the listing, or "".
func (m *MarketListing) IconURL() string {
	if m.Asset.IconURL == "" {
		return ""
	}
	return fmt.Sprintf("https://community.akamai.steamstatic.com/economy/image/%s/330x192?allow_animated=1", m.Asset.IconURL)
}

// Color returns the display color as a #-prefixed hex string, or "".
func (m *MarketListing) Color() string {
	if m.Asset.NameColor == "" {
		return ""
	}
	return "#" + strings.TrimPrefix(m.Asset.NameColor, "#")
}

// SellerProceeds is what the seller receives at the current sell price.
func (m *MarketListing) SellerProceeds() decimal.Decimal {
	return pricing.NetFromGross(pricing.FromCents(m.SellPrice))
}

var currencyNumber = regexp.MustCompile(`\d{1,3}(?:\s?\d{3})*(?:[,.]\d+)?`)

// FormatPrice re-renders the localized price text with a new value,
// keeping whatever currency symbol and placement the platform used.
func (m *MarketListing) FormatPrice(cents int64) string {
	return currencyNumber.ReplaceAllString(m.SellPriceText, pricing.FromCents(cents).StringFixed(2))
}

// MultiplyPrice renders the price of count units in the localized format.
func (m *MarketListing) MultiplyPrice(count int64) string {
	return m.FormatPrice(m.SellPrice * count)
}
