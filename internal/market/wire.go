// Package market implements the community market operations: search,
// histograms, selling, listing management, trade offers and stack
// combining.
package market

import (
	"strconv"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
)

// PriceOverview is the aggregate price summary for one item type.
type PriceOverview struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

type searchResponse struct {
	Success    bool                   `json:"success"`
	Start      int                    `json:"start"`
	PageSize   int                    `json:"pagesize"`
	TotalCount int                    `json:"total_count"`
	Results    []domain.MarketListing `json:"results"`
}

// SellResult is the sellitem response. A confirmation flag means the
// listing is created but held until the seller approves it.
type SellResult struct {
	Success                 bool   `json:"success"`
	Message                 string `json:"message"`
	RequiresConfirmation    int    `json:"requires_confirmation"`
	NeedsMobileConfirmation bool   `json:"needs_mobile_confirmation"`
	NeedsEmailConfirmation  bool   `json:"needs_email_confirmation"`
	EmailDomain             string `json:"email_domain"`
}

type wireListingAsset struct {
	AppID          int    `json:"appid"`
	ContextID      string `json:"contextid"`
	ID             string `json:"id"`
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Amount         string `json:"amount"`
	Name           string `json:"name"`
	MarketName     string `json:"market_name"`
	MarketHashName string `json:"market_hash_name"`
}

type wireMyListing struct {
	ListingID     string           `json:"listingid"`
	TimeCreated   int64            `json:"time_created"`
	Price         int64            `json:"price"`
	Fee           int64            `json:"fee"`
	OriginalPrice int64            `json:"original_price"`
	Asset         wireListingAsset `json:"asset"`
}

func (l *wireMyListing) toDomain() domain.OwnListing {
	amount, err := strconv.ParseInt(l.Asset.Amount, 10, 64)
	if err != nil || amount < 0 {
		amount = 0
	}
	return domain.OwnListing{
		ListingID:     l.ListingID,
		BuyerPayCents: l.Price + l.Fee,
		ReceiveCents:  l.Price,
		AssetID:       l.Asset.ID,
		Amount:        amount,
		Asset: &domain.ItemDescriptor{
			AppID:          l.Asset.AppID,
			ClassID:        l.Asset.ClassID,
			InstanceID:     l.Asset.InstanceID,
			Name:           l.Asset.Name,
			MarketName:     l.Asset.MarketName,
			MarketHashName: l.Asset.MarketHashName,
		},
	}
}

type myListingsResponse struct {
	Success    bool            `json:"success"`
	PageSize   int             `json:"pagesize"`
	TotalCount int             `json:"total_count"`
	Start      int             `json:"start"`
	Listings   []wireMyListing `json:"listings"`
}

type myHistoryResponse struct {
	Success    bool                  `json:"success"`
	PageSize   int                   `json:"pagesize"`
	TotalCount int                   `json:"total_count"`
	Events     []domain.HistoryEvent `json:"events"`
}

type tradeOfferResponse struct {
	TradeOfferID string `json:"tradeofferid"`
	StrError     string `json:"strError"`
}

// TradeAsset is one asset attached to a trade offer side.
type TradeAsset struct {
	AppID     int    `json:"appid"`
	ContextID string `json:"contextid"`
	Amount    int64  `json:"amount"`
	AssetID   string `json:"assetid"`
}

// TradeSide is one party's half of a trade offer.
type TradeSide struct {
	Assets   []TradeAsset `json:"assets"`
	Currency []any        `json:"currency"`
	Ready    bool         `json:"ready"`
}

// TradeOffer is the json_tradeoffer payload of the send endpoint.
type TradeOffer struct {
	NewVersion bool      `json:"newversion"`
	Version    int       `json:"version"`
	Me         TradeSide `json:"me"`
	Them       TradeSide `json:"them"`
}

// NewTradeOffer builds an empty two-sided offer at the current version.
func NewTradeOffer() TradeOffer {
	return TradeOffer{
		NewVersion: true,
		Version:    4,
		Me:         TradeSide{Assets: []TradeAsset{}, Currency: []any{}},
		Them:       TradeSide{Assets: []TradeAsset{}, Currency: []any{}},
	}
}

// Give appends own assets to the offer.
func (o *TradeOffer) Give(assets ...TradeAsset) {
	o.Me.Assets = append(o.Me.Assets, assets...)
}

// Request appends partner assets to the offer.
func (o *TradeOffer) Request(assets ...TradeAsset) {
	o.Them.Assets = append(o.Them.Assets, assets...)
}

// IsEmpty reports whether neither side carries assets.
func (o *TradeOffer) IsEmpty() bool {
	return len(o.Me.Assets) == 0 && len(o.Them.Assets) == 0
}
