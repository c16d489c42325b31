// Package inventory fetches and merges paginated inventories from the
// community site.
package inventory

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
)

// wireAsset is one asset record of the modern inventory endpoint.
type wireAsset struct {
	AppID      int    `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
	Pos        int    `json:"pos"`
}

// legacyAsset is one asset record of the partner inventory endpoint,
// which still serves the old rgInventory shape.
type legacyAsset struct {
	ID         string `json:"id"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
	Pos        int    `json:"pos"`
}

type wireText struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type wireTag struct {
	Category              string `json:"category"`
	InternalName          string `json:"internal_name"`
	LocalizedCategoryName string `json:"localized_category_name"`
	LocalizedTagName      string `json:"localized_tag_name"`
	CategoryName          string `json:"category_name"`
	Name                  string `json:"name"`
}

// wireDescription covers both endpoint generations; the legacy one uses
// category_name/name for tags where the modern one localizes them.
type wireDescription struct {
	AppID          int    `json:"appid"`
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Name           string `json:"name"`
	MarketName     string `json:"market_name"`
	MarketHashName string `json:"market_hash_name"`
	Type           string `json:"type"`

	IconURL         string `json:"icon_url"`
	IconURLLarge    string `json:"icon_url_large"`
	NameColor       string `json:"name_color"`
	BackgroundColor string `json:"background_color"`

	Tradable   int `json:"tradable"`
	Marketable int `json:"marketable"`
	Commodity  int `json:"commodity"`

	TradableRestriction   int `json:"market_tradable_restriction"`
	MarketableRestriction int `json:"market_marketable_restriction"`

	Descriptions      []wireText `json:"descriptions"`
	OwnerDescriptions []wireText `json:"owner_descriptions"`
	Tags              []wireTag  `json:"tags"`
}

func (d *wireDescription) toDomain() *domain.ItemDescriptor {
	out := &domain.ItemDescriptor{
		AppID:          d.AppID,
		ClassID:        d.ClassID,
		InstanceID:     d.InstanceID,
		Name:           d.Name,
		MarketName:     d.MarketName,
		MarketHashName: d.MarketHashName,
		Type:           d.Type,

		NameColor:       d.NameColor,
		BackgroundColor: d.BackgroundColor,
		IconPath:        d.IconURL,
		IconPathLarge:   d.IconURLLarge,

		Tradable:   d.Tradable == 1,
		Marketable: d.Marketable == 1,
		Commodity:  d.Commodity == 1,

		TradableRestriction:   d.TradableRestriction,
		MarketableRestriction: d.MarketableRestriction,
	}
	for _, t := range d.Descriptions {
		out.Descriptions = append(out.Descriptions, domain.Description{Type: t.Type, Value: t.Value})
	}
	for _, t := range d.OwnerDescriptions {
		out.OwnerDescriptions = append(out.OwnerDescriptions, domain.Description{Type: t.Type, Value: t.Value})
	}
	for _, t := range d.Tags {
		tag := domain.Tag{
			Category:     t.Category,
			InternalName: t.InternalName,
			CategoryName: t.LocalizedCategoryName,
			Name:         t.LocalizedTagName,
		}
		if tag.CategoryName == "" {
			tag.CategoryName = t.CategoryName
		}
		if tag.Name == "" {
			tag.Name = t.Name
		}
		out.Tags = append(out.Tags, tag)
	}
	return out
}

// selfResponse is a page of GET /inventory/{steamid}/{appid}/{contextid}.
type selfResponse struct {
	Assets       []wireAsset       `json:"assets"`
	Descriptions []wireDescription `json:"descriptions"`
	MoreItems    int               `json:"more_items"`
	LastAssetID  string            `json:"last_assetid"`
	TotalCount   int               `json:"total_inventory_count"`
	Success      int               `json:"success"`
}

// moreStart decodes the partner endpoint's more_start field, which is
// the literal false on the last page and a number otherwise.
type moreStart struct {
	Value int64
	OK    bool
}

func (m *moreStart) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null")) {
		m.OK = false
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	m.Value = v
	m.OK = true
	return nil
}

// partnerResponse is a page of GET /tradeoffer/new/partnerinventory/.
type partnerResponse struct {
	Success      bool                       `json:"success"`
	More         bool                       `json:"more"`
	MoreStart    moreStart                  `json:"more_start"`
	Inventory    map[string]legacyAsset     `json:"rgInventory"`
	Descriptions map[string]wireDescription `json:"rgDescriptions"`
}

func parseAmount(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func modernUnits(assets []wireAsset) []*domain.ItemUnit {
	out := make([]*domain.ItemUnit, 0, len(assets))
	for _, a := range assets {
		out = append(out, &domain.ItemUnit{
			AssetID:    a.AssetID,
			ClassID:    a.ClassID,
			InstanceID: a.InstanceID,
			Amount:     parseAmount(a.Amount),
			Pos:        a.Pos,
		})
	}
	return out
}

// legacyUnits flattens the rgInventory map, ordered by the pos field so
// merging stays deterministic.
func legacyUnits(inv map[string]legacyAsset) []*domain.ItemUnit {
	out := make([]*domain.ItemUnit, 0, len(inv))
	for _, a := range inv {
		out = append(out, &domain.ItemUnit{
			AssetID:    a.ID,
			ClassID:    a.ClassID,
			InstanceID: a.InstanceID,
			Amount:     parseAmount(a.Amount),
			Pos:        a.Pos,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

func toDescriptors(descs []wireDescription) []*domain.ItemDescriptor {
	out := make([]*domain.ItemDescriptor, 0, len(descs))
	for i := range descs {
		out = append(out, descs[i].toDomain())
	}
	return out
}

func legacyDescriptors(descs map[string]wireDescription) []*domain.ItemDescriptor {
	out := make([]*domain.ItemDescriptor, 0, len(descs))
	for key := range descs {
		d := descs[key]
		out = append(out, d.toDomain())
	}
	return out
}

func decodeSelf(data []byte) (*selfResponse, error) {
	var resp selfResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func decodePartner(data []byte) (*partnerResponse, error) {
	var resp partnerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
