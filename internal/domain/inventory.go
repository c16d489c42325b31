package domain

import (
	"github.com/Kostya12rus/steam-work-example/pkg/safe"
)

// InventoryView is the merged inventory of one (steamid, appid, contextid)
// triple. Pages are merged in fetch order; merging is idempotent, so a
// continuation page applied twice changes nothing.
type InventoryView struct {
	SteamID   string
	AppID     int
	ContextID int64

	descriptors []*ItemDescriptor
	byKey       map[Key]*ItemDescriptor

	// seenUnits dedupes assets by id across overlapping pages.
	seenUnits map[string]bool

	// orphans are units whose description has not arrived yet; they are
	// attached as soon as a later page delivers it.
	orphans []*ItemUnit
}

// NewInventoryView creates an empty view for one inventory triple.
func NewInventoryView(steamID string, appID int, contextID int64) *InventoryView {
	return &InventoryView{
		SteamID:   steamID,
		AppID:     appID,
		ContextID: contextID,
		byKey:     make(map[Key]*ItemDescriptor),
		seenUnits: make(map[string]bool),
	}
}

// MergePage folds one fetched page into the view. Descriptions already
// known (by classid+instanceid) are dropped; assets already known (by
// asset id) are dropped; new assets are grouped under their description.
func (v *InventoryView) MergePage(descriptors []*ItemDescriptor, units []*ItemUnit) {
	for _, d := range descriptors {
		if d.ClassID == "" {
			continue
		}
		if _, ok := v.byKey[d.Key()]; ok {
			continue
		}
		owned := d.cloneMeta()
		owned.AppID = v.AppID
		v.byKey[owned.Key()] = owned
		v.descriptors = append(v.descriptors, owned)
	}

	for _, u := range units {
		if u.AssetID == "" || v.seenUnits[u.AssetID] {
			continue
		}
		v.seenUnits[u.AssetID] = true
		cp := *u
		v.attach(&cp)
	}

	// A page can deliver the description after its assets; retry the
	// ones still waiting.
	pending := v.orphans
	v.orphans = nil
	for _, u := range pending {
		v.attach(u)
	}
}

func (v *InventoryView) attach(u *ItemUnit) {
	d, ok := v.byKey[Key{ClassID: u.ClassID, InstanceID: u.InstanceID}]
	if !ok {
		v.orphans = append(v.orphans, u)
		return
	}
	d.Units = append(d.Units, u)
}

// Descriptors returns all merged item types in first-seen order.
func (v *InventoryView) Descriptors() []*ItemDescriptor {
	return v.descriptors
}

// Descriptor looks up one item type by key.
func (v *InventoryView) Descriptor(key Key) *ItemDescriptor {
	return v.byKey[key]
}

// TradableDescriptors returns only the item types that can be traded.
func (v *InventoryView) TradableDescriptors() []*ItemDescriptor {
	var out []*ItemDescriptor
	for _, d := range v.descriptors {
		if d.Tradable {
			out = append(out, d)
		}
	}
	return out
}

// TotalAmount sums unit amounts across descriptors, optionally counting
// tradable items only.
func (v *InventoryView) TotalAmount(onlyTradable bool) int64 {
	var total int64
	for _, d := range v.descriptors {
		if onlyTradable && !d.Tradable {
			continue
		}
		total = safe.SafeAdd(total, d.Amount())
	}
	return total
}
