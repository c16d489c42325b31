package domain

// HistoryEventType discriminates market history events.
type HistoryEventType int

// Event types as encoded by the myhistory endpoint.
const (
	HistoryListingCreated   HistoryEventType = 1
	HistoryListingCancelled HistoryEventType = 2
	HistoryListingSold      HistoryEventType = 3
	HistoryPurchase         HistoryEventType = 4
)

func (t HistoryEventType) String() string {
	switch t {
	case HistoryListingCreated:
		return "created"
	case HistoryListingCancelled:
		return "cancelled"
	case HistoryListingSold:
		return "sold"
	case HistoryPurchase:
		return "purchased"
	default:
		return "unknown"
	}
}

// HistoryEvent is one past create/cancel/sell/buy record. Events link to
// their originating listing (and purchase, for completed sales) by id so
// a full listing lifecycle can be reconstructed.
type HistoryEvent struct {
	ListingID  string           `json:"listingid"`
	PurchaseID string           `json:"purchaseid"`
	EventType  HistoryEventType `json:"event_type"`
	TimeEvent  int64            `json:"time_event"`
	ActorID    string           `json:"steamid_actor"`
	DateEvent  string           `json:"date_event"`
}

// OwnListing is one active sell order of the authenticated account.
type OwnListing struct {
	ListingID string
	// Price the buyer pays, in cents.
	BuyerPayCents int64
	// Price the seller receives, in cents.
	ReceiveCents int64
	// Asset snapshot backing the listing.
	Asset *ItemDescriptor
	// Unit the listing consumes.
	AssetID string
	Amount  int64
}
