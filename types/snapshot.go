package types

// Listing is one row of the read-only market snapshot handed to UI
// collaborators. It carries no references back into the registry.
type Listing struct {
	OfferID      uint64 `json:"offerId"`
	ItemType     uint32 `json:"itemType"`
	ItemName     string `json:"itemName"`
	Category     string `json:"category"`
	Quantity     uint64 `json:"quantity"`
	PricePerUnit uint64 `json:"pricePerUnit"`
	SellerName   string `json:"sellerName"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// SnapshotSort selects the ordering of a market snapshot page.
type SnapshotSort string

const (
	SortPriceAsc     SnapshotSort = "price_asc"
	SortPriceDesc    SnapshotSort = "price_desc"
	SortQuantityDesc SnapshotSort = "quantity_desc"
	SortExpiryAsc    SnapshotSort = "expiry_asc"
)

// SnapshotQuery filters and pages a market snapshot. Zero values mean
// "no filter" / first page with a default size.
type SnapshotQuery struct {
	NameSubstring string
	Category      string
	Sort          SnapshotSort
	Offset        int
	Limit         int
}

// SlotKind distinguishes the two slot arrays in a player snapshot.
type SlotKind string

const (
	SlotSell SlotKind = "sell"
	SlotBuy  SlotKind = "buy"
)

// SlotSummary is one row of the per-player offer/order snapshot.
type SlotSummary struct {
	Kind              SlotKind `json:"kind"`
	SlotIndex         int      `json:"slotIndex"`
	EntityID          uint64   `json:"entityId"`
	ItemType          uint32   `json:"itemType"`
	QuantityTotal     uint64   `json:"quantityTotal"`
	QuantityRemaining uint64   `json:"quantityRemaining"`
	PricePerUnit      uint64   `json:"pricePerUnit"`
	State             State    `json:"state"`
	Enabled           bool     `json:"enabled"`
	ExpiresAt         int64    `json:"expiresAt"`
}

// MarketStats are registry-wide aggregates, persisted with the registry.
type MarketStats struct {
	TradesSettled  uint64 `json:"tradesSettled"`
	CoinsTurnover  uint64 `json:"coinsTurnover"`
	TaxCollected   uint64 `json:"taxCollected"`
	FeesCollected  uint64 `json:"feesCollected"`
	OffersCreated  uint64 `json:"offersCreated"`
	OrdersCreated  uint64 `json:"ordersCreated"`
	EntitiesSwept  uint64 `json:"entitiesSwept"`
	ItemsExchanged uint64 `json:"itemsExchanged"`
}
