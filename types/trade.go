package types

// Trade is the settled exchange of one matched quantity between exactly two
// counterparties. Produced by settlement, consumed by the trade recorder
// collaborator and the price history store.
type Trade struct {
	ID       string `json:"id"`
	ItemType uint32 `json:"itemType"`

	OfferID uint64 `json:"offerId"`
	OrderID uint64 `json:"orderId"`
	Seller  uint64 `json:"seller"`
	Buyer   uint64 `json:"buyer"`

	Quantity uint64 `json:"quantity"`
	// Price is the maker-side quoted price the trade executed at.
	Price uint64 `json:"price"`

	Gross      uint64 `json:"gross"`
	SalesTax   uint64 `json:"salesTax"`
	ListingFee uint64 `json:"listingFee"`
	Net        uint64 `json:"net"`

	Timestamp int64 `json:"timestamp"`
}

// CollectionEntry is one row of a player's collection box: goods or coins
// that could not be delivered directly.
type CollectionEntry struct {
	ItemType  uint32           `json:"itemType"`
	Quantity  uint64           `json:"quantity"`
	Source    CollectionSource `json:"source"`
	CreatedAt int64            `json:"createdAt"`
}

// CoinsItem is the collection-box item type representing pending coins
// rather than goods.
const CoinsItem uint32 = 0

// CollectionSource tags where a collection-box entry came from.
type CollectionSource string

const (
	SourceSaleProceeds  CollectionSource = "sale_proceeds"
	SourceExpiredReturn CollectionSource = "expired_return"
	SourceCancelReturn  CollectionSource = "cancel_return"
	SourceDelivery      CollectionSource = "delivery_overflow"
)

// SaleNotification is one entry of the seller's bounded recent-sales ring.
type SaleNotification struct {
	OfferID   uint64 `json:"offerId"`
	ItemType  uint32 `json:"itemType"`
	Quantity  uint64 `json:"quantity"`
	Price     uint64 `json:"price"`
	Net       uint64 `json:"net"`
	Buyer     uint64 `json:"buyer"`
	Partial   bool   `json:"partial"`
	Timestamp int64  `json:"timestamp"`
}
