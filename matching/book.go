package matching

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
)

// Book is the per-item-type order book: the set of active sell offer IDs
// and active buy order IDs for one item, organised for price-time priority
// queries. A book holds IDs only; the registry's entity maps stay
// authoritative, and every candidate the book returns is re-checked there
// before it is allowed to trade.
type Book struct {
	log      *logging.Logger
	itemType uint32

	sells *bookSide
	buys  *bookSide
}

// NewBook creates the book for one item type. Books are created on first
// reference and discarded by the registry once both sides are empty.
func NewBook(log *logging.Logger, cfg Config, itemType uint32) *Book {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Book{
		log:      log,
		itemType: itemType,
		sells:    newBookSide(SideSell),
		buys:     newBookSide(SideBuy),
	}
}

// ItemType returns the item this book indexes.
func (b *Book) ItemType() uint32 {
	return b.itemType
}

// AddOffer rests a sell offer on the book.
func (b *Book) AddOffer(id, price uint64, createdAt int64) {
	b.sells.add(id, price, createdAt)
}

// AddOrder rests a buy order on the book.
func (b *Book) AddOrder(id, price uint64, createdAt int64) {
	b.buys.add(id, price, createdAt)
}

// RemoveOffer takes a sell offer off the book. Idempotent: removing an ID
// that is not resting (already cleaned, or orphaned state drift) is a
// no-op, so cleanup paths can call it unconditionally.
func (b *Book) RemoveOffer(id, price uint64) {
	if !b.sells.remove(id, price) {
		b.sells.removeAnywhere(id)
	}
}

// RemoveOrder takes a buy order off the book, same semantics as RemoveOffer.
func (b *Book) RemoveOrder(id, price uint64) {
	if !b.buys.remove(id, price) {
		b.buys.removeAnywhere(id)
	}
}

// SellCandidates returns resting sell offers whose ask crosses the given
// buyer limit, in price then time priority.
func (b *Book) SellCandidates(buyerLimit uint64) []uint64 {
	return b.sells.crossing(buyerLimit)
}

// BuyCandidates returns resting buy orders whose bid crosses the given
// seller ask, in price then time priority.
func (b *Book) BuyCandidates(sellerAsk uint64) []uint64 {
	return b.buys.crossing(sellerAsk)
}

// BestAsk returns the lowest resting sell price, false on an empty side.
func (b *Book) BestAsk() (uint64, bool) {
	return b.sells.bestPrice()
}

// BestBid returns the highest resting buy price, false on an empty side.
func (b *Book) BestBid() (uint64, bool) {
	return b.buys.bestPrice()
}

// OfferIDs returns every resting sell offer ID, best price first.
func (b *Book) OfferIDs() []uint64 {
	return b.sells.all()
}

// OrderIDs returns every resting buy order ID, best price first.
func (b *Book) OrderIDs() []uint64 {
	return b.buys.all()
}

// Empty reports whether both sides hold nothing; the registry drops the
// book then.
func (b *Book) Empty() bool {
	return b.sells.len() == 0 && b.buys.len() == 0
}

// Resync removes every resting ID the authoritative entity map no longer
// confirms as matchable on that side. State drift leaves orphaned index
// entries; this self-heals them rather than letting a stale ID reach
// settlement.
func (b *Book) Resync(offerAlive, orderAlive func(id uint64) bool) int {
	removed := 0
	for _, id := range b.OfferIDs() {
		if !offerAlive(id) {
			b.sells.removeAnywhere(id)
			removed++
			b.log.Warn("removed orphaned sell offer from book index",
				logging.Uint64("offer-id", id),
				logging.Uint32("item-type", b.itemType),
			)
		}
	}
	for _, id := range b.OrderIDs() {
		if !orderAlive(id) {
			b.buys.removeAnywhere(id)
			removed++
			b.log.Warn("removed orphaned buy order from book index",
				logging.Uint64("order-id", id),
				logging.Uint32("item-type", b.itemType),
			)
		}
	}
	return removed
}
