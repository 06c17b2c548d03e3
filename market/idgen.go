package market

import "sync/atomic"

// idGen hands out monotonically increasing IDs, one counter per entity
// kind, shared across the registry's lifetime. Counters are persisted and
// restored exactly; they are never reset on reload, so an ID can never be
// reused for a different entity.
type idGen struct {
	offerSeq atomic.Uint64
	orderSeq atomic.Uint64
}

func (g *idGen) nextOfferID() uint64 {
	return g.offerSeq.Add(1)
}

func (g *idGen) nextOrderID() uint64 {
	return g.orderSeq.Add(1)
}

// snapshot returns the current counter values for persistence.
func (g *idGen) snapshot() (offers, orders uint64) {
	return g.offerSeq.Load(), g.orderSeq.Load()
}

// restore installs persisted counter values.
func (g *idGen) restore(offers, orders uint64) {
	g.offerSeq.Store(offers)
	g.orderSeq.Store(orders)
}
