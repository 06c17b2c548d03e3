package matching

import (
	"github.com/google/btree"
)

// Side identifies one half of a book.
type Side int

const (
	// SideSell holds resting sell offers, best price = lowest ask.
	SideSell Side = iota
	// SideBuy holds resting buy orders, best price = highest bid.
	SideBuy
)

// bookSide is one side of a per-item book: price levels on a btree, each
// level holding IDs in time priority.
type bookSide struct {
	side   Side
	levels *btree.BTree
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: btree.New(2),
	}
}

func (s *bookSide) getOrCreateLevel(price uint64) *PriceLevel {
	if item := s.levels.Get(&PriceLevel{price: price}); item != nil {
		return item.(*PriceLevel)
	}
	l := NewPriceLevel(price)
	s.levels.ReplaceOrInsert(l)
	return l
}

func (s *bookSide) add(id uint64, price uint64, createdAt int64) {
	s.getOrCreateLevel(price).add(id, createdAt)
}

// remove drops an ID from the level at the given price, pruning the level
// when it empties. Removing an absent ID is a no-op.
func (s *bookSide) remove(id uint64, price uint64) bool {
	item := s.levels.Get(&PriceLevel{price: price})
	if item == nil {
		return false
	}
	l := item.(*PriceLevel)
	removed := l.remove(id)
	if l.empty() {
		s.levels.Delete(l)
	}
	return removed
}

// removeAnywhere drops an ID wherever it rests. Used for orphan cleanup
// when the quoted price cannot be trusted any more.
func (s *bookSide) removeAnywhere(id uint64) bool {
	var hit *PriceLevel
	s.levels.Ascend(func(item btree.Item) bool {
		l := item.(*PriceLevel)
		if _, ok := l.lookup[id]; ok {
			hit = l
			return false
		}
		return true
	})
	if hit == nil {
		return false
	}
	hit.remove(id)
	if hit.empty() {
		s.levels.Delete(hit)
	}
	return true
}

// crossing walks price levels best-first and collects resting IDs, in
// price then time priority, whose quote crosses the given limit. For the
// sell side that is every ask <= limit, ascending; for the buy side every
// bid >= limit, descending.
func (s *bookSide) crossing(limit uint64) []uint64 {
	var out []uint64
	visit := func(item btree.Item) bool {
		l := item.(*PriceLevel)
		if s.side == SideSell && l.price > limit {
			return false
		}
		if s.side == SideBuy && l.price < limit {
			return false
		}
		out = append(out, l.ids()...)
		return true
	}
	if s.side == SideSell {
		s.levels.Ascend(visit)
	} else {
		s.levels.Descend(visit)
	}
	return out
}

// bestPrice returns the top-of-side quote, false on an empty side.
func (s *bookSide) bestPrice() (uint64, bool) {
	var best *PriceLevel
	pick := func(item btree.Item) bool {
		best = item.(*PriceLevel)
		return false
	}
	if s.side == SideSell {
		s.levels.Ascend(pick)
	} else {
		s.levels.Descend(pick)
	}
	if best == nil {
		return 0, false
	}
	return best.price, true
}

// all returns every resting ID on the side, best price first.
func (s *bookSide) all() []uint64 {
	return s.crossing(boundary(s.side))
}

func boundary(side Side) uint64 {
	if side == SideSell {
		return ^uint64(0)
	}
	return 0
}

func (s *bookSide) len() int {
	n := 0
	s.levels.Ascend(func(item btree.Item) bool {
		n += len(item.(*PriceLevel).entries)
		return true
	})
	return n
}
