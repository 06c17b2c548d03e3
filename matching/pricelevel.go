package matching

import (
	"sort"

	"github.com/google/btree"
)

// entry is one resting offer or order at a price level, kept in creation
// order for time priority.
type entry struct {
	id        uint64
	createdAt int64
}

// PriceLevel holds every resting entity quoted at one price. Entries stay
// sorted by creation time; the lookup table gives O(1) membership checks.
type PriceLevel struct {
	price   uint64
	entries []entry
	lookup  map[uint64]struct{}
}

func NewPriceLevel(price uint64) *PriceLevel {
	return &PriceLevel{
		price:  price,
		lookup: map[uint64]struct{}{},
	}
}

func (l *PriceLevel) Less(other btree.Item) bool {
	return l.price < other.(*PriceLevel).price
}

// add inserts in creation-time order. Live arrivals always append; inserts
// out of time order only happen when rebuilding a book from storage.
func (l *PriceLevel) add(id uint64, createdAt int64) {
	if _, ok := l.lookup[id]; ok {
		return
	}
	l.lookup[id] = struct{}{}
	if n := len(l.entries); n == 0 || l.entries[n-1].createdAt <= createdAt {
		l.entries = append(l.entries, entry{id: id, createdAt: createdAt})
		return
	}
	at := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].createdAt > createdAt
	})
	l.entries = append(l.entries, entry{})
	copy(l.entries[at+1:], l.entries[at:])
	l.entries[at] = entry{id: id, createdAt: createdAt}
}

// remove drops an ID from the level. Safe to call for an absent ID.
func (l *PriceLevel) remove(id uint64) bool {
	if _, ok := l.lookup[id]; !ok {
		return false
	}
	delete(l.lookup, id)
	for i := range l.entries {
		if l.entries[i].id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	return true
}

func (l *PriceLevel) empty() bool {
	return len(l.entries) == 0
}

func (l *PriceLevel) ids() []uint64 {
	out := make([]uint64, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.id
	}
	return out
}
