package pricehistory

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

const namedLogger = "pricehistory"

// Point is one settled sale of an item: price per unit, quantity and time.
type Point struct {
	Price     uint64 `json:"price"`
	Quantity  uint64 `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

// Stats summarise the retained window of sales for one item.
type Stats struct {
	Trades   int
	Quantity uint64
	MinPrice uint64
	MaxPrice uint64
	AvgPrice uint64
}

type history struct {
	points []Point
}

// Store keeps a rolling window of recent sale prices per item type. The
// number of resident items is bounded by an LRU, so a long-lived world
// with a huge catalog cannot grow this without limit; cold items age out.
type Store struct {
	log *logging.Logger

	mu      sync.Mutex
	items   *lru.Cache[uint32, *history]
	perItem int
}

// New builds the store. maxItems bounds resident item types, perItem the
// points retained per item.
func New(log *logging.Logger, cfg Config) (*Store, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	cache, err := lru.New[uint32, *history](cfg.MaxItems)
	if err != nil {
		return nil, err
	}
	return &Store{
		log:     log,
		items:   cache,
		perItem: cfg.PointsPerItem,
	}, nil
}

// Record appends one settled trade to its item's window.
func (s *Store) Record(t *types.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.items.Get(t.ItemType)
	if !ok {
		h = &history{}
		s.items.Add(t.ItemType, h)
	}
	h.points = append(h.points, Point{Price: t.Price, Quantity: t.Quantity, Timestamp: t.Timestamp})
	if len(h.points) > s.perItem {
		h.points = h.points[len(h.points)-s.perItem:]
	}
}

// ItemStats returns the summary for one item, false when nothing is retained.
func (s *Store) ItemStats(itemType uint32) (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.items.Peek(itemType)
	if !ok || len(h.points) == 0 {
		return Stats{}, false
	}
	st := Stats{MinPrice: h.points[0].Price}
	var weighted uint64
	for _, p := range h.points {
		st.Trades++
		st.Quantity += p.Quantity
		weighted += p.Price * p.Quantity
		if p.Price < st.MinPrice {
			st.MinPrice = p.Price
		}
		if p.Price > st.MaxPrice {
			st.MaxPrice = p.Price
		}
	}
	if st.Quantity > 0 {
		st.AvgPrice = weighted / st.Quantity
	}
	return st, true
}

// Dump exports every retained window for persistence.
func (s *Store) Dump() map[uint32][]Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint32][]Point, s.items.Len())
	for _, k := range s.items.Keys() {
		if h, ok := s.items.Peek(k); ok {
			pts := make([]Point, len(h.points))
			copy(pts, h.points)
			out[k] = pts
		}
	}
	return out
}

// Restore installs persisted windows, trimming each to the configured size.
func (s *Store) Restore(data map[uint32][]Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for item, pts := range data {
		if len(pts) > s.perItem {
			pts = pts[len(pts)-s.perItem:]
		}
		h := &history{points: make([]Point, len(pts))}
		copy(h.points, pts)
		s.items.Add(item, h)
	}
}
