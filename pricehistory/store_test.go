package pricehistory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/pricehistory"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

func testStore(t *testing.T, maxItems, perItem int) *pricehistory.Store {
	t.Helper()
	cfg := pricehistory.NewDefaultConfig()
	cfg.MaxItems = maxItems
	cfg.PointsPerItem = perItem
	s, err := pricehistory.New(logging.NewTestLogger(), cfg)
	require.NoError(t, err)
	return s
}

func trade(item uint32, qty, price uint64, ts int64) *types.Trade {
	return &types.Trade{ItemType: item, Quantity: qty, Price: price, Timestamp: ts}
}

func TestPriceHistory_statsAreQuantityWeighted(t *testing.T) {
	s := testStore(t, 16, 8)

	s.Record(trade(42, 10, 8, 1))
	s.Record(trade(42, 30, 12, 2))

	st, ok := s.ItemStats(42)
	require.True(t, ok)
	assert.Equal(t, 2, st.Trades)
	assert.Equal(t, uint64(40), st.Quantity)
	assert.Equal(t, uint64(8), st.MinPrice)
	assert.Equal(t, uint64(12), st.MaxPrice)
	// (10*8 + 30*12) / 40 = 11
	assert.Equal(t, uint64(11), st.AvgPrice)
}

func TestPriceHistory_unknownItem(t *testing.T) {
	s := testStore(t, 16, 8)
	_, ok := s.ItemStats(99)
	assert.False(t, ok)
}

func TestPriceHistory_windowKeepsNewestPoints(t *testing.T) {
	s := testStore(t, 16, 3)
	for i := 1; i <= 5; i++ {
		s.Record(trade(7, 1, uint64(i), int64(i)))
	}

	st, ok := s.ItemStats(7)
	require.True(t, ok)
	assert.Equal(t, 3, st.Trades)
	// points 1 and 2 fell off the window
	assert.Equal(t, uint64(3), st.MinPrice)
	assert.Equal(t, uint64(5), st.MaxPrice)
}

func TestPriceHistory_coldItemsAgeOut(t *testing.T) {
	s := testStore(t, 2, 8)
	s.Record(trade(1, 1, 10, 1))
	s.Record(trade(2, 1, 10, 2))
	s.Record(trade(3, 1, 10, 3))

	_, ok := s.ItemStats(1)
	assert.False(t, ok, "oldest item should have been evicted")
	_, ok = s.ItemStats(3)
	assert.True(t, ok)
}

func TestPriceHistory_dumpRestoreRoundTrip(t *testing.T) {
	s := testStore(t, 16, 8)
	s.Record(trade(42, 10, 8, 1))
	s.Record(trade(42, 30, 12, 2))
	s.Record(trade(7, 5, 100, 3))

	dump := s.Dump()
	require.Len(t, dump, 2)

	restored := testStore(t, 16, 8)
	restored.Restore(dump)

	for _, item := range []uint32{42, 7} {
		want, ok := s.ItemStats(item)
		require.True(t, ok)
		got, ok := restored.ItemStats(item)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestPriceHistory_restoreTrimsOversizedWindows(t *testing.T) {
	pts := make([]pricehistory.Point, 10)
	for i := range pts {
		pts[i] = pricehistory.Point{Price: uint64(i + 1), Quantity: 1, Timestamp: int64(i)}
	}

	s := testStore(t, 16, 4)
	s.Restore(map[uint32][]pricehistory.Point{42: pts})

	st, ok := s.ItemStats(42)
	require.True(t, ok)
	assert.Equal(t, 4, st.Trades)
	assert.Equal(t, uint64(7), st.MinPrice)
	assert.Equal(t, uint64(10), st.MaxPrice)
}
