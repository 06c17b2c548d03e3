package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyralisxc/Medieval-Sim-sub001/accounts"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/pricehistory"
	"github.com/pyralisxc/Medieval-Sim-sub001/storage"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

func openStore(t *testing.T, dir string) *storage.RegistryStore {
	t.Helper()
	require.NoError(t, storage.InitStoreDirectory(dir))
	s, err := storage.NewRegistryStore(logging.NewTestLogger(), storage.NewDefaultConfig(dir))
	require.NoError(t, err)
	return s
}

func sampleState() *storage.RegistryState {
	offer := &types.SellOffer{
		ID: 3, Owner: 7, OwnerName: "Aldred", SlotIndex: 2,
		ItemType: 42, QuantityTotal: 100, QuantityRemaining: 40,
		PricePerUnit: 10, Enabled: true, State: types.StatePartial,
		CreatedAt: 1000, UpdatedAt: 2000, ExpiresAt: 9000, DurationDays: 3,
		TradeCount: 1, Proceeds: 564,
	}
	order := &types.BuyOrder{
		ID: 5, Owner: 9, SlotIndex: 0,
		ItemType: 42, QuantityTotal: 20, QuantityRemaining: 20,
		PricePerUnit: 12, Enabled: true, State: types.StateActive,
		CreatedAt: 1500, UpdatedAt: 1500, ExpiresAt: 9500, DurationDays: 3,
	}
	acc := &accounts.Account{
		Owner:         9,
		SellSlots:     make([]uint64, 10),
		BuySlots:      []uint64{5, 0, 0, 0, 0},
		CoinsInEscrow: 240,
		CollectionBox: []types.CollectionEntry{
			{ItemType: types.CoinsItem, Quantity: 50, Source: types.SourceSaleProceeds, CreatedAt: 1800},
		},
	}
	return &storage.RegistryState{
		OfferSeq: 3,
		OrderSeq: 5,
		Stats:    types.MarketStats{TradesSettled: 1, CoinsTurnover: 600, TaxCollected: 30, FeesCollected: 6, ItemsExchanged: 60},
		Accounts: []*accounts.Account{acc},
		Offers:   []*types.SellOffer{offer},
		Orders:   []*types.BuyOrder{order},
		PriceHistory: map[uint32][]pricehistory.Point{
			42: {{Price: 10, Quantity: 60, Timestamp: 1800}},
		},
	}
}

func TestRegistryStore_saveLoadRoundTrip(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	want := sampleState()
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, want.OfferSeq, got.OfferSeq)
	assert.Equal(t, want.OrderSeq, got.OrderSeq)
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.PriceHistory, got.PriceHistory)

	require.Len(t, got.Accounts, 1)
	assert.Equal(t, want.Accounts[0], got.Accounts[0])
	require.Len(t, got.Offers, 1)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, uint64(40), got.Offers[0].QuantityRemaining)
	assert.Equal(t, types.StatePartial, got.Offers[0].State)
	assert.Equal(t, "Aldred", got.Offers[0].OwnerName)
	assert.Equal(t, uint64(12), got.Orders[0].PricePerUnit)
}

func TestRegistryStore_loadEmpty(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	got, err := s.Load()
	require.NoError(t, err)
	assert.Zero(t, got.OfferSeq)
	assert.Empty(t, got.Accounts)
	assert.Empty(t, got.Offers)
	assert.Empty(t, got.Orders)
	assert.NotNil(t, got.PriceHistory)
}

func TestRegistryStore_saveReplacesPreviousState(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	require.NoError(t, s.Save(sampleState()))

	// a later, smaller checkpoint must not leave stale entities behind
	next := sampleState()
	next.Orders = nil
	next.OfferSeq = 8
	require.NoError(t, s.Save(next))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), got.OfferSeq)
	assert.Len(t, got.Offers, 1)
	assert.Empty(t, got.Orders)
}

func TestRegistryStore_stateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.Save(sampleState()))
	require.NoError(t, s.Close())

	s = openStore(t, dir)
	defer s.Close()
	got, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, got.Offers, 1)
	assert.Len(t, got.Accounts, 1)
}
