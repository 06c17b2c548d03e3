package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(logging.NewTestLogger(), NewDefaultConfig(), 10, 5)
}

func TestStore_lazyCreation(t *testing.T) {
	s := testStore(t)
	assert.Nil(t, s.Get(7))
	assert.Equal(t, 0, s.Len())

	acc := s.GetOrCreate(7)
	require.NotNil(t, acc)
	assert.Equal(t, uint64(7), acc.Owner)
	assert.Len(t, acc.SellSlots, 10)
	assert.Len(t, acc.BuySlots, 5)

	// same account on every subsequent touch
	assert.Same(t, acc, s.GetOrCreate(7))
	assert.Same(t, acc, s.Get(7))
	assert.Equal(t, 1, s.Len())
}

func TestAccount_slotBounds(t *testing.T) {
	acc := testStore(t).GetOrCreate(7)

	require.NoError(t, acc.SetSellSlot(0, 11))
	id, err := acc.SellSlot(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)

	_, err = acc.SellSlot(10)
	assert.Equal(t, types.ErrSlotOutOfRange, err)
	assert.Equal(t, types.ErrSlotOutOfRange, acc.SetSellSlot(-1, 1))
	assert.Equal(t, types.ErrSlotOutOfRange, acc.SetBuySlot(5, 1))

	require.NoError(t, acc.ClearSellSlot(0))
	id, err = acc.SellSlot(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
}

func TestAccount_firstFreeSlotPrefersEmptyThenTerminal(t *testing.T) {
	acc := testStore(t).GetOrCreate(7)
	live := map[uint64]bool{1: true, 2: false, 3: true}
	isLive := func(id uint64) bool { return live[id] }

	// slot 0 live, slot 1 terminal, slot 2 empty
	require.NoError(t, acc.SetSellSlot(0, 1))
	require.NoError(t, acc.SetSellSlot(1, 2))
	slot, err := acc.FirstFreeSellSlot(isLive)
	require.NoError(t, err)
	assert.Equal(t, 2, slot)

	// no empty slot left: the terminal one is reused
	for i := 2; i < 10; i++ {
		require.NoError(t, acc.SetSellSlot(i, 3))
	}
	slot, err = acc.FirstFreeSellSlot(isLive)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	// everything live: no slot at all
	require.NoError(t, acc.SetSellSlot(1, 1))
	_, err = acc.FirstFreeSellSlot(isLive)
	assert.Equal(t, types.ErrNoFreeSlot, err)
}

func TestAccount_escrowNeverGoesNegative(t *testing.T) {
	acc := testStore(t).GetOrCreate(7)

	acc.AddEscrow(600)
	assert.Equal(t, uint64(600), acc.CoinsInEscrow)

	require.NoError(t, acc.RemoveEscrow(100))
	assert.Equal(t, uint64(500), acc.CoinsInEscrow)

	// removing more than held is refused and leaves the balance alone
	assert.Equal(t, types.ErrEscrowUnderflow, acc.RemoveEscrow(501))
	assert.Equal(t, uint64(500), acc.CoinsInEscrow)

	require.NoError(t, acc.RemoveEscrow(500))
	assert.Equal(t, uint64(0), acc.CoinsInEscrow)
}

func TestAccount_collectionBoxMergesSameItem(t *testing.T) {
	acc := testStore(t).GetOrCreate(7)

	acc.AddToCollection(types.CollectionEntry{ItemType: 42, Quantity: 10, Source: types.SourceDelivery, CreatedAt: 1})
	acc.AddToCollection(types.CollectionEntry{ItemType: 43, Quantity: 5, Source: types.SourceDelivery, CreatedAt: 2})
	acc.AddToCollection(types.CollectionEntry{ItemType: 42, Quantity: 7, Source: types.SourceExpiredReturn, CreatedAt: 3})

	require.Len(t, acc.CollectionBox, 2)
	assert.Equal(t, uint64(17), acc.CollectionBox[0].Quantity)
	assert.Equal(t, uint32(42), acc.CollectionBox[0].ItemType)

	e, err := acc.RemoveFromCollection(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), e.Quantity)
	require.Len(t, acc.CollectionBox, 1)

	_, err = acc.RemoveFromCollection(5)
	assert.Equal(t, types.ErrSlotOutOfRange, err)
}

func TestAccount_reduceCollection(t *testing.T) {
	acc := testStore(t).GetOrCreate(7)
	acc.AddToCollection(types.CollectionEntry{ItemType: 42, Quantity: 10, Source: types.SourceDelivery})

	acc.ReduceCollection(42, 4)
	require.Len(t, acc.CollectionBox, 1)
	assert.Equal(t, uint64(6), acc.CollectionBox[0].Quantity)

	acc.ReduceCollection(42, 6)
	assert.Len(t, acc.CollectionBox, 0)
}

func TestAccount_notificationRing(t *testing.T) {
	acc := testStore(t).GetOrCreate(7)
	for i := 0; i < 25; i++ {
		acc.PushNotification(types.SaleNotification{OfferID: uint64(i + 1)}, 20)
	}
	require.Len(t, acc.Notifications, 20)
	// newest first
	assert.Equal(t, uint64(25), acc.Notifications[0].OfferID)
	assert.Equal(t, uint64(6), acc.Notifications[19].OfferID)

	acc.DropNotification()
	require.Len(t, acc.Notifications, 19)
	assert.Equal(t, uint64(24), acc.Notifications[0].OfferID)
}

func TestStore_restoreGrowsSlotArrays(t *testing.T) {
	s := testStore(t)
	acc := &Account{Owner: 9, SellSlots: make([]uint64, 4), BuySlots: make([]uint64, 2)}
	s.Restore(acc)
	got := s.Get(9)
	require.NotNil(t, got)
	assert.Len(t, got.SellSlots, 10)
	assert.Len(t, got.BuySlots, 5)
}
