package storage

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

func TestRegistryStore_interruptedSaveKeepsPreviousState(t *testing.T) {
	s, err := NewRegistryStore(logging.NewTestLogger(), NewDefaultConfig(t.TempDir()))
	require.NoError(t, err)
	defer s.Close()

	first := &RegistryState{
		OfferSeq: 3,
		Offers: []*types.SellOffer{
			{ID: 3, Owner: 7, ItemType: 42, QuantityTotal: 100, QuantityRemaining: 40, PricePerUnit: 10, State: types.StatePartial},
		},
	}
	require.NoError(t, s.Save(first))

	// simulate a save that died after writing records but before the
	// pointer flip: records exist under the next generation, pointer
	// still names the previous one
	orphan, err := json.Marshal(&types.SellOffer{ID: 99, Owner: 8, ItemType: 42, QuantityTotal: 5, QuantityRemaining: 5, PricePerUnit: 1, State: types.StateActive})
	require.NoError(t, err)
	key := []byte(genPrefix(2) + fmt.Sprintf("%s%020d", prefixOffer, 99))
	require.NoError(t, s.badger.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, orphan)
	}))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.OfferSeq)
	require.Len(t, got.Offers, 1)
	assert.Equal(t, uint64(3), got.Offers[0].ID)

	// the next complete save supersedes the interrupted one; its orphan
	// records never surface
	require.NoError(t, s.Save(first))
	got, err = s.Load()
	require.NoError(t, err)
	require.Len(t, got.Offers, 1)
	assert.Equal(t, uint64(3), got.Offers[0].ID)
}
