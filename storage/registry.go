package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/pyralisxc/Medieval-Sim-sub001/accounts"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/pricehistory"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// Key layout. Every record lives under a zero-padded generation prefix;
// the root pointer names the generation that is current. Entities are
// keyed by zero-padded ID so iteration order is stable; singletons live
// under meta keys.
const (
	keyGeneration   = "meta:generation"
	prefixGen       = "gen:"
	keyCounters     = "meta:counters"
	keyStats        = "meta:stats"
	keyPriceHistory = "meta:pricehistory"
	prefixAccount   = "account:"
	prefixOffer     = "offer:"
	prefixOrder     = "order:"
)

func genPrefix(gen uint64) string {
	return fmt.Sprintf("%s%020d:", prefixGen, gen)
}

// RegistryState is everything the registry persists: ID counters,
// aggregate statistics, every account, every offer and order, and the
// per-item price history. Index structures are deliberately absent; they
// are rebuilt from the entities on load and never trusted as stored data.
type RegistryState struct {
	OfferSeq uint64
	OrderSeq uint64

	Stats        types.MarketStats
	Accounts     []*accounts.Account
	Offers       []*types.SellOffer
	Orders       []*types.BuyOrder
	PriceHistory map[uint32][]pricehistory.Point
}

type counters struct {
	OfferSeq uint64 `json:"offerSeq"`
	OrderSeq uint64 `json:"orderSeq"`
}

// RegistryStore persists the full marketplace registry state in a badger
// database, one JSON record per entity.
type RegistryStore struct {
	log    *logging.Logger
	cfg    Config
	badger *badgerStore
}

// NewRegistryStore opens (creating if needed) the registry store at the
// configured directory.
func NewRegistryStore(log *logging.Logger, cfg Config) (*RegistryStore, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	if err := InitStoreDirectory(cfg.Dir); err != nil {
		return nil, errors.Wrap(err, "error on init badger database for registry storage")
	}
	bs, err := openBadger(cfg.Dir, cfg.SyncWrites, log)
	if err != nil {
		return nil, errors.Wrap(err, "error opening badger database for registry storage")
	}
	return &RegistryStore{
		log:    log,
		cfg:    cfg,
		badger: bs,
	}, nil
}

// Close releases the underlying database.
func (s *RegistryStore) Close() error {
	return s.badger.close()
}

// Save writes the complete state as a fresh generation, then flips the
// generation pointer and drops the superseded records. The previous state
// stays readable until the pointer flips, so a crash mid-save never loses
// it.
func (s *RegistryStore) Save(state *RegistryState) error {
	cur, err := s.currentGeneration()
	if err != nil {
		return errors.Wrap(err, "error reading registry generation")
	}
	// leftovers of an interrupted save must not bleed into the generation
	// about to be written
	s.dropStaleGenerations(cur)
	next := cur + 1
	pfx := genPrefix(next)

	wb := s.badger.db.NewWriteBatch()
	defer wb.Cancel()

	put := func(key string, v interface{}) error {
		buf, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "error marshalling %s", key)
		}
		return wb.Set([]byte(pfx+key), buf)
	}

	if err := put(keyCounters, counters{OfferSeq: state.OfferSeq, OrderSeq: state.OrderSeq}); err != nil {
		return err
	}
	if err := put(keyStats, state.Stats); err != nil {
		return err
	}
	if err := put(keyPriceHistory, state.PriceHistory); err != nil {
		return err
	}
	for _, acc := range state.Accounts {
		if err := put(fmt.Sprintf("%s%020d", prefixAccount, acc.Owner), acc); err != nil {
			return err
		}
	}
	for _, offer := range state.Offers {
		if err := put(fmt.Sprintf("%s%020d", prefixOffer, offer.ID), offer); err != nil {
			return err
		}
	}
	for _, order := range state.Orders {
		if err := put(fmt.Sprintf("%s%020d", prefixOrder, order.ID), order); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return errors.Wrap(err, "error flushing registry store")
	}

	// single-key commit; until this lands, Load still sees the previous
	// generation
	buf, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "error marshalling registry generation")
	}
	if err := s.badger.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyGeneration), buf)
	}); err != nil {
		return errors.Wrap(err, "error committing registry generation")
	}
	s.dropStaleGenerations(next)

	s.log.Info("registry state saved",
		logging.Uint64("generation", next),
		logging.Int("accounts", len(state.Accounts)),
		logging.Int("offers", len(state.Offers)),
		logging.Int("orders", len(state.Orders)),
	)
	return nil
}

// currentGeneration reads the generation pointer, zero when the store has
// never been saved.
func (s *RegistryStore) currentGeneration() (uint64, error) {
	var gen uint64
	found, err := s.badger.readKey([]byte(keyGeneration), func(val []byte) error {
		return json.Unmarshal(val, &gen)
	})
	if err != nil || !found {
		return 0, err
	}
	return gen, nil
}

// dropStaleGenerations removes every generation other than the current
// one, including leftovers from saves interrupted before their pointer
// flip. Failures only cost disk space, never state.
func (s *RegistryStore) dropStaleGenerations(current uint64) {
	keep := genPrefix(current)
	stale := map[string]struct{}{}
	_ = s.badger.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixGen)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix([]byte(prefixGen)); it.Next() {
			key := it.Item().Key()
			if len(key) < len(keep) {
				continue
			}
			if p := string(key[:len(keep)]); p != keep {
				stale[p] = struct{}{}
			}
		}
		return nil
	})
	for p := range stale {
		if err := s.badger.db.DropPrefix([]byte(p)); err != nil {
			s.log.Warn("could not drop stale registry generation",
				logging.String("prefix", p),
				logging.Error(err),
			)
		}
	}
}

// Load reads the complete stored state from the current generation. An
// empty database yields an empty state, not an error.
func (s *RegistryStore) Load() (*RegistryState, error) {
	state := &RegistryState{
		PriceHistory: map[uint32][]pricehistory.Point{},
	}

	gen, err := s.currentGeneration()
	if err != nil {
		return nil, errors.Wrap(err, "error reading registry generation")
	}
	if gen == 0 {
		return state, nil
	}
	pfx := genPrefix(gen)

	var c counters
	if found, err := s.badger.readKey([]byte(pfx+keyCounters), func(val []byte) error {
		return json.Unmarshal(val, &c)
	}); err != nil {
		return nil, errors.Wrap(err, "error loading registry counters")
	} else if found {
		state.OfferSeq, state.OrderSeq = c.OfferSeq, c.OrderSeq
	}

	if _, err := s.badger.readKey([]byte(pfx+keyStats), func(val []byte) error {
		return json.Unmarshal(val, &state.Stats)
	}); err != nil {
		return nil, errors.Wrap(err, "error loading registry stats")
	}
	if _, err := s.badger.readKey([]byte(pfx+keyPriceHistory), func(val []byte) error {
		return json.Unmarshal(val, &state.PriceHistory)
	}); err != nil {
		return nil, errors.Wrap(err, "error loading price history")
	}

	if err := s.badger.readPrefix([]byte(pfx+prefixAccount), func(val []byte) error {
		acc := &accounts.Account{}
		if err := json.Unmarshal(val, acc); err != nil {
			return err
		}
		state.Accounts = append(state.Accounts, acc)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "error loading accounts")
	}

	if err := s.badger.readPrefix([]byte(pfx+prefixOffer), func(val []byte) error {
		offer := &types.SellOffer{}
		if err := json.Unmarshal(val, offer); err != nil {
			return err
		}
		state.Offers = append(state.Offers, offer)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "error loading sell offers")
	}

	if err := s.badger.readPrefix([]byte(pfx+prefixOrder), func(val []byte) error {
		order := &types.BuyOrder{}
		if err := json.Unmarshal(val, order); err != nil {
			return err
		}
		state.Orders = append(state.Orders, order)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "error loading buy orders")
	}

	s.log.Info("registry state loaded",
		logging.Int("accounts", len(state.Accounts)),
		logging.Int("offers", len(state.Offers)),
		logging.Int("orders", len(state.Orders)),
	)
	return state, nil
}
