package accounts

import (
	"sort"
	"sync"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
)

const namedLogger = "accounts"

// Store owns every player trading account of one game-world instance.
// Accounts come into existence on first touch through GetOrCreate and are
// never deleted.
type Store struct {
	log *logging.Logger

	mu        sync.RWMutex
	accounts  map[uint64]*Account
	sellSlots int
	buySlots  int
}

// NewStore builds an empty account store with the configured slot counts.
func NewStore(log *logging.Logger, cfg Config, sellSlots, buySlots int) *Store {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Store{
		log:       log,
		accounts:  map[uint64]*Account{},
		sellSlots: sellSlots,
		buySlots:  buySlots,
	}
}

// GetOrCreate returns the account for a player, creating it lazily on the
// player's first marketplace interaction.
func (s *Store) GetOrCreate(owner uint64) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[owner]
	if !ok {
		acc = newAccount(owner, s.sellSlots, s.buySlots)
		s.accounts[owner] = acc
		s.log.Debug("created trading account", logging.Uint64("owner", owner))
	}
	return acc
}

// Get returns an existing account, or nil if the player never touched the
// marketplace.
func (s *Store) Get(owner uint64) *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[owner]
}

// Restore installs a persisted account, replacing any in-memory one.
func (s *Store) Restore(acc *Account) {
	// stored slot arrays may predate a slot-count config change
	for len(acc.SellSlots) < s.sellSlots {
		acc.SellSlots = append(acc.SellSlots, 0)
	}
	for len(acc.BuySlots) < s.buySlots {
		acc.BuySlots = append(acc.BuySlots, 0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.Owner] = acc
}

// All returns every account in stable owner order, for persistence and
// invariant checks.
func (s *Store) All() []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
