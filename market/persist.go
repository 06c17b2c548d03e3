package market

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/storage"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// Checkpoint captures the registry's full persistent state. Index
// structures (books, expiry tracking) are not part of it; they are always
// rebuilt from the entities on restore.
func (e *Engine) Checkpoint() *storage.RegistryState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := &storage.RegistryState{
		Stats:        e.stats,
		Accounts:     e.accounts.All(),
		PriceHistory: e.history.Dump(),
	}
	state.OfferSeq, state.OrderSeq = e.ids.snapshot()
	state.Offers = make([]*types.SellOffer, 0, len(e.offers))
	for _, offer := range e.offers {
		state.Offers = append(state.Offers, offer)
	}
	state.Orders = make([]*types.BuyOrder, 0, len(e.orders))
	for _, order := range e.orders {
		state.Orders = append(state.Orders, order)
	}
	return state
}

// Restore replaces the registry's state with a previously persisted one.
// The per-item books and the expiry index are reconstructed from the
// authoritative entity set, and every entity is re-linked to its owner's
// account slot; slot links found pointing elsewhere are treated as drift
// and overwritten.
func (e *Engine) Restore(state *storage.RegistryState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ids.restore(state.OfferSeq, state.OrderSeq)
	e.stats = state.Stats
	e.history.Restore(state.PriceHistory)

	e.offers = make(map[uint64]*types.SellOffer, len(state.Offers))
	e.orders = make(map[uint64]*types.BuyOrder, len(state.Orders))
	e.books.Range(func(k, v any) bool {
		e.books.Delete(k)
		return true
	})
	e.bookCount = 0
	e.expiring = newExpiringEntities()

	for _, acc := range state.Accounts {
		e.accounts.Restore(acc)
	}

	now := e.nowFn()
	for _, offer := range state.Offers {
		e.offers[offer.ID] = offer
		e.relinkSellSlot(offer)
		if offer.CanMatch(now) {
			e.book(offer.ItemType).AddOffer(offer.ID, offer.PricePerUnit, offer.CreatedAt)
		}
		if !offer.State.IsTerminal() {
			e.expiring.Insert(kindOffer, offer.ID, offer.ExpiresAt)
		}
	}
	for _, order := range state.Orders {
		e.orders[order.ID] = order
		e.relinkBuySlot(order)
		if order.CanMatch(now) {
			e.book(order.ItemType).AddOrder(order.ID, order.PricePerUnit, order.CreatedAt)
		}
		if !order.State.IsTerminal() {
			e.expiring.Insert(kindOrder, order.ID, order.ExpiresAt)
		}
	}
	e.log.Info("registry state restored",
		logging.Int("offers", len(e.offers)),
		logging.Int("orders", len(e.orders)),
		logging.Int("accounts", e.accounts.Len()),
	)
	return nil
}

// Save checkpoints the registry into the given store.
func (e *Engine) Save(store *storage.RegistryStore) error {
	return store.Save(e.Checkpoint())
}

// Load restores the registry from the given store.
func (e *Engine) Load(store *storage.RegistryStore) error {
	state, err := store.Load()
	if err != nil {
		return err
	}
	return e.Restore(state)
}

func (e *Engine) relinkSellSlot(offer *types.SellOffer) {
	if offer.State.IsTerminal() || offer.SlotIndex < 0 {
		return
	}
	acc := e.accounts.GetOrCreate(offer.Owner)
	cur, err := acc.SellSlot(offer.SlotIndex)
	if err != nil {
		e.log.Warn("restored offer references slot out of range",
			logging.Uint64("offer-id", offer.ID),
			logging.Int("slot", offer.SlotIndex),
		)
		return
	}
	if cur != 0 && cur != offer.ID {
		e.log.Warn("sell slot link drifted, re-linking from entity",
			logging.Uint64("owner", offer.Owner),
			logging.Int("slot", offer.SlotIndex),
			logging.Uint64("stored", cur),
			logging.Uint64("offer-id", offer.ID),
		)
	}
	acc.SetSellSlot(offer.SlotIndex, offer.ID)
}

func (e *Engine) relinkBuySlot(order *types.BuyOrder) {
	if order.State.IsTerminal() || order.IsEphemeral() || order.SlotIndex < 0 {
		return
	}
	acc := e.accounts.GetOrCreate(order.Owner)
	cur, err := acc.BuySlot(order.SlotIndex)
	if err != nil {
		e.log.Warn("restored order references slot out of range",
			logging.Uint64("order-id", order.ID),
			logging.Int("slot", order.SlotIndex),
		)
		return
	}
	if cur != 0 && cur != order.ID {
		e.log.Warn("buy slot link drifted, re-linking from entity",
			logging.Uint64("owner", order.Owner),
			logging.Int("slot", order.SlotIndex),
			logging.Uint64("stored", cur),
			logging.Uint64("order-id", order.ID),
		)
	}
	acc.SetBuySlot(order.SlotIndex, order.ID)
}
