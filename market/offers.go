package market

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/metrics"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// CreateSellOffer opens a fresh draft offer in the owner's first available
// sell-staging slot. The owner's account is created here on first touch.
func (e *Engine) CreateSellOffer(owner uint64, ownerName string) (*types.SellOffer, error) {
	if err := e.allowCreate(owner); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := e.accounts.GetOrCreate(owner)
	slot, err := acc.FirstFreeSellSlot(e.offerLive)
	if err != nil {
		e.log.Warn("no free sell slot",
			logging.Uint64("owner", owner),
		)
		return nil, err
	}
	offer := types.NewSellOffer(e.ids.nextOfferID(), owner, ownerName, slot, e.nowFn())
	e.offers[offer.ID] = offer
	acc.SetSellSlot(slot, offer.ID)
	e.stats.OffersCreated++
	metrics.OfferEvent("created")
	return offer, nil
}

// ConfigureSellOffer edits a draft offer. Validation failures leave the
// offer untouched.
func (e *Engine) ConfigureSellOffer(owner, offerID uint64, itemType uint32, quantity, pricePerUnit uint64, durationDays uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.ownedOffer(owner, offerID)
	if err != nil {
		return err
	}
	if _, ok := e.catalog.Resolve(itemType); !ok {
		e.log.Warn("configure against unknown item",
			logging.Uint64("offer-id", offerID),
			logging.Uint32("item-type", itemType),
		)
		return types.ErrUnknownItem
	}
	now := e.nowFn()
	oldExpiry := offer.ExpiresAt
	if err := offer.Configure(e.params, itemType, quantity, pricePerUnit, durationDays, now); err != nil {
		e.log.Warn("sell offer configuration rejected",
			logging.Uint64("offer-id", offerID),
			logging.Error(err),
		)
		return err
	}
	if oldExpiry > 0 {
		e.expiring.Remove(kindOffer, offerID, oldExpiry)
	}
	e.expiring.Insert(kindOffer, offerID, offer.ExpiresAt)
	return nil
}

// EnableSellOffer lists a configured draft on its item's book and runs
// matching against resting buy orders. Returns the trades the arrival
// produced, best-priced resting order first.
func (e *Engine) EnableSellOffer(owner, offerID uint64) ([]*types.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.ownedOffer(owner, offerID)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	if err := offer.Enable(now); err != nil {
		e.log.Warn("sell offer enable rejected",
			logging.Uint64("offer-id", offerID),
			logging.Error(err),
		)
		return nil, err
	}
	b := e.book(offer.ItemType)
	b.AddOffer(offer.ID, offer.PricePerUnit, offer.CreatedAt)
	metrics.OfferEvent("enabled")
	return e.matchSellArrival(offer, now), nil
}

// DisableSellOffer delists an offer back to draft and hands the staged
// units back to the owner, mirroring the escrow release on the buy side.
// The checkbox-unchecked path; re-enabling stages the units again.
func (e *Engine) DisableSellOffer(owner, offerID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.ownedOffer(owner, offerID)
	if err != nil {
		return err
	}
	now := e.nowFn()
	if err := offer.Disable(now); err != nil {
		e.log.Warn("sell offer disable rejected",
			logging.Uint64("offer-id", offerID),
			logging.Error(err),
		)
		return err
	}
	if b := e.peekBook(offer.ItemType); b != nil {
		b.RemoveOffer(offer.ID, offer.PricePerUnit)
		e.dropBookIfEmpty(offer.ItemType)
	}
	acc := e.accounts.GetOrCreate(owner)
	e.returnItems(acc, offer.ItemType, offer.QuantityRemaining, types.SourceCancelReturn, now)
	metrics.OfferEvent("disabled")
	return nil
}

// CancelSellOffer withdraws an offer for good. Idempotent: cancelling an
// already terminal offer changes nothing. Remaining units of a listed
// offer go back to the owner.
func (e *Engine) CancelSellOffer(owner, offerID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.ownedOffer(owner, offerID)
	if err != nil {
		return err
	}
	if offer.State.IsTerminal() {
		return nil
	}
	now := e.nowFn()
	wasListed := offer.IsActive()
	offer.Cancel(now)
	if b := e.peekBook(offer.ItemType); b != nil {
		b.RemoveOffer(offer.ID, offer.PricePerUnit)
		e.dropBookIfEmpty(offer.ItemType)
	}
	if offer.ExpiresAt > 0 {
		e.expiring.Remove(kindOffer, offer.ID, offer.ExpiresAt)
	}
	if wasListed {
		acc := e.accounts.GetOrCreate(owner)
		e.returnItems(acc, offer.ItemType, offer.QuantityRemaining, types.SourceCancelReturn, now)
	}
	metrics.OfferEvent("cancelled")
	return nil
}

// Offer returns an offer by ID for read-only use.
func (e *Engine) Offer(offerID uint64) (*types.SellOffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	offer, ok := e.offers[offerID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return offer, nil
}

// ownedOffer resolves an offer and checks ownership. Callers hold e.mu.
func (e *Engine) ownedOffer(owner, offerID uint64) (*types.SellOffer, error) {
	offer, ok := e.offers[offerID]
	if !ok || offer.Owner != owner {
		return nil, types.ErrNotFound
	}
	return offer, nil
}
