package types

import (
	"math"
	"sync"
	"time"
)

// SellOffer is a single sell-side trading intent: a quantity of one item
// type offered at a fixed price per unit. Identity fields never change
// after creation; lifecycle fields only change through the methods below.
type SellOffer struct {
	ID        uint64 `json:"id"`
	Owner     uint64 `json:"owner"`
	OwnerName string `json:"ownerName"`
	SlotIndex int    `json:"slotIndex"`

	ItemType          uint32 `json:"itemType"`
	QuantityTotal     uint64 `json:"quantityTotal"`
	QuantityRemaining uint64 `json:"quantityRemaining"`
	PricePerUnit      uint64 `json:"pricePerUnit"`

	Enabled bool  `json:"enabled"`
	State   State `json:"state"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
	ExpiresAt int64 `json:"expiresAt"`

	DurationDays uint32 `json:"durationDays"`

	// Cumulative net proceeds and number of fills over the offer's life.
	Proceeds   uint64 `json:"proceeds"`
	TradeCount uint64 `json:"tradeCount"`

	mu sync.Mutex
}

// NewSellOffer returns an unconfigured draft bound to an owner and slot.
func NewSellOffer(id, owner uint64, ownerName string, slot int, createdAt int64) *SellOffer {
	return &SellOffer{
		ID:        id,
		Owner:     owner,
		OwnerName: ownerName,
		SlotIndex: slot,
		State:     StateDraft,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Lock takes the offer's own exclusive section. Settlement holds it while
// applying a match so two matches can never hit one offer concurrently.
func (o *SellOffer) Lock() { o.mu.Lock() }

// Unlock releases the offer's exclusive section.
func (o *SellOffer) Unlock() { o.mu.Unlock() }

// Configure sets the tradeable fields. Legal only in draft.
func (o *SellOffer) Configure(p MarketParams, itemType uint32, quantity, pricePerUnit uint64, durationDays uint32, now int64) error {
	if o.State != StateDraft {
		return ErrInvalidState
	}
	if quantity == 0 {
		return ErrInvalidQuantity
	}
	if pricePerUnit < p.MinPricePerUnit || pricePerUnit > p.MaxPricePerUnit {
		return ErrInvalidPrice
	}
	if durationDays < p.MinDurationDays || durationDays > p.MaxDurationDays {
		return ErrInvalidDuration
	}
	if quantity > math.MaxUint64/pricePerUnit {
		return ErrInvalidQuantity
	}
	o.ItemType = itemType
	o.QuantityTotal = quantity
	o.QuantityRemaining = quantity
	o.PricePerUnit = pricePerUnit
	o.DurationDays = durationDays
	o.UpdatedAt = now
	o.ExpiresAt = now + int64(durationDays)*int64(24*time.Hour)
	return nil
}

// Enable lists the offer. Legal only from a configured draft.
func (o *SellOffer) Enable(now int64) error {
	if o.State != StateDraft {
		return ErrInvalidState
	}
	if o.QuantityRemaining == 0 || o.PricePerUnit == 0 {
		return ErrNotConfigured
	}
	o.Enabled = true
	o.State = StateActive
	o.UpdatedAt = now
	return nil
}

// Disable delists the offer back to draft, preserving remaining quantity.
// Legal only from active or partial.
func (o *SellOffer) Disable(now int64) error {
	if o.State != StateActive && o.State != StatePartial {
		return ErrInvalidState
	}
	o.Enabled = false
	o.State = StateDraft
	o.UpdatedAt = now
	return nil
}

// ReduceQuantity is called by settlement only. Transitions to completed on
// zero remaining, or partial on a partial fill from active.
func (o *SellOffer) ReduceQuantity(amount uint64, now int64) error {
	if amount == 0 || amount > o.QuantityRemaining {
		return ErrInvalidQuantity
	}
	o.QuantityRemaining -= amount
	o.UpdatedAt = now
	if o.QuantityRemaining == 0 {
		o.State = StateCompleted
		o.Enabled = false
	} else if o.State == StateActive {
		o.State = StatePartial
	}
	return nil
}

// RestoreQuantity undoes a ReduceQuantity during settlement rollback.
func (o *SellOffer) RestoreQuantity(amount uint64, prev State, enabled bool, now int64) {
	o.QuantityRemaining += amount
	o.State = prev
	o.Enabled = enabled
	o.UpdatedAt = now
}

// Cancel moves the offer to its cancelled terminal state. Idempotent on
// terminal states: an already completed/cancelled/expired offer is left
// untouched.
func (o *SellOffer) Cancel(now int64) {
	if o.State.IsTerminal() {
		return
	}
	o.Enabled = false
	o.State = StateCancelled
	o.UpdatedAt = now
}

// Expire moves the offer to its expired terminal state. Idempotent on
// terminal states.
func (o *SellOffer) Expire(now int64) {
	if o.State.IsTerminal() {
		return
	}
	o.Enabled = false
	o.State = StateExpired
	o.UpdatedAt = now
}

// IsActive reports whether the offer is live on the book.
func (o *SellOffer) IsActive() bool {
	return o.Enabled && (o.State == StateActive || o.State == StatePartial)
}

// CanMatch reports whether the offer can trade right now. Expiry is
// evaluated lazily here, ahead of the periodic sweep.
func (o *SellOffer) CanMatch(now int64) bool {
	if !o.IsActive() || o.QuantityRemaining == 0 {
		return false
	}
	return o.ExpiresAt == 0 || now < o.ExpiresAt
}

// CanMatchBuyOrder reports whether this offer and the given order cross:
// same item, the buyer's limit covers the ask, different owners, and both
// sides still matchable.
func (o *SellOffer) CanMatchBuyOrder(b *BuyOrder, now int64) bool {
	if b == nil || o.ItemType != b.ItemType || o.Owner == b.Owner {
		return false
	}
	if b.PricePerUnit < o.PricePerUnit {
		return false
	}
	return o.CanMatch(now) && b.CanMatch(now)
}

// RecordSale accumulates per-offer trade statistics.
func (o *SellOffer) RecordSale(netProceeds uint64) {
	o.Proceeds += netProceeds
	o.TradeCount++
}

// UnrecordSale reverses RecordSale during settlement rollback.
func (o *SellOffer) UnrecordSale(netProceeds uint64) {
	o.Proceeds -= netProceeds
	o.TradeCount--
}
