package types

import (
	"math"
	"sync"
	"time"
)

// EphemeralSlot marks a buy order created for an instant market purchase.
// Ephemeral orders never occupy an account slot and never rest on the book.
const EphemeralSlot = -1

// BuyOrder is a single buy-side trading intent: a quantity of one item type
// wanted at up to a maximum price per unit. Coins for the full remaining
// quantity at that price sit in the owner's escrow while the order is live.
type BuyOrder struct {
	ID        uint64 `json:"id"`
	Owner     uint64 `json:"owner"`
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

	// Number of fills over the order's life.
	TradeCount uint64 `json:"tradeCount"`

	mu sync.Mutex
}

// NewBuyOrder returns an unconfigured draft bound to an owner and slot.
// Pass EphemeralSlot for instant market purchases.
func NewBuyOrder(id, owner uint64, slot int, createdAt int64) *BuyOrder {
	return &BuyOrder{
		ID:        id,
		Owner:     owner,
		SlotIndex: slot,
		State:     StateDraft,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Lock takes the order's own exclusive section, see SellOffer.Lock.
func (b *BuyOrder) Lock() { b.mu.Lock() }

// Unlock releases the order's exclusive section.
func (b *BuyOrder) Unlock() { b.mu.Unlock() }

// IsEphemeral reports whether this order exists only for the duration of
// an instant purchase.
func (b *BuyOrder) IsEphemeral() bool {
	return b.SlotIndex == EphemeralSlot
}

// Configure sets the tradeable fields. Legal only in draft.
func (b *BuyOrder) Configure(p MarketParams, itemType uint32, quantity, pricePerUnit uint64, durationDays uint32, now int64) error {
	if b.State != StateDraft {
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
	b.ItemType = itemType
	b.QuantityTotal = quantity
	b.QuantityRemaining = quantity
	b.PricePerUnit = pricePerUnit
	b.DurationDays = durationDays
	b.UpdatedAt = now
	b.ExpiresAt = now + int64(durationDays)*int64(24*time.Hour)
	return nil
}

// Enable lists the order. Legal only from a configured draft. The caller
// escrows EscrowRequired coins before flipping this.
func (b *BuyOrder) Enable(now int64) error {
	if b.State != StateDraft {
		return ErrInvalidState
	}
	if b.QuantityRemaining == 0 || b.PricePerUnit == 0 {
		return ErrNotConfigured
	}
	b.Enabled = true
	b.State = StateActive
	b.UpdatedAt = now
	return nil
}

// Disable delists the order back to draft. The caller releases the escrow.
func (b *BuyOrder) Disable(now int64) error {
	if b.State != StateActive && b.State != StatePartial {
		return ErrInvalidState
	}
	b.Enabled = false
	b.State = StateDraft
	b.UpdatedAt = now
	return nil
}

// ReduceQuantity is called by settlement only.
func (b *BuyOrder) ReduceQuantity(amount uint64, now int64) error {
	if amount == 0 || amount > b.QuantityRemaining {
		return ErrInvalidQuantity
	}
	b.QuantityRemaining -= amount
	b.UpdatedAt = now
	if b.QuantityRemaining == 0 {
		b.State = StateCompleted
		b.Enabled = false
	} else if b.State == StateActive {
		b.State = StatePartial
	}
	return nil
}

// RestoreQuantity undoes a ReduceQuantity during settlement rollback.
func (b *BuyOrder) RestoreQuantity(amount uint64, prev State, enabled bool, now int64) {
	b.QuantityRemaining += amount
	b.State = prev
	b.Enabled = enabled
	b.UpdatedAt = now
}

// Cancel moves the order to its cancelled terminal state, idempotent on
// terminal states.
func (b *BuyOrder) Cancel(now int64) {
	if b.State.IsTerminal() {
		return
	}
	b.Enabled = false
	b.State = StateCancelled
	b.UpdatedAt = now
}

// Expire moves the order to its expired terminal state, idempotent on
// terminal states.
func (b *BuyOrder) Expire(now int64) {
	if b.State.IsTerminal() {
		return
	}
	b.Enabled = false
	b.State = StateExpired
	b.UpdatedAt = now
}

// IsActive reports whether the order is live on the book.
func (b *BuyOrder) IsActive() bool {
	return b.Enabled && (b.State == StateActive || b.State == StatePartial)
}

// CanMatch reports whether the order can trade right now.
func (b *BuyOrder) CanMatch(now int64) bool {
	if !b.IsActive() || b.QuantityRemaining == 0 {
		return false
	}
	return b.ExpiresAt == 0 || now < b.ExpiresAt
}

// EscrowRequired is the coin amount held against this order at its own
// limit price: quantityRemaining * pricePerUnit.
func (b *BuyOrder) EscrowRequired() uint64 {
	return b.QuantityRemaining * b.PricePerUnit
}

// RecordPurchase accumulates per-order trade statistics.
func (b *BuyOrder) RecordPurchase() {
	b.TradeCount++
}

// UnrecordPurchase reverses RecordPurchase during settlement rollback.
func (b *BuyOrder) UnrecordPurchase() {
	b.TradeCount--
}
