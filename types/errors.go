package types

import "errors"

var (
	// ErrInvalidState signals a lifecycle transition requested from a
	// state that does not allow it.
	ErrInvalidState = errors.New("invalid lifecycle state for operation")
	// ErrInvalidQuantity signals a zero or out-of-range quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidPrice signals a price of zero or outside the configured bounds.
	ErrInvalidPrice = errors.New("price out of bounds")
	// ErrInvalidDuration signals a listing duration outside the configured bounds.
	ErrInvalidDuration = errors.New("duration out of bounds")
	// ErrUnknownItem signals an item type the catalog could not resolve.
	ErrUnknownItem = errors.New("unknown item type")
	// ErrSelfTrade signals a settlement attempt between an offer and an
	// order with the same owner. Always rejected.
	ErrSelfTrade = errors.New("buyer and seller are the same player")
	// ErrNotConfigured signals enabling a draft that was never configured.
	ErrNotConfigured = errors.New("entity not configured")
	// ErrSlotOutOfRange signals a slot index outside the account's arrays.
	ErrSlotOutOfRange = errors.New("slot index out of range")
	// ErrSlotOccupied signals a create against a slot already linked to a
	// live entity.
	ErrSlotOccupied = errors.New("slot already occupied")
	// ErrNoFreeSlot signals that every slot is linked to a live entity.
	ErrNoFreeSlot = errors.New("no free slot")
	// ErrEscrowUnderflow signals a request to release more escrow than is
	// held. This is an upstream programming defect, never a user error.
	ErrEscrowUnderflow = errors.New("escrow underflow")
	// ErrInsufficientFunds signals the ledger refused a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoCapacity signals the inventory refused a delivery.
	ErrNoCapacity = errors.New("no inventory capacity")
	// ErrNotFound signals an entity ID missing from the authoritative map.
	ErrNotFound = errors.New("entity not found")
	// ErrRateLimited signals the rate limiter refused the action.
	ErrRateLimited = errors.New("action rate limited")
	// ErrNotMatchable signals a settlement candidate no longer able to trade.
	ErrNotMatchable = errors.New("entity is not matchable")
)
