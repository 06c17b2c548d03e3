package accounts

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// Preferences are the player's marketplace toggles.
type Preferences struct {
	// AutoDeposit routes proceeds and returns to the bank when possible,
	// instead of the collection box.
	AutoDeposit bool `json:"autoDeposit"`
	// NotifyOnPartial raises a sale notification on partial fills too.
	NotifyOnPartial bool `json:"notifyOnPartial"`
	PlaySound       bool `json:"playSound"`
}

// Account is one player's trading state: slot links to their offers and
// orders, coins held in escrow against active buy orders, the collection
// box, recent sale notifications and lifetime counters. Accounts are
// created lazily on first marketplace interaction and never deleted.
type Account struct {
	Owner uint64 `json:"owner"`

	// Slot arrays hold entity IDs, zero meaning empty. One slot links to
	// at most one entity and vice versa.
	SellSlots []uint64 `json:"sellSlots"`
	BuySlots  []uint64 `json:"buySlots"`

	// CoinsInEscrow must always equal the sum of quantityRemaining *
	// pricePerUnit over this player's active buy orders.
	CoinsInEscrow uint64 `json:"coinsInEscrow"`

	CollectionBox []types.CollectionEntry  `json:"collectionBox"`
	Notifications []types.SaleNotification `json:"notifications"`

	Preferences Preferences `json:"preferences"`

	SalesCount     uint64 `json:"salesCount"`
	PurchasesCount uint64 `json:"purchasesCount"`
	CoinsEarned    uint64 `json:"coinsEarned"`
	CoinsSpent     uint64 `json:"coinsSpent"`
}

func newAccount(owner uint64, sellSlots, buySlots int) *Account {
	return &Account{
		Owner:     owner,
		SellSlots: make([]uint64, sellSlots),
		BuySlots:  make([]uint64, buySlots),
	}
}

// SellSlot returns the offer ID linked to a sell slot, zero if empty.
func (a *Account) SellSlot(idx int) (uint64, error) {
	if idx < 0 || idx >= len(a.SellSlots) {
		return 0, types.ErrSlotOutOfRange
	}
	return a.SellSlots[idx], nil
}

// SetSellSlot links an offer ID into a sell slot.
func (a *Account) SetSellSlot(idx int, id uint64) error {
	if idx < 0 || idx >= len(a.SellSlots) {
		return types.ErrSlotOutOfRange
	}
	a.SellSlots[idx] = id
	return nil
}

// ClearSellSlot empties a sell slot.
func (a *Account) ClearSellSlot(idx int) error {
	return a.SetSellSlot(idx, 0)
}

// BuySlot returns the order ID linked to a buy slot, zero if empty.
func (a *Account) BuySlot(idx int) (uint64, error) {
	if idx < 0 || idx >= len(a.BuySlots) {
		return 0, types.ErrSlotOutOfRange
	}
	return a.BuySlots[idx], nil
}

// SetBuySlot links an order ID into a buy slot.
func (a *Account) SetBuySlot(idx int, id uint64) error {
	if idx < 0 || idx >= len(a.BuySlots) {
		return types.ErrSlotOutOfRange
	}
	a.BuySlots[idx] = id
	return nil
}

// ClearBuySlot empties a buy slot.
func (a *Account) ClearBuySlot(idx int) error {
	return a.SetBuySlot(idx, 0)
}

// firstFree scans a slot array, preferring empty slots over slots still
// linked to a terminal entity. Slots linked to a live entity are skipped.
func firstFree(slots []uint64, live func(id uint64) bool) (int, error) {
	reusable := -1
	for i, id := range slots {
		if id == 0 {
			return i, nil
		}
		if reusable < 0 && !live(id) {
			reusable = i
		}
	}
	if reusable >= 0 {
		return reusable, nil
	}
	return 0, types.ErrNoFreeSlot
}

// FirstFreeSellSlot returns the index of the first sell slot that can take
// a new offer. The live callback reports whether an ID is still linked to
// a non-terminal entity.
func (a *Account) FirstFreeSellSlot(live func(id uint64) bool) (int, error) {
	return firstFree(a.SellSlots, live)
}

// FirstFreeBuySlot returns the index of the first usable buy slot.
func (a *Account) FirstFreeBuySlot(live func(id uint64) bool) (int, error) {
	return firstFree(a.BuySlots, live)
}

// ActiveSellCount counts sell slots linked to an entity the callback
// reports as active.
func (a *Account) ActiveSellCount(active func(id uint64) bool) int {
	n := 0
	for _, id := range a.SellSlots {
		if id != 0 && active(id) {
			n++
		}
	}
	return n
}

// ActiveBuyCount counts buy slots linked to an active entity.
func (a *Account) ActiveBuyCount(active func(id uint64) bool) int {
	n := 0
	for _, id := range a.BuySlots {
		if id != 0 && active(id) {
			n++
		}
	}
	return n
}

// AddEscrow reserves coins against an active buy order.
func (a *Account) AddEscrow(amount uint64) {
	a.CoinsInEscrow += amount
}

// RemoveEscrow releases reserved coins. Asking for more than is held is an
// invariant violation upstream; the balance is left untouched.
func (a *Account) RemoveEscrow(amount uint64) error {
	if amount > a.CoinsInEscrow {
		return types.ErrEscrowUnderflow
	}
	a.CoinsInEscrow -= amount
	return nil
}

// AddToCollection merges a quantity into the existing entry for the same
// item type, or appends a new entry. The box is unbounded.
func (a *Account) AddToCollection(e types.CollectionEntry) {
	for i := range a.CollectionBox {
		if a.CollectionBox[i].ItemType == e.ItemType {
			a.CollectionBox[i].Quantity += e.Quantity
			a.CollectionBox[i].CreatedAt = e.CreatedAt
			return
		}
	}
	a.CollectionBox = append(a.CollectionBox, e)
}

// RemoveFromCollection pops one entry by index, e.g. on player pickup.
func (a *Account) RemoveFromCollection(idx int) (types.CollectionEntry, error) {
	if idx < 0 || idx >= len(a.CollectionBox) {
		return types.CollectionEntry{}, types.ErrSlotOutOfRange
	}
	e := a.CollectionBox[idx]
	a.CollectionBox = append(a.CollectionBox[:idx], a.CollectionBox[idx+1:]...)
	return e, nil
}

// ReduceCollection takes back part of an entry, used by settlement rollback.
func (a *Account) ReduceCollection(itemType uint32, quantity uint64) {
	for i := range a.CollectionBox {
		if a.CollectionBox[i].ItemType != itemType {
			continue
		}
		if a.CollectionBox[i].Quantity <= quantity {
			a.CollectionBox = append(a.CollectionBox[:i], a.CollectionBox[i+1:]...)
		} else {
			a.CollectionBox[i].Quantity -= quantity
		}
		return
	}
}

// PushNotification front-inserts into the recent-sales ring, trimming to max.
func (a *Account) PushNotification(n types.SaleNotification, max int) {
	a.Notifications = append([]types.SaleNotification{n}, a.Notifications...)
	if max > 0 && len(a.Notifications) > max {
		a.Notifications = a.Notifications[:max]
	}
}

// DropNotification removes the most recent notification, used by rollback.
func (a *Account) DropNotification() {
	if len(a.Notifications) > 0 {
		a.Notifications = a.Notifications[1:]
	}
}
