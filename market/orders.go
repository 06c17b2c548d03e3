package market

import (
	"math"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/metrics"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// CreateBuyOrder opens a fresh draft order in the owner's first available
// buy-order slot.
func (e *Engine) CreateBuyOrder(owner uint64) (*types.BuyOrder, error) {
	if err := e.allowCreate(owner); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := e.accounts.GetOrCreate(owner)
	slot, err := acc.FirstFreeBuySlot(e.orderLive)
	if err != nil {
		e.log.Warn("no free buy slot",
			logging.Uint64("owner", owner),
		)
		return nil, err
	}
	order := types.NewBuyOrder(e.ids.nextOrderID(), owner, slot, e.nowFn())
	e.orders[order.ID] = order
	acc.SetBuySlot(slot, order.ID)
	e.stats.OrdersCreated++
	metrics.OrderEvent("created")
	return order, nil
}

// ConfigureBuyOrder edits a draft order.
func (e *Engine) ConfigureBuyOrder(owner, orderID uint64, itemType uint32, quantity, pricePerUnit uint64, durationDays uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.ownedOrder(owner, orderID)
	if err != nil {
		return err
	}
	if _, ok := e.catalog.Resolve(itemType); !ok {
		e.log.Warn("configure against unknown item",
			logging.Uint64("order-id", orderID),
			logging.Uint32("item-type", itemType),
		)
		return types.ErrUnknownItem
	}
	now := e.nowFn()
	oldExpiry := order.ExpiresAt
	if err := order.Configure(e.params, itemType, quantity, pricePerUnit, durationDays, now); err != nil {
		e.log.Warn("buy order configuration rejected",
			logging.Uint64("order-id", orderID),
			logging.Error(err),
		)
		return err
	}
	if oldExpiry > 0 {
		e.expiring.Remove(kindOrder, orderID, oldExpiry)
	}
	e.expiring.Insert(kindOrder, orderID, order.ExpiresAt)
	return nil
}

// EnableBuyOrder escrows the order's full remaining cost at its limit
// price, lists it and runs matching against resting sell offers.
func (e *Engine) EnableBuyOrder(owner, orderID uint64) ([]*types.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.ownedOrder(owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.State != types.StateDraft || order.QuantityRemaining == 0 {
		return nil, types.ErrInvalidState
	}
	now := e.nowFn()
	required := order.EscrowRequired()
	if err := e.ledger.Debit(owner, required); err != nil {
		e.log.Warn("buy order escrow debit refused",
			logging.Uint64("order-id", orderID),
			logging.Uint64("required", required),
			logging.Error(err),
		)
		return nil, types.ErrInsufficientFunds
	}
	acc := e.accounts.GetOrCreate(owner)
	acc.AddEscrow(required)
	if err := order.Enable(now); err != nil {
		// undo the escrow, nothing else has happened
		acc.RemoveEscrow(required)
		e.ledger.Credit(owner, required)
		return nil, err
	}
	b := e.book(order.ItemType)
	b.AddOrder(order.ID, order.PricePerUnit, order.CreatedAt)
	metrics.OrderEvent("enabled")
	return e.matchBuyArrival(order, true, now), nil
}

// DisableBuyOrder delists an order back to draft and releases its escrow.
func (e *Engine) DisableBuyOrder(owner, orderID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.ownedOrder(owner, orderID)
	if err != nil {
		return err
	}
	now := e.nowFn()
	escrowed := order.EscrowRequired()
	if err := order.Disable(now); err != nil {
		e.log.Warn("buy order disable rejected",
			logging.Uint64("order-id", orderID),
			logging.Error(err),
		)
		return err
	}
	if b := e.peekBook(order.ItemType); b != nil {
		b.RemoveOrder(order.ID, order.PricePerUnit)
		e.dropBookIfEmpty(order.ItemType)
	}
	acc := e.accounts.GetOrCreate(owner)
	e.releaseEscrowCoins(acc, escrowed, types.SourceCancelReturn, now)
	metrics.OrderEvent("disabled")
	return nil
}

// CancelBuyOrder withdraws an order for good, releasing any escrow a
// listed order still held. Idempotent on terminal orders.
func (e *Engine) CancelBuyOrder(owner, orderID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.ownedOrder(owner, orderID)
	if err != nil {
		return err
	}
	if order.State.IsTerminal() {
		return nil
	}
	now := e.nowFn()
	wasListed := order.IsActive()
	escrowed := order.EscrowRequired()
	order.Cancel(now)
	if b := e.peekBook(order.ItemType); b != nil {
		b.RemoveOrder(order.ID, order.PricePerUnit)
		e.dropBookIfEmpty(order.ItemType)
	}
	if order.ExpiresAt > 0 {
		e.expiring.Remove(kindOrder, order.ID, order.ExpiresAt)
	}
	if wasListed {
		acc := e.accounts.GetOrCreate(owner)
		e.releaseEscrowCoins(acc, escrowed, types.SourceCancelReturn, now)
	}
	metrics.OrderEvent("cancelled")
	return nil
}

// Order returns an order by ID for read-only use.
func (e *Engine) Order(orderID uint64) (*types.BuyOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return order, nil
}

// ownedOrder resolves an order and checks ownership. Callers hold e.mu.
func (e *Engine) ownedOrder(owner, orderID uint64) (*types.BuyOrder, error) {
	order, ok := e.orders[orderID]
	if !ok || order.Owner != owner {
		return nil, types.ErrNotFound
	}
	return order, nil
}

// InstantPurchase buys up to quantity units of an item off the book right
// now, paying at most maxPrice per unit. It runs through an ephemeral buy
// order that never rests on the book and never occupies a slot; whatever
// cannot be filled immediately is abandoned and its escrow returned.
func (e *Engine) InstantPurchase(owner uint64, itemType uint32, quantity, maxPrice uint64) ([]*types.Trade, error) {
	if err := e.allowCreate(owner); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.catalog.Resolve(itemType); !ok {
		return nil, types.ErrUnknownItem
	}
	if maxPrice < e.params.MinPricePerUnit || maxPrice > e.params.MaxPricePerUnit {
		return nil, types.ErrInvalidPrice
	}
	if quantity == 0 || quantity > math.MaxUint64/maxPrice {
		return nil, types.ErrInvalidQuantity
	}

	now := e.nowFn()
	order := types.NewBuyOrder(e.ids.nextOrderID(), owner, types.EphemeralSlot, now)
	order.ItemType = itemType
	order.QuantityTotal = quantity
	order.QuantityRemaining = quantity
	order.PricePerUnit = maxPrice

	required := order.EscrowRequired()
	if err := e.ledger.Debit(owner, required); err != nil {
		e.log.Warn("instant purchase debit refused",
			logging.Uint64("owner", owner),
			logging.Uint64("required", required),
			logging.Error(err),
		)
		return nil, types.ErrInsufficientFunds
	}
	acc := e.accounts.GetOrCreate(owner)
	acc.AddEscrow(required)
	if err := order.Enable(now); err != nil {
		acc.RemoveEscrow(required)
		e.ledger.Credit(owner, required)
		return nil, err
	}
	metrics.OrderEvent("instant")

	trades := e.matchBuyArrival(order, false, now)

	// abandon whatever the book could not fill and give the coins back
	if !order.State.IsTerminal() {
		leftover := order.EscrowRequired()
		order.Cancel(now)
		e.releaseEscrowCoins(acc, leftover, types.SourceCancelReturn, now)
	}
	return trades, nil
}
