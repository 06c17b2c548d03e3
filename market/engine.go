package market

import (
	"sync"
	"time"

	"github.com/pyralisxc/Medieval-Sim-sub001/accounts"
	"github.com/pyralisxc/Medieval-Sim-sub001/fee"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/matching"
	"github.com/pyralisxc/Medieval-Sim-sub001/metrics"
	"github.com/pyralisxc/Medieval-Sim-sub001/pricehistory"
	"github.com/pyralisxc/Medieval-Sim-sub001/settlement"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// Engine is the root marketplace orchestrator for one game-world instance.
// It exclusively owns every offer, order and trading account; the outside
// world refers to entities by ID only. Cross-entity mutations (enable,
// disable, cancel, instant purchase, the expiry sweep) are serialized by
// one mutex per engine, because matching and settlement must observe the
// shared maps consistently. The per-item book map and the ID counters are
// concurrency-safe on their own for plain reads.
type Engine struct {
	log *logging.Logger
	cfg Config

	params types.MarketParams

	// serializes matching + settlement critical paths
	mu sync.Mutex

	offers map[uint64]*types.SellOffer
	orders map[uint64]*types.BuyOrder

	// itemType (uint32) -> *matching.Book
	books     sync.Map
	bookCount int

	accounts *accounts.Store
	fees     *fee.Engine
	settle   *settlement.Engine
	history  *pricehistory.Store

	ids      idGen
	stats    types.MarketStats
	expiring *expiringEntities

	catalog   ItemCatalog
	ledger    settlement.Ledger
	inventory settlement.Inventory
	limiter   RateLimiter

	tickCount uint64
	nowFn     func() int64
}

// New builds the registry and every engine it owns. recorder and limiter
// may be nil.
func New(log *logging.Logger, cfg Config, ledger settlement.Ledger, inventory settlement.Inventory,
	catalog ItemCatalog, recorder settlement.TradeRecorder, limiter RateLimiter,
) (*Engine, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	params, err := cfg.Params.Snapshot()
	if err != nil {
		return nil, err
	}

	store := accounts.NewStore(log, cfg.Accounts, params.SellSlots, params.BuySlots)
	fees := fee.New(log, cfg.Fee, params)
	history, err := pricehistory.New(log, cfg.PriceHistory)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:       log,
		cfg:       cfg,
		params:    params,
		offers:    map[uint64]*types.SellOffer{},
		orders:    map[uint64]*types.BuyOrder{},
		accounts:  store,
		fees:      fees,
		history:   history,
		expiring:  newExpiringEntities(),
		catalog:   catalog,
		ledger:    ledger,
		inventory: inventory,
		limiter:   limiter,
		nowFn:     func() int64 { return time.Now().UnixNano() },
	}
	e.settle = settlement.New(log, cfg.Settlement, params, fees, store, ledger, inventory, recorder)
	return e, nil
}

// Params returns the immutable configuration snapshot the engine runs with.
func (e *Engine) Params() types.MarketParams {
	return e.params
}

// Accounts exposes the account store, e.g. for collection-box pickups.
func (e *Engine) Accounts() *accounts.Store {
	return e.accounts
}

// PriceHistory exposes the rolling per-item sale-price history.
func (e *Engine) PriceHistory() *pricehistory.Store {
	return e.history
}

// Stats returns a copy of the registry-wide aggregates.
func (e *Engine) Stats() types.MarketStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// book returns the per-item book, creating it on first reference.
func (e *Engine) book(itemType uint32) *matching.Book {
	if b, ok := e.books.Load(itemType); ok {
		return b.(*matching.Book)
	}
	b, loaded := e.books.LoadOrStore(itemType, matching.NewBook(e.log, e.cfg.Matching, itemType))
	if !loaded {
		e.bookCount++
		metrics.BookCount(e.bookCount)
	}
	return b.(*matching.Book)
}

// peekBook returns an existing book or nil, without creating one.
func (e *Engine) peekBook(itemType uint32) *matching.Book {
	if b, ok := e.books.Load(itemType); ok {
		return b.(*matching.Book)
	}
	return nil
}

// dropBookIfEmpty discards a book once both of its sides are empty.
func (e *Engine) dropBookIfEmpty(itemType uint32) {
	if b := e.peekBook(itemType); b != nil && b.Empty() {
		e.books.Delete(itemType)
		e.bookCount--
		metrics.BookCount(e.bookCount)
	}
}

// offerLive reports a non-terminal offer for slot reuse decisions.
func (e *Engine) offerLive(id uint64) bool {
	o, ok := e.offers[id]
	return ok && !o.State.IsTerminal()
}

// orderLive reports a non-terminal order for slot reuse decisions.
func (e *Engine) orderLive(id uint64) bool {
	o, ok := e.orders[id]
	return ok && !o.State.IsTerminal()
}

// allowCreate consults the rate-limiting collaborator. This is a
// pre-condition of the action, not part of any transaction.
func (e *Engine) allowCreate(owner uint64) error {
	if e.limiter != nil && !e.limiter.AllowCreate(owner) {
		e.log.Warn("entity creation rate limited", logging.Uint64("owner", owner))
		return types.ErrRateLimited
	}
	return nil
}

// releaseEscrowCoins moves previously escrowed coins back to the player:
// bank when it accepts them, collection box otherwise.
func (e *Engine) releaseEscrowCoins(acc *accounts.Account, amount uint64, src types.CollectionSource, now int64) error {
	if amount == 0 {
		return nil
	}
	if err := acc.RemoveEscrow(amount); err != nil {
		e.log.Error("escrow release exceeds held escrow",
			logging.Uint64("owner", acc.Owner),
			logging.Uint64("amount", amount),
			logging.Uint64("held", acc.CoinsInEscrow),
			logging.Error(err),
		)
		return err
	}
	if err := e.ledger.Credit(acc.Owner, amount); err != nil {
		acc.AddToCollection(types.CollectionEntry{
			ItemType:  types.CoinsItem,
			Quantity:  amount,
			Source:    src,
			CreatedAt: now,
		})
	}
	return nil
}

// returnItems hands unsold units back to the player: inventory when it has
// capacity, collection box otherwise.
func (e *Engine) returnItems(acc *accounts.Account, itemType uint32, quantity uint64, src types.CollectionSource, now int64) {
	if quantity == 0 {
		return
	}
	if err := e.inventory.Deliver(acc.Owner, itemType, quantity); err != nil {
		acc.AddToCollection(types.CollectionEntry{
			ItemType:  itemType,
			Quantity:  quantity,
			Source:    src,
			CreatedAt: now,
		})
	}
}

// OnTick drives the registry's periodic work. Every configured number of
// ticks it sweeps expired entities; expiry is otherwise evaluated lazily
// on read.
func (e *Engine) OnTick(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCount++
	if e.tickCount%e.params.ExpirySweepTicks != 0 {
		return
	}
	e.sweep(t.UnixNano())
}

// sweep expires everything past its expiration timestamp, returning goods
// and escrow to the owners. Callers hold e.mu.
func (e *Engine) sweep(now int64) {
	swept := 0
	for _, ref := range e.expiring.Expired(now) {
		switch ref.kind {
		case kindOffer:
			offer, ok := e.offers[ref.id]
			if !ok {
				e.log.Warn("expiry index referenced missing offer", logging.Uint64("offer-id", ref.id))
				continue
			}
			if offer.State.IsTerminal() {
				continue
			}
			e.expireOffer(offer, now)
			swept++
		case kindOrder:
			order, ok := e.orders[ref.id]
			if !ok {
				e.log.Warn("expiry index referenced missing order", logging.Uint64("order-id", ref.id))
				continue
			}
			if order.State.IsTerminal() {
				continue
			}
			e.expireOrder(order, now)
			swept++
		}
	}
	e.stats.EntitiesSwept += uint64(swept)
	metrics.SweepRun(swept)
	if swept > 0 {
		e.log.Info("expiration sweep complete", logging.Int("expired", swept))
	}
}

// expireOffer is the sweep-side terminal transition for a sell offer.
// Callers hold e.mu.
func (e *Engine) expireOffer(offer *types.SellOffer, now int64) {
	wasListed := offer.IsActive()
	offer.Expire(now)
	if b := e.peekBook(offer.ItemType); b != nil {
		b.RemoveOffer(offer.ID, offer.PricePerUnit)
		e.dropBookIfEmpty(offer.ItemType)
	}
	if wasListed {
		acc := e.accounts.GetOrCreate(offer.Owner)
		e.returnItems(acc, offer.ItemType, offer.QuantityRemaining, types.SourceExpiredReturn, now)
	}
	metrics.OfferEvent("expired")
}

// expireOrder is the sweep-side terminal transition for a buy order.
// Callers hold e.mu.
func (e *Engine) expireOrder(order *types.BuyOrder, now int64) {
	wasListed := order.IsActive()
	escrowed := order.EscrowRequired()
	order.Expire(now)
	if b := e.peekBook(order.ItemType); b != nil {
		b.RemoveOrder(order.ID, order.PricePerUnit)
		e.dropBookIfEmpty(order.ItemType)
	}
	if wasListed {
		acc := e.accounts.GetOrCreate(order.Owner)
		e.releaseEscrowCoins(acc, escrowed, types.SourceExpiredReturn, now)
	}
	metrics.OrderEvent("expired")
}

// ResyncIndices re-checks every book against the authoritative entity
// maps and removes orphans. Consistency errors are self-healing: logged
// and cleaned, never propagated.
func (e *Engine) ResyncIndices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowFn()
	removed := 0
	var emptied []uint32
	e.books.Range(func(key, value any) bool {
		b := value.(*matching.Book)
		removed += b.Resync(
			func(id uint64) bool {
				o, ok := e.offers[id]
				return ok && o.CanMatch(now)
			},
			func(id uint64) bool {
				o, ok := e.orders[id]
				return ok && o.CanMatch(now)
			},
		)
		if b.Empty() {
			emptied = append(emptied, key.(uint32))
		}
		return true
	})
	for _, item := range emptied {
		e.dropBookIfEmpty(item)
	}
	return removed
}
