package settlement

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pyralisxc/Medieval-Sim-sub001/accounts"
	"github.com/pyralisxc/Medieval-Sim-sub001/fee"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

const namedLogger = "settlement"

// Ledger is the host game's currency service. Debit fails on insufficient
// funds, Credit fails when the bank cannot take the coins.
type Ledger interface {
	Debit(player uint64, amount uint64) error
	Credit(player uint64, amount uint64) error
}

// Inventory is the host game's item delivery service. Deliver fails when
// the player has no capacity; Withdraw takes previously delivered goods
// back and is only used to reverse a delivery during rollback.
type Inventory interface {
	Deliver(player uint64, itemType uint32, quantity uint64) error
	Withdraw(player uint64, itemType uint32, quantity uint64) error
}

// TradeRecorder receives every settled trade, e.g. for audit or analytics.
type TradeRecorder interface {
	RecordTrade(t *types.Trade)
}

// Engine runs the two-phase exchange of currency for goods between exactly
// two counterparties for one matched quantity. Commit applies its sub-steps
// in a fixed order, keeping an undo for each; any failure unwinds the undos
// in reverse so the caller only ever observes fully-applied or
// fully-reverted.
type Engine struct {
	log *logging.Logger
	cfg Config

	params    types.MarketParams
	fees      *fee.Engine
	accounts  *accounts.Store
	ledger    Ledger
	inventory Inventory
	recorder  TradeRecorder

	// test seam: called before each commit sub-step, a non-nil return
	// aborts the step as if it had failed
	stepHook func(step string) error
}

// New wires the settlement engine to its collaborators. recorder may be nil.
func New(log *logging.Logger, cfg Config, params types.MarketParams, fees *fee.Engine,
	store *accounts.Store, ledger Ledger, inventory Inventory, recorder TradeRecorder,
) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:       log,
		cfg:       cfg,
		params:    params,
		fees:      fees,
		accounts:  store,
		ledger:    ledger,
		inventory: inventory,
		recorder:  recorder,
	}
}

// plan is the outcome of prepare: everything commit needs, computed before
// anything is touched.
type plan struct {
	offer    *types.SellOffer
	order    *types.BuyOrder
	quantity uint64
	// price is the maker-side quoted price the trade executes at.
	price     uint64
	breakdown fee.Breakdown
	// escrowed is what the buyer's escrow holds for this quantity at the
	// order's own limit price; slack above gross flows back to the buyer.
	escrowed uint64
	slack    uint64
	now      int64
}

// Result is what a successful settlement hands back to the registry.
type Result struct {
	Trade *types.Trade
	// OfferDone / OrderDone report a side reaching its terminal completed
	// state, so the registry can update its indices.
	OfferDone bool
	OrderDone bool
}

// Settle executes one matched (offer, order, quantity, execution price)
// tuple. Both entities' own exclusive sections are held for the duration,
// so no two settlements can touch the same entity concurrently.
func (e *Engine) Settle(offer *types.SellOffer, order *types.BuyOrder, quantity, price uint64, now int64) (*Result, error) {
	offer.Lock()
	defer offer.Unlock()
	order.Lock()
	defer order.Unlock()

	p, err := e.prepare(offer, order, quantity, price, now)
	if err != nil {
		e.log.Warn("settlement rejected in prepare",
			logging.Uint64("offer-id", offer.ID),
			logging.Uint64("order-id", order.ID),
			logging.Uint64("quantity", quantity),
			logging.Uint64("price", price),
			logging.Error(err),
		)
		return nil, err
	}
	res, err := e.commit(p)
	if err != nil {
		e.log.Warn("settlement rolled back in commit",
			logging.Uint64("offer-id", offer.ID),
			logging.Uint64("order-id", order.ID),
			logging.Error(err),
		)
		return nil, err
	}
	if e.recorder != nil {
		e.recorder.RecordTrade(res.Trade)
	}
	return res, nil
}

// prepare validates the match and computes the money split. Nothing is
// mutated here.
func (e *Engine) prepare(offer *types.SellOffer, order *types.BuyOrder, quantity, price uint64, now int64) (*plan, error) {
	// self-trade is rejected before anything else, unconditionally
	if offer.Owner == order.Owner {
		return nil, types.ErrSelfTrade
	}
	if quantity == 0 || quantity > offer.QuantityRemaining || quantity > order.QuantityRemaining {
		return nil, types.ErrInvalidQuantity
	}
	if !offer.CanMatch(now) || !order.CanMatch(now) {
		return nil, types.ErrNotMatchable
	}
	if price < offer.PricePerUnit || price > order.PricePerUnit {
		return nil, types.ErrInvalidPrice
	}
	// price <= order.PricePerUnit, so this bounds both the escrow and the
	// gross products away from uint64 wraparound
	if quantity > math.MaxUint64/order.PricePerUnit {
		return nil, types.ErrInvalidQuantity
	}

	b := e.fees.CalculateForTrade(quantity, price)
	escrowed := quantity * order.PricePerUnit
	return &plan{
		offer:     offer,
		order:     order,
		quantity:  quantity,
		price:     price,
		breakdown: b,
		escrowed:  escrowed,
		slack:     escrowed - b.Gross,
		now:       now,
	}, nil
}

// commit applies the settlement sub-steps in order, unwinding applied undos
// in reverse on the first failure.
func (e *Engine) commit(p *plan) (*Result, error) {
	var undos []func()
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}

	fail := func(step string, err error) (*Result, error) {
		rollback()
		return nil, errors.Wrapf(err, "settlement commit failed at %s", step)
	}

	step := func(name string) error {
		if e.stepHook != nil {
			return e.stepHook(name)
		}
		return nil
	}

	seller := e.accounts.GetOrCreate(p.offer.Owner)
	buyer := e.accounts.GetOrCreate(p.order.Owner)

	// (a) consume buyer escrow at the order's limit price, refund slack
	if err := step("escrow"); err != nil {
		return fail("escrow", err)
	}
	if err := buyer.RemoveEscrow(p.escrowed); err != nil {
		// invariant violation upstream, never produce a negative balance
		e.log.Error("buyer escrow below settled amount",
			logging.Uint64("buyer", p.order.Owner),
			logging.Uint64("escrowed", p.escrowed),
			logging.Uint64("held", buyer.CoinsInEscrow),
			logging.Error(err),
		)
		return fail("escrow", err)
	}
	undos = append(undos, func() { buyer.AddEscrow(p.escrowed) })

	if p.slack > 0 {
		if err := e.ledger.Credit(p.order.Owner, p.slack); err != nil {
			buyer.AddToCollection(types.CollectionEntry{
				ItemType:  types.CoinsItem,
				Quantity:  p.slack,
				Source:    types.SourceSaleProceeds,
				CreatedAt: p.now,
			})
			undos = append(undos, func() { buyer.ReduceCollection(types.CoinsItem, p.slack) })
		} else {
			undos = append(undos, func() { e.ledger.Debit(p.order.Owner, p.slack) })
		}
	}

	// (b) walk both state machines down by the matched quantity
	if err := step("quantities"); err != nil {
		return fail("quantities", err)
	}
	offerState, offerEnabled := p.offer.State, p.offer.Enabled
	if err := p.offer.ReduceQuantity(p.quantity, p.now); err != nil {
		return fail("quantities", err)
	}
	undos = append(undos, func() { p.offer.RestoreQuantity(p.quantity, offerState, offerEnabled, p.now) })

	orderState, orderEnabled := p.order.State, p.order.Enabled
	if err := p.order.ReduceQuantity(p.quantity, p.now); err != nil {
		return fail("quantities", err)
	}
	undos = append(undos, func() { p.order.RestoreQuantity(p.quantity, orderState, orderEnabled, p.now) })

	// (c) pay the seller: bank when auto-deposit holds and the bank has
	// capacity, collection box otherwise
	if err := step("proceeds"); err != nil {
		return fail("proceeds", err)
	}
	net := p.breakdown.Net
	paidToBank := false
	if seller.Preferences.AutoDeposit {
		paidToBank = e.ledger.Credit(p.offer.Owner, net) == nil
	}
	if paidToBank {
		undos = append(undos, func() { e.ledger.Debit(p.offer.Owner, net) })
	} else {
		seller.AddToCollection(types.CollectionEntry{
			ItemType:  types.CoinsItem,
			Quantity:  net,
			Source:    types.SourceSaleProceeds,
			CreatedAt: p.now,
		})
		undos = append(undos, func() { seller.ReduceCollection(types.CoinsItem, net) })
	}
	seller.SalesCount++
	seller.CoinsEarned += net
	undos = append(undos, func() { seller.SalesCount--; seller.CoinsEarned -= net })

	// (d) hand the goods to the buyer, collection box when the inventory
	// has no capacity
	if err := step("delivery"); err != nil {
		return fail("delivery", err)
	}
	if err := e.inventory.Deliver(p.order.Owner, p.offer.ItemType, p.quantity); err != nil {
		buyer.AddToCollection(types.CollectionEntry{
			ItemType:  p.offer.ItemType,
			Quantity:  p.quantity,
			Source:    types.SourceDelivery,
			CreatedAt: p.now,
		})
		qty, item := p.quantity, p.offer.ItemType
		undos = append(undos, func() { buyer.ReduceCollection(item, qty) })
	} else {
		qty, item := p.quantity, p.offer.ItemType
		undos = append(undos, func() { e.inventory.Withdraw(p.order.Owner, item, qty) })
	}
	buyer.PurchasesCount++
	buyer.CoinsSpent += p.breakdown.Gross
	gross := p.breakdown.Gross
	undos = append(undos, func() { buyer.PurchasesCount--; buyer.CoinsSpent -= gross })

	// (e) tell the seller
	if err := step("notification"); err != nil {
		return fail("notification", err)
	}
	partial := p.offer.QuantityRemaining > 0
	if !partial || seller.Preferences.NotifyOnPartial {
		seller.PushNotification(types.SaleNotification{
			OfferID:   p.offer.ID,
			ItemType:  p.offer.ItemType,
			Quantity:  p.quantity,
			Price:     p.price,
			Net:       net,
			Buyer:     p.order.Owner,
			Partial:   partial,
			Timestamp: p.now,
		}, e.params.NotificationMax)
		undos = append(undos, func() { seller.DropNotification() })
	}

	// (f) per-entity statistics
	if err := step("stats"); err != nil {
		return fail("stats", err)
	}
	p.offer.RecordSale(net)
	p.order.RecordPurchase()
	undos = append(undos, func() {
		p.offer.UnrecordSale(net)
		p.order.UnrecordPurchase()
	})

	trade := &types.Trade{
		ID:         uuid.NewString(),
		ItemType:   p.offer.ItemType,
		OfferID:    p.offer.ID,
		OrderID:    p.order.ID,
		Seller:     p.offer.Owner,
		Buyer:      p.order.Owner,
		Quantity:   p.quantity,
		Price:      p.price,
		Gross:      p.breakdown.Gross,
		SalesTax:   p.breakdown.SalesTax,
		ListingFee: p.breakdown.ListingFee,
		Net:        net,
		Timestamp:  p.now,
	}
	if e.log.GetLevel() <= logging.DebugLevel {
		e.log.Debug("trade settled",
			logging.String("trade-id", trade.ID),
			logging.Uint64("quantity", trade.Quantity),
			logging.Uint64("price", trade.Price),
			logging.Uint64("net", trade.Net),
		)
	}
	return &Result{
		Trade:     trade,
		OfferDone: p.offer.State == types.StateCompleted,
		OrderDone: p.order.State == types.StateCompleted,
	}, nil
}
