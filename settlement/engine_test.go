package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyralisxc/Medieval-Sim-sub001/accounts"
	"github.com/pyralisxc/Medieval-Sim-sub001/fee"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

type fakeLedger struct {
	balances   map[uint64]uint64
	failCredit map[uint64]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[uint64]uint64{}, failCredit: map[uint64]bool{}}
}

func (l *fakeLedger) Debit(player uint64, amount uint64) error {
	if l.balances[player] < amount {
		return types.ErrInsufficientFunds
	}
	l.balances[player] -= amount
	return nil
}

func (l *fakeLedger) Credit(player uint64, amount uint64) error {
	if l.failCredit[player] {
		return types.ErrNoCapacity
	}
	l.balances[player] += amount
	return nil
}

type fakeInventory struct {
	holdings    map[uint64]map[uint32]uint64
	failDeliver bool
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{holdings: map[uint64]map[uint32]uint64{}}
}

func (i *fakeInventory) Deliver(player uint64, itemType uint32, quantity uint64) error {
	if i.failDeliver {
		return types.ErrNoCapacity
	}
	if i.holdings[player] == nil {
		i.holdings[player] = map[uint32]uint64{}
	}
	i.holdings[player][itemType] += quantity
	return nil
}

func (i *fakeInventory) Withdraw(player uint64, itemType uint32, quantity uint64) error {
	if i.holdings[player][itemType] < quantity {
		return types.ErrInvalidQuantity
	}
	i.holdings[player][itemType] -= quantity
	return nil
}

type fakeRecorder struct {
	trades []*types.Trade
}

func (r *fakeRecorder) RecordTrade(t *types.Trade) {
	r.trades = append(r.trades, t)
}

func testParams() types.MarketParams {
	return types.MarketParams{
		MinPricePerUnit:  1,
		MaxPricePerUnit:  1_000_000,
		MinDurationDays:  1,
		MaxDurationDays:  7,
		SellSlots:        10,
		BuySlots:         5,
		SalesTaxPct:      5,
		ListingFeePct:    1,
		NotificationMax:  20,
		ExpirySweepTicks: 10,
	}
}

type fixture struct {
	engine    *Engine
	store     *accounts.Store
	ledger    *fakeLedger
	inventory *fakeInventory
	recorder  *fakeRecorder
	offer     *types.SellOffer
	order     *types.BuyOrder
	now       int64
}

// newFixture lists a 100 @ 10 sell offer by player 7 and an escrowed buy
// order by player 9, ready to settle.
func newFixture(t *testing.T, orderQty, orderPrice uint64) *fixture {
	t.Helper()
	log := logging.NewTestLogger()
	params := testParams()
	store := accounts.NewStore(log, accounts.NewDefaultConfig(), params.SellSlots, params.BuySlots)
	ledger := newFakeLedger()
	inventory := newFakeInventory()
	recorder := &fakeRecorder{}
	fees := fee.New(log, fee.NewDefaultConfig(), params)
	engine := New(log, NewDefaultConfig(), params, fees, store, ledger, inventory, recorder)

	now := time.Now().UnixNano()
	offer := types.NewSellOffer(1, 7, "Aldred", 0, now)
	require.NoError(t, offer.Configure(params, 42, 100, 10, 3, now))
	require.NoError(t, offer.Enable(now))

	order := types.NewBuyOrder(1, 9, 0, now)
	require.NoError(t, order.Configure(params, 42, orderQty, orderPrice, 3, now))
	require.NoError(t, order.Enable(now))
	store.GetOrCreate(9).AddEscrow(order.EscrowRequired())

	return &fixture{
		engine:    engine,
		store:     store,
		ledger:    ledger,
		inventory: inventory,
		recorder:  recorder,
		offer:     offer,
		order:     order,
		now:       now,
	}
}

func TestSettle_partialFillAtMakerPrice(t *testing.T) {
	f := newFixture(t, 60, 10)
	f.store.GetOrCreate(7).Preferences.NotifyOnPartial = true

	res, err := f.engine.Settle(f.offer, f.order, 60, 10, f.now)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)

	// gross 600, 5% tax, 1% fee
	assert.Equal(t, uint64(600), res.Trade.Gross)
	assert.Equal(t, uint64(30), res.Trade.SalesTax)
	assert.Equal(t, uint64(6), res.Trade.ListingFee)
	assert.Equal(t, uint64(564), res.Trade.Net)

	assert.Equal(t, types.StatePartial, f.offer.State)
	assert.Equal(t, uint64(40), f.offer.QuantityRemaining)
	assert.False(t, res.OfferDone)

	assert.Equal(t, types.StateCompleted, f.order.State)
	assert.Equal(t, uint64(0), f.order.QuantityRemaining)
	assert.True(t, res.OrderDone)

	buyer := f.store.GetOrCreate(9)
	seller := f.store.GetOrCreate(7)
	assert.Equal(t, uint64(0), buyer.CoinsInEscrow)
	assert.Equal(t, uint64(60), f.inventory.holdings[9][42])

	// no auto-deposit: proceeds land in the seller's collection box
	require.Len(t, seller.CollectionBox, 1)
	assert.Equal(t, types.CoinsItem, seller.CollectionBox[0].ItemType)
	assert.Equal(t, uint64(564), seller.CollectionBox[0].Quantity)

	require.Len(t, seller.Notifications, 1)
	assert.True(t, seller.Notifications[0].Partial)
	assert.Equal(t, uint64(60), seller.Notifications[0].Quantity)

	assert.Equal(t, uint64(1), f.offer.TradeCount)
	assert.Equal(t, uint64(564), f.offer.Proceeds)
	require.Len(t, f.recorder.trades, 1)
}

func TestSettle_slackRefundedAtBuyerLimit(t *testing.T) {
	// buyer was willing to pay 12, maker quoted 10
	f := newFixture(t, 10, 12)
	buyer := f.store.GetOrCreate(9)
	require.Equal(t, uint64(120), buyer.CoinsInEscrow)

	_, err := f.engine.Settle(f.offer, f.order, 10, 10, f.now)
	require.NoError(t, err)

	// escrow consumed at the limit price, the 20 coin slack came back
	assert.Equal(t, uint64(0), buyer.CoinsInEscrow)
	assert.Equal(t, uint64(20), f.ledger.balances[9])
}

func TestSettle_autoDepositPaysBank(t *testing.T) {
	f := newFixture(t, 60, 10)
	seller := f.store.GetOrCreate(7)
	seller.Preferences.AutoDeposit = true

	_, err := f.engine.Settle(f.offer, f.order, 60, 10, f.now)
	require.NoError(t, err)
	assert.Equal(t, uint64(564), f.ledger.balances[7])
	assert.Empty(t, seller.CollectionBox)
}

func TestSettle_deliveryFallsBackToCollectionBox(t *testing.T) {
	f := newFixture(t, 60, 10)
	f.inventory.failDeliver = true

	_, err := f.engine.Settle(f.offer, f.order, 60, 10, f.now)
	require.NoError(t, err)

	buyer := f.store.GetOrCreate(9)
	require.Len(t, buyer.CollectionBox, 1)
	assert.Equal(t, uint32(42), buyer.CollectionBox[0].ItemType)
	assert.Equal(t, uint64(60), buyer.CollectionBox[0].Quantity)
	assert.Equal(t, types.SourceDelivery, buyer.CollectionBox[0].Source)
}

func TestSettle_selfTradeAlwaysRejected(t *testing.T) {
	f := newFixture(t, 60, 10)
	own := types.NewBuyOrder(2, 7, 1, f.now)
	require.NoError(t, own.Configure(testParams(), 42, 60, 10, 3, f.now))
	require.NoError(t, own.Enable(f.now))
	f.store.GetOrCreate(7).AddEscrow(own.EscrowRequired())

	for _, qty := range []uint64{1, 30, 60} {
		_, err := f.engine.Settle(f.offer, own, qty, 10, f.now)
		assert.Equal(t, types.ErrSelfTrade, err)
	}
	assert.Equal(t, uint64(100), f.offer.QuantityRemaining)
	assert.Equal(t, uint64(60), own.QuantityRemaining)
}

func TestSettle_prepareRejections(t *testing.T) {
	f := newFixture(t, 60, 10)

	_, err := f.engine.Settle(f.offer, f.order, 0, 10, f.now)
	assert.Equal(t, types.ErrInvalidQuantity, err)

	_, err = f.engine.Settle(f.offer, f.order, 61, 10, f.now)
	assert.Equal(t, types.ErrInvalidQuantity, err)

	// execution price outside [ask, bid] is a programming error upstream
	_, err = f.engine.Settle(f.offer, f.order, 10, 9, f.now)
	assert.Equal(t, types.ErrInvalidPrice, err)
	_, err = f.engine.Settle(f.offer, f.order, 10, 11, f.now)
	assert.Equal(t, types.ErrInvalidPrice, err)

	require.NoError(t, f.order.Disable(f.now))
	_, err = f.engine.Settle(f.offer, f.order, 10, 10, f.now)
	assert.Equal(t, types.ErrNotMatchable, err)
}

func TestSettle_rejectsWrappingValue(t *testing.T) {
	f := newFixture(t, 60, 10)

	// hand-built entities whose quantity * limit price wraps uint64; such
	// values cannot come out of Configure, but stored or corrupted state
	// must never mint coins through escrow slack
	huge := uint64(1) << 60
	offer := types.NewSellOffer(2, 7, "Aldred", 1, f.now)
	offer.ItemType = 42
	offer.QuantityTotal = huge
	offer.QuantityRemaining = huge
	offer.PricePerUnit = 1
	offer.Enabled = true
	offer.State = types.StateActive

	order := types.NewBuyOrder(2, 9, 1, f.now)
	order.ItemType = 42
	order.QuantityTotal = huge
	order.QuantityRemaining = huge
	order.PricePerUnit = 16
	order.Enabled = true
	order.State = types.StateActive

	_, err := f.engine.Settle(offer, order, huge, 1, f.now)
	assert.Equal(t, types.ErrInvalidQuantity, err)
	assert.Zero(t, f.ledger.balances[7])
	assert.Zero(t, f.ledger.balances[9])
	assert.Equal(t, huge, order.QuantityRemaining)
}

// worldState captures everything settlement may touch, for atomicity checks.
type worldState struct {
	offerRemaining uint64
	offerState     types.State
	offerProceeds  uint64
	offerTrades    uint64
	orderRemaining uint64
	orderState     types.State
	orderTrades    uint64
	buyerEscrow    uint64
	buyerBalance   uint64
	sellerBalance  uint64
	buyerBox       int
	sellerBox      int
	sellerNotifs   int
	buyerInventory uint64
	sellerSales    uint64
	buyerPurchases uint64
}

func capture(f *fixture) worldState {
	buyer := f.store.GetOrCreate(9)
	seller := f.store.GetOrCreate(7)
	return worldState{
		offerRemaining: f.offer.QuantityRemaining,
		offerState:     f.offer.State,
		offerProceeds:  f.offer.Proceeds,
		offerTrades:    f.offer.TradeCount,
		orderRemaining: f.order.QuantityRemaining,
		orderState:     f.order.State,
		orderTrades:    f.order.TradeCount,
		buyerEscrow:    buyer.CoinsInEscrow,
		buyerBalance:   f.ledger.balances[9],
		sellerBalance:  f.ledger.balances[7],
		buyerBox:       len(buyer.CollectionBox),
		sellerBox:      len(seller.CollectionBox),
		sellerNotifs:   len(seller.Notifications),
		buyerInventory: f.inventory.holdings[9][42],
		sellerSales:    seller.SalesCount,
		buyerPurchases: buyer.PurchasesCount,
	}
}

func TestSettle_rollbackRestoresEverything(t *testing.T) {
	steps := []string{"escrow", "quantities", "proceeds", "delivery", "notification", "stats"}
	for _, failing := range steps {
		failing := failing
		t.Run(failing, func(t *testing.T) {
			// buyer limit above maker price so the slack path runs too,
			// partial notifications on so the push gets unwound as well
			f := newFixture(t, 60, 12)
			f.store.GetOrCreate(7).Preferences.NotifyOnPartial = true
			before := capture(f)

			injected := errors.New("injected failure")
			f.engine.stepHook = func(step string) error {
				if step == failing {
					return injected
				}
				return nil
			}

			res, err := f.engine.Settle(f.offer, f.order, 60, 10, f.now)
			require.Error(t, err)
			require.Nil(t, res)
			assert.ErrorIs(t, err, injected)

			assert.Equal(t, before, capture(f), "state must be fully reverted after failure at %s", failing)
			assert.Empty(t, f.recorder.trades)
		})
	}
}

func TestSettle_escrowInvariantAcrossFills(t *testing.T) {
	f := newFixture(t, 60, 10)
	buyer := f.store.GetOrCreate(9)

	// escrow always equals remaining * price for every active buy order
	_, err := f.engine.Settle(f.offer, f.order, 25, 10, f.now)
	require.NoError(t, err)
	assert.Equal(t, f.order.EscrowRequired(), buyer.CoinsInEscrow)
	assert.Equal(t, uint64(350), buyer.CoinsInEscrow)

	_, err = f.engine.Settle(f.offer, f.order, 35, 10, f.now)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), buyer.CoinsInEscrow)
	assert.Equal(t, types.StateCompleted, f.order.State)
}
