package market

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/matching"
	"github.com/pyralisxc/Medieval-Sim-sub001/metrics"
	"github.com/pyralisxc/Medieval-Sim-sub001/settlement"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

// matchSellArrival walks resting buy orders in price-time priority and
// settles against each until the arriving offer is exhausted or nothing
// crosses any more. Execution price is always the resting (maker) side's
// quote, so the taker never does worse than their own limit. Callers hold
// e.mu.
func (e *Engine) matchSellArrival(offer *types.SellOffer, now int64) []*types.Trade {
	var trades []*types.Trade
	b := e.book(offer.ItemType)
	for offer.CanMatch(now) {
		progressed := false
		// candidates re-read every pass: earlier settlements may have
		// completed or invalidated resting orders
		for _, id := range b.BuyCandidates(offer.PricePerUnit) {
			order, ok := e.orders[id]
			if !ok {
				// orphaned index entry, self-heal
				e.log.Warn("book index referenced missing buy order")
				b.RemoveOrder(id, 0)
				continue
			}
			if !order.CanMatch(now) {
				b.RemoveOrder(id, order.PricePerUnit)
				continue
			}
			if !offer.CanMatchBuyOrder(order, now) {
				// e.g. both sides owned by the same player; leave it resting
				continue
			}
			quantity := minQty(offer.QuantityRemaining, order.QuantityRemaining)
			res, err := e.settle.Settle(offer, order, quantity, order.PricePerUnit, now)
			if err != nil {
				continue
			}
			e.applyTrade(res, offer, order, b, true, now)
			trades = append(trades, res.Trade)
			progressed = true
			break
		}
		if !progressed {
			break
		}
	}
	if !offer.CanMatch(now) {
		b.RemoveOffer(offer.ID, offer.PricePerUnit)
	}
	e.dropBookIfEmpty(offer.ItemType)
	return trades
}

// matchBuyArrival is the mirror walk over resting sell offers. resting
// says whether the arrival itself sits on the book (false for the instant
// purchase path). Callers hold e.mu.
func (e *Engine) matchBuyArrival(order *types.BuyOrder, resting bool, now int64) []*types.Trade {
	var trades []*types.Trade
	b := e.book(order.ItemType)
	for order.CanMatch(now) {
		progressed := false
		for _, id := range b.SellCandidates(order.PricePerUnit) {
			offer, ok := e.offers[id]
			if !ok {
				e.log.Warn("book index referenced missing sell offer")
				b.RemoveOffer(id, 0)
				continue
			}
			if !offer.CanMatch(now) {
				b.RemoveOffer(id, offer.PricePerUnit)
				continue
			}
			if !offer.CanMatchBuyOrder(order, now) {
				continue
			}
			quantity := minQty(offer.QuantityRemaining, order.QuantityRemaining)
			res, err := e.settle.Settle(offer, order, quantity, offer.PricePerUnit, now)
			if err != nil {
				continue
			}
			e.applyTrade(res, offer, order, b, resting, now)
			trades = append(trades, res.Trade)
			progressed = true
			break
		}
		if !progressed {
			break
		}
	}
	if resting && !order.CanMatch(now) {
		b.RemoveOrder(order.ID, order.PricePerUnit)
	}
	e.dropBookIfEmpty(order.ItemType)
	return trades
}

// applyTrade folds one settlement result into the registry: indices,
// expiry tracking, aggregates, price history. Callers hold e.mu.
func (e *Engine) applyTrade(res *settlement.Result, offer *types.SellOffer, order *types.BuyOrder, b *matching.Book, orderRests bool, now int64) {
	t := res.Trade
	if res.OfferDone {
		b.RemoveOffer(offer.ID, offer.PricePerUnit)
		if offer.ExpiresAt > 0 {
			e.expiring.Remove(kindOffer, offer.ID, offer.ExpiresAt)
		}
		metrics.OfferEvent("completed")
	}
	if res.OrderDone {
		if orderRests {
			b.RemoveOrder(order.ID, order.PricePerUnit)
		}
		if order.ExpiresAt > 0 {
			e.expiring.Remove(kindOrder, order.ID, order.ExpiresAt)
		}
		metrics.OrderEvent("completed")
	}
	e.stats.TradesSettled++
	e.stats.CoinsTurnover += t.Gross
	e.stats.TaxCollected += t.SalesTax
	e.stats.FeesCollected += t.ListingFee
	e.stats.ItemsExchanged += t.Quantity
	e.history.Record(t)
	metrics.TradeSettled(t.Gross)
}

func minQty(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
