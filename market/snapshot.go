package market

import (
	"sort"
	"strings"

	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

const defaultSnapshotLimit = 50

// MarketSnapshot builds the read-only, paginated listing projection UI
// collaborators browse. It filters by item-name substring and category,
// sorts by the requested order and pages the result. Pure projection:
// nothing in the registry is mutated and the returned rows share no
// memory with the entities. The second return is the total number of rows
// matching the filter, before pagination.
func (e *Engine) MarketSnapshot(q types.SnapshotQuery) ([]types.Listing, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowFn()
	sub := strings.ToLower(q.NameSubstring)

	rows := make([]types.Listing, 0, 64)
	for _, offer := range e.offers {
		if !offer.CanMatch(now) {
			continue
		}
		item, ok := e.catalog.Resolve(offer.ItemType)
		if !ok {
			continue
		}
		if sub != "" && !strings.Contains(strings.ToLower(item.Name), sub) {
			continue
		}
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		rows = append(rows, types.Listing{
			OfferID:      offer.ID,
			ItemType:     offer.ItemType,
			ItemName:     item.Name,
			Category:     item.Category,
			Quantity:     offer.QuantityRemaining,
			PricePerUnit: offer.PricePerUnit,
			SellerName:   offer.OwnerName,
			ExpiresAt:    offer.ExpiresAt,
		})
	}

	less := listingLess(q.Sort)
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })

	total := len(rows)
	offset, limit := q.Offset, q.Limit
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []types.Listing{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return rows[offset:end], total
}

func listingLess(s types.SnapshotSort) func(a, b types.Listing) bool {
	switch s {
	case types.SortPriceDesc:
		return func(a, b types.Listing) bool { return a.PricePerUnit > b.PricePerUnit }
	case types.SortQuantityDesc:
		return func(a, b types.Listing) bool { return a.Quantity > b.Quantity }
	case types.SortExpiryAsc:
		return func(a, b types.Listing) bool { return a.ExpiresAt < b.ExpiresAt }
	default:
		return func(a, b types.Listing) bool { return a.PricePerUnit < b.PricePerUnit }
	}
}

// PlayerSnapshot is the slot -> entity summary projection for one player.
// Returns nil for a player who never touched the marketplace.
func (e *Engine) PlayerSnapshot(owner uint64) []types.SlotSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := e.accounts.Get(owner)
	if acc == nil {
		return nil
	}
	out := make([]types.SlotSummary, 0, len(acc.SellSlots)+len(acc.BuySlots))
	for i, id := range acc.SellSlots {
		if id == 0 {
			continue
		}
		offer, ok := e.offers[id]
		if !ok {
			// dangling slot link, self-heal
			e.log.Warn("sell slot referenced missing offer")
			acc.ClearSellSlot(i)
			continue
		}
		out = append(out, types.SlotSummary{
			Kind:              types.SlotSell,
			SlotIndex:         i,
			EntityID:          offer.ID,
			ItemType:          offer.ItemType,
			QuantityTotal:     offer.QuantityTotal,
			QuantityRemaining: offer.QuantityRemaining,
			PricePerUnit:      offer.PricePerUnit,
			State:             offer.State,
			Enabled:           offer.Enabled,
			ExpiresAt:         offer.ExpiresAt,
		})
	}
	for i, id := range acc.BuySlots {
		if id == 0 {
			continue
		}
		order, ok := e.orders[id]
		if !ok {
			e.log.Warn("buy slot referenced missing order")
			acc.ClearBuySlot(i)
			continue
		}
		out = append(out, types.SlotSummary{
			Kind:              types.SlotBuy,
			SlotIndex:         i,
			EntityID:          order.ID,
			ItemType:          order.ItemType,
			QuantityTotal:     order.QuantityTotal,
			QuantityRemaining: order.QuantityRemaining,
			PricePerUnit:      order.PricePerUnit,
			State:             order.State,
			Enabled:           order.Enabled,
			ExpiresAt:         order.ExpiresAt,
		})
	}
	return out
}
