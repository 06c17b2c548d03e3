package types

// MarketParams is the validated, immutable configuration snapshot the
// registry is constructed with. Values are loaded and bounds-checked once
// at startup; nothing reads configuration dynamically after that.
type MarketParams struct {
	// Price bounds, coins per unit, inclusive.
	MinPricePerUnit uint64
	MaxPricePerUnit uint64

	// Listing duration bounds, whole days, inclusive.
	MinDurationDays uint32
	MaxDurationDays uint32

	// Slot counts per player account.
	SellSlots int
	BuySlots  int

	// Percentages of gross applied on the seller's proceeds.
	SalesTaxPct   float64
	ListingFeePct float64

	// Maximum retained sale notifications per account.
	NotificationMax int

	// Number of ticks between expiration sweeps.
	ExpirySweepTicks uint64
}

// Validate reports the first out-of-range parameter found.
func (p MarketParams) Validate() error {
	if p.MinPricePerUnit == 0 || p.MaxPricePerUnit < p.MinPricePerUnit {
		return ErrInvalidPrice
	}
	if p.MinDurationDays == 0 || p.MaxDurationDays < p.MinDurationDays {
		return ErrInvalidDuration
	}
	if p.SellSlots <= 0 || p.BuySlots <= 0 {
		return ErrSlotOutOfRange
	}
	if p.SalesTaxPct < 0 || p.ListingFeePct < 0 ||
		p.SalesTaxPct+p.ListingFeePct >= 100 {
		return ErrInvalidPrice
	}
	if p.ExpirySweepTicks == 0 {
		return ErrInvalidDuration
	}
	return nil
}
