package market

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/accounts"
	"github.com/pyralisxc/Medieval-Sim-sub001/config/encoding"
	"github.com/pyralisxc/Medieval-Sim-sub001/fee"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/matching"
	"github.com/pyralisxc/Medieval-Sim-sub001/pricehistory"
	"github.com/pyralisxc/Medieval-Sim-sub001/settlement"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

const namedLogger = "market"

// Params is the TOML-facing shape of the marketplace settings. It is
// validated and frozen into a types.MarketParams snapshot at startup.
type Params struct {
	MinPricePerUnit  uint64
	MaxPricePerUnit  uint64
	MinDurationDays  uint32
	MaxDurationDays  uint32
	SellSlots        int
	BuySlots         int
	SalesTaxPct      float64
	ListingFeePct    float64
	NotificationMax  int
	ExpirySweepTicks uint64
}

// Snapshot validates the parameters and returns the immutable form the
// engines are constructed with.
func (p Params) Snapshot() (types.MarketParams, error) {
	mp := types.MarketParams{
		MinPricePerUnit:  p.MinPricePerUnit,
		MaxPricePerUnit:  p.MaxPricePerUnit,
		MinDurationDays:  p.MinDurationDays,
		MaxDurationDays:  p.MaxDurationDays,
		SellSlots:        p.SellSlots,
		BuySlots:         p.BuySlots,
		SalesTaxPct:      p.SalesTaxPct,
		ListingFeePct:    p.ListingFeePct,
		NotificationMax:  p.NotificationMax,
		ExpirySweepTicks: p.ExpirySweepTicks,
	}
	if err := mp.Validate(); err != nil {
		return types.MarketParams{}, err
	}
	return mp, nil
}

// Config ties together the registry's own settings and those of the
// engines it owns.
type Config struct {
	Level encoding.LogLevel

	Params Params

	Accounts     accounts.Config
	Matching     matching.Config
	Fee          fee.Config
	Settlement   settlement.Config
	PriceHistory pricehistory.Config
}

// NewDefaultConfig creates an instance of the package-specific
// configuration, including every owned engine's defaults.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
		Params: Params{
			MinPricePerUnit:  1,
			MaxPricePerUnit:  2_000_000_000,
			MinDurationDays:  1,
			MaxDurationDays:  7,
			SellSlots:        10,
			BuySlots:         5,
			SalesTaxPct:      5,
			ListingFeePct:    1,
			NotificationMax:  20,
			ExpirySweepTicks: 6000, // five minutes of 50ms server ticks
		},
		Accounts:     accounts.NewDefaultConfig(),
		Matching:     matching.NewDefaultConfig(),
		Fee:          fee.NewDefaultConfig(),
		Settlement:   settlement.NewDefaultConfig(),
		PriceHistory: pricehistory.NewDefaultConfig(),
	}
}
