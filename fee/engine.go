package fee

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/types"
)

const namedLogger = "fee"

// Engine computes the sales tax and listing fee taken out of the seller's
// gross proceeds. The percentage factors come from the validated config
// snapshot and are fixed for the engine's lifetime.
type Engine struct {
	log *logging.Logger
	cfg Config

	f factors
}

type factors struct {
	salesTax   decimal.Decimal
	listingFee decimal.Decimal
}

// Breakdown is the money split of one settled quantity. Gross is what the
// buyer's escrow pays, Net is what the seller receives.
type Breakdown struct {
	Gross      uint64
	SalesTax   uint64
	ListingFee uint64
	Net        uint64
}

// New builds the fee engine from the configured percentages of gross.
func New(log *logging.Logger, cfg Config, params types.MarketParams) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	hundred := decimal.NewFromInt(100)
	return &Engine{
		log: log,
		cfg: cfg,
		f: factors{
			salesTax:   decimal.NewFromFloat(params.SalesTaxPct).Div(hundred),
			listingFee: decimal.NewFromFloat(params.ListingFeePct).Div(hundred),
		},
	}
}

// CalculateForTrade splits quantity * executionPrice into tax, fee and net
// proceeds. Tax and fee round down, so the seller never pays a fraction up
// and net never goes negative.
func (e *Engine) CalculateForTrade(quantity, executionPrice uint64) Breakdown {
	gross := quantity * executionPrice
	g := decimal.NewFromBigInt(new(big.Int).SetUint64(gross), 0)
	tax := g.Mul(e.f.salesTax).Floor()
	fee := g.Mul(e.f.listingFee).Floor()

	b := Breakdown{
		Gross:      gross,
		SalesTax:   uint64(tax.IntPart()),
		ListingFee: uint64(fee.IntPart()),
	}
	// the fee yields before net can go below zero, however the rates are set
	if b.ListingFee > b.Gross-b.SalesTax {
		b.ListingFee = b.Gross - b.SalesTax
	}
	b.Net = b.Gross - b.SalesTax - b.ListingFee
	return b
}
