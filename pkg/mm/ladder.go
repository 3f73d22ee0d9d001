// Package mm contains the market-making engine: ladder generation and the
// sequential submission orchestrator that turns rungs into signed orders.
package mm

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig marks ladder parameters rejected before any rung is
// computed; nothing is signed or submitted.
var ErrInvalidConfig = errors.New("mm: invalid ladder config")

// Side of a rung, derived from the sign of its amount.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Rung is one price level of a ladder. Positive amounts bid (long),
// negative amounts ask (short).
type Rung struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

func (r Rung) Side() Side {
	if r.Amount.Sign() < 0 {
		return SideShort
	}
	return SideLong
}

// Ladder is a symmetric set of quotes around the mid price. Both slices are
// ordered nearest-to-mid first.
type Ladder struct {
	Bids []Rung
	Asks []Rung
}

// LadderConfig describes the ladder to quote.
type LadderConfig struct {
	MidPrice      decimal.Decimal
	SpreadPercent decimal.Decimal // per-rung offset in percent of mid
	RungCount     int
	AmountPerRung decimal.Decimal
	TickSize      decimal.Decimal // rounds prices to the product tick; 0 disables
}

func (c LadderConfig) validate() error {
	if c.MidPrice.Sign() <= 0 {
		return fmt.Errorf("%w: mid price %s must be positive", ErrInvalidConfig, c.MidPrice)
	}
	if c.SpreadPercent.Sign() < 0 {
		return fmt.Errorf("%w: spread %s%% must be non-negative", ErrInvalidConfig, c.SpreadPercent)
	}
	if c.RungCount < 0 {
		return fmt.Errorf("%w: rung count %d must be non-negative", ErrInvalidConfig, c.RungCount)
	}
	if c.AmountPerRung.Sign() <= 0 {
		return fmt.Errorf("%w: amount per rung %s must be positive", ErrInvalidConfig, c.AmountPerRung)
	}
	if c.TickSize.Sign() < 0 {
		return fmt.Errorf("%w: tick size %s must be non-negative", ErrInvalidConfig, c.TickSize)
	}
	return nil
}

// GenerateLadder computes rung i in [1, RungCount] at offset i*spread/100:
// bids at mid*(1-offset), asks at mid*(1+offset). A zero spread quotes every
// rung at mid, which is a degenerate but valid ladder. Validation failures
// reject the whole config before any rung exists.
func GenerateLadder(cfg LadderConfig) (Ladder, error) {
	if err := cfg.validate(); err != nil {
		return Ladder{}, err
	}

	ladder := Ladder{
		Bids: make([]Rung, 0, cfg.RungCount),
		Asks: make([]Rung, 0, cfg.RungCount),
	}

	one := decimal.NewFromInt(1)
	step := cfg.SpreadPercent.Shift(-2) // percent -> fraction, exact

	for i := 1; i <= cfg.RungCount; i++ {
		offset := step.Mul(decimal.NewFromInt(int64(i)))

		bid := quantize(cfg.MidPrice.Mul(one.Sub(offset)), cfg.TickSize)
		ask := quantize(cfg.MidPrice.Mul(one.Add(offset)), cfg.TickSize)

		ladder.Bids = append(ladder.Bids, Rung{Price: bid, Amount: cfg.AmountPerRung})
		ladder.Asks = append(ladder.Asks, Rung{Price: ask, Amount: cfg.AmountPerRung.Neg()})
	}

	return ladder, nil
}

// quantize rounds a price to the product's tick size (nearest tick, the
// dashboard's behavior), then floors to 18 fractional digits so the X18
// conversion downstream is always exact.
func quantize(p, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() > 0 {
		p = p.DivRound(tick, 0).Mul(tick)
	}
	return p.RoundFloor(18)
}
