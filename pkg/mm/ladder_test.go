package mm

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerateLadderTwoRungs(t *testing.T) {
	ladder, err := GenerateLadder(LadderConfig{
		MidPrice:      dec("2450.50"),
		SpreadPercent: dec("0.1"),
		RungCount:     2,
		AmountPerRung: dec("0.5"),
	})
	if err != nil {
		t.Fatalf("GenerateLadder: %v", err)
	}

	wantBids := []string{"2448.0495", "2445.599"}
	wantAsks := []string{"2452.9505", "2455.401"}

	if len(ladder.Bids) != 2 || len(ladder.Asks) != 2 {
		t.Fatalf("got %d bids, %d asks, want 2 each", len(ladder.Bids), len(ladder.Asks))
	}
	for i := range wantBids {
		if !ladder.Bids[i].Price.Equal(dec(wantBids[i])) {
			t.Errorf("bid %d price = %s, want %s", i+1, ladder.Bids[i].Price, wantBids[i])
		}
		if !ladder.Asks[i].Price.Equal(dec(wantAsks[i])) {
			t.Errorf("ask %d price = %s, want %s", i+1, ladder.Asks[i].Price, wantAsks[i])
		}
		if !ladder.Bids[i].Amount.Equal(dec("0.5")) {
			t.Errorf("bid %d amount = %s, want 0.5", i+1, ladder.Bids[i].Amount)
		}
		if !ladder.Asks[i].Amount.Equal(dec("-0.5")) {
			t.Errorf("ask %d amount = %s, want -0.5", i+1, ladder.Asks[i].Amount)
		}
	}
}

func TestGenerateLadderSymmetry(t *testing.T) {
	mid := dec("100")
	ladder, err := GenerateLadder(LadderConfig{
		MidPrice:      mid,
		SpreadPercent: dec("0.25"),
		RungCount:     5,
		AmountPerRung: dec("2"),
	})
	if err != nil {
		t.Fatalf("GenerateLadder: %v", err)
	}

	for i := range ladder.Bids {
		// mid - bid == ask - mid for every rung
		down := mid.Sub(ladder.Bids[i].Price)
		up := ladder.Asks[i].Price.Sub(mid)
		if !down.Equal(up) {
			t.Errorf("rung %d asymmetric: mid-bid=%s ask-mid=%s", i+1, down, up)
		}
	}

	// bids fall, asks rise, moving away from mid
	for i := 1; i < len(ladder.Bids); i++ {
		if !ladder.Bids[i].Price.LessThan(ladder.Bids[i-1].Price) {
			t.Errorf("bid %d (%s) not below bid %d (%s)", i+1, ladder.Bids[i].Price, i, ladder.Bids[i-1].Price)
		}
		if !ladder.Asks[i].Price.GreaterThan(ladder.Asks[i-1].Price) {
			t.Errorf("ask %d (%s) not above ask %d (%s)", i+1, ladder.Asks[i].Price, i, ladder.Asks[i-1].Price)
		}
	}
}

func TestGenerateLadderZeroRungs(t *testing.T) {
	ladder, err := GenerateLadder(LadderConfig{
		MidPrice:      dec("50"),
		SpreadPercent: dec("0.1"),
		RungCount:     0,
		AmountPerRung: dec("1"),
	})
	if err != nil {
		t.Fatalf("rung count 0 should be valid: %v", err)
	}
	if len(ladder.Bids) != 0 || len(ladder.Asks) != 0 {
		t.Fatalf("got %d bids, %d asks, want empty ladder", len(ladder.Bids), len(ladder.Asks))
	}
}

func TestGenerateLadderZeroSpread(t *testing.T) {
	mid := dec("123.456")
	ladder, err := GenerateLadder(LadderConfig{
		MidPrice:      mid,
		SpreadPercent: decimal.Zero,
		RungCount:     3,
		AmountPerRung: dec("1"),
	})
	if err != nil {
		t.Fatalf("zero spread should be valid: %v", err)
	}
	for i := range ladder.Bids {
		if !ladder.Bids[i].Price.Equal(mid) || !ladder.Asks[i].Price.Equal(mid) {
			t.Errorf("rung %d prices %s/%s, want all at mid %s", i+1, ladder.Bids[i].Price, ladder.Asks[i].Price, mid)
		}
	}
}

func TestGenerateLadderRejectsBadConfig(t *testing.T) {
	base := LadderConfig{
		MidPrice:      dec("100"),
		SpreadPercent: dec("0.1"),
		RungCount:     2,
		AmountPerRung: dec("1"),
	}

	tests := []struct {
		name   string
		mutate func(*LadderConfig)
	}{
		{"negative spread", func(c *LadderConfig) { c.SpreadPercent = dec("-0.1") }},
		{"zero mid", func(c *LadderConfig) { c.MidPrice = decimal.Zero }},
		{"negative mid", func(c *LadderConfig) { c.MidPrice = dec("-5") }},
		{"negative rung count", func(c *LadderConfig) { c.RungCount = -1 }},
		{"zero amount", func(c *LadderConfig) { c.AmountPerRung = decimal.Zero }},
		{"negative tick", func(c *LadderConfig) { c.TickSize = dec("-0.01") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := GenerateLadder(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestGenerateLadderTickQuantize(t *testing.T) {
	ladder, err := GenerateLadder(LadderConfig{
		MidPrice:      dec("100.3"),
		SpreadPercent: dec("1"),
		RungCount:     1,
		AmountPerRung: dec("1"),
		TickSize:      dec("0.5"),
	})
	if err != nil {
		t.Fatalf("GenerateLadder: %v", err)
	}

	// raw bid 99.297 -> 99.5, raw ask 101.303 -> 101.5 (nearest tick)
	if got := ladder.Bids[0].Price; !got.Equal(dec("99.5")) {
		t.Errorf("bid = %s, want 99.5", got)
	}
	if got := ladder.Asks[0].Price; !got.Equal(dec("101.5")) {
		t.Errorf("ask = %s, want 101.5", got)
	}
}

func TestQuantizeFloorsTo18Digits(t *testing.T) {
	// 1/3 of a percent spread yields a non-terminating price; it must come
	// out with at most 18 fractional digits so the X18 conversion is exact.
	p := quantize(dec("100").Mul(decimal.New(1, 0).Sub(dec("1").Div(dec("300")))), decimal.Zero)
	if p.Exponent() < -18 {
		t.Fatalf("price %s has more than 18 fractional digits", p)
	}
}

func TestRungSide(t *testing.T) {
	if got := (Rung{Amount: dec("1")}).Side(); got != SideLong {
		t.Errorf("positive amount side = %s, want LONG", got)
	}
	if got := (Rung{Amount: dec("-1")}).Side(); got != SideShort {
		t.Errorf("negative amount side = %s, want SHORT", got)
	}
}
