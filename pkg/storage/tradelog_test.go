package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func openTestLog(t *testing.T) *TradeLog {
	t.Helper()
	log, err := OpenTradeLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenTradeLog: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestSaveAndRecentTrades(t *testing.T) {
	log := openTestLog(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := log.SaveTrade(&Trade{
			Pair:      "ETH-USDC",
			Side:      "LONG",
			Price:     dec("2450.50"),
			Amount:    dec("0.5"),
			PnL:       decimal.NewFromInt(int64(i - 2)), // -2..2
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveTrade: %v", err)
		}
	}

	trades, err := log.RecentTrades("ETH-USDC", 3)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("got %d trades, want 3", len(trades))
	}
	// newest first
	for i := 1; i < len(trades); i++ {
		if trades[i].CreatedAt.After(trades[i-1].CreatedAt) {
			t.Errorf("trades out of order: %v before %v", trades[i-1].CreatedAt, trades[i].CreatedAt)
		}
	}

	// other pairs stay invisible
	other, err := log.RecentTrades("BTC-USDC", 10)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("BTC-USDC has %d trades, want 0", len(other))
	}
}

func TestSaveTradeFillsDefaults(t *testing.T) {
	log := openTestLog(t)

	trade := &Trade{Pair: "INK-USDC", Side: "SHORT", Price: dec("1"), Amount: dec("10")}
	if err := log.SaveTrade(trade); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}
	if trade.ID == "" {
		t.Error("ID not assigned")
	}
	if trade.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
}

func TestPairStats(t *testing.T) {
	log := openTestLog(t)

	fills := []struct {
		pnl    string
		price  string
		amount string
	}{
		{"10", "100", "1"},
		{"-4", "100", "-2"},
		{"6", "50", "0.5"},
	}
	for i, f := range fills {
		err := log.SaveTrade(&Trade{
			Pair:      "ETH-USDC",
			Side:      "LONG",
			Price:     dec(f.price),
			Amount:    dec(f.amount),
			PnL:       dec(f.pnl),
			CreatedAt: time.Date(2026, 8, 30, 12, i, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("SaveTrade: %v", err)
		}
	}

	stats, err := log.PairStats("ETH-USDC")
	if err != nil {
		t.Fatalf("PairStats: %v", err)
	}
	if stats.TradesCount != 3 {
		t.Errorf("count = %d, want 3", stats.TradesCount)
	}
	if !stats.TotalPnL.Equal(dec("12")) {
		t.Errorf("total pnl = %s, want 12", stats.TotalPnL)
	}
	// |1|*100 + |-2|*100 + |0.5|*50 = 325
	if !stats.TotalVolume.Equal(dec("325")) {
		t.Errorf("volume = %s, want 325", stats.TotalVolume)
	}
	if !stats.WinRate.Equal(dec("0.6667")) {
		t.Errorf("win rate = %s, want 0.6667", stats.WinRate)
	}
}

func TestPairStatsEmpty(t *testing.T) {
	log := openTestLog(t)

	stats, err := log.PairStats("ETH-USDC")
	if err != nil {
		t.Fatalf("PairStats: %v", err)
	}
	if stats.TradesCount != 0 || !stats.WinRate.IsZero() {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestTradesSince(t *testing.T) {
	log := openTestLog(t)

	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		err := log.SaveTrade(&Trade{
			Pair:      "ETH-USDC",
			Side:      "LONG",
			Price:     dec("100"),
			Amount:    dec("1"),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveTrade: %v", err)
		}
	}

	trades, err := log.TradesSince("ETH-USDC", base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("TradesSince: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if !trades[0].CreatedAt.Before(trades[1].CreatedAt) {
		t.Error("TradesSince should return oldest first")
	}
}
