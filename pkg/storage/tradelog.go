// Package storage persists the bot's fill history in Pebble. The log is
// append-heavy and read back only for the dashboard's recent-trades view and
// PnL statistics, so everything is stored as JSON under time-ordered keys.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is one recorded fill.
type Trade struct {
	ID        string          `json:"id"`
	Pair      string          `json:"pair"`
	Side      string          `json:"side"` // LONG or SHORT
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	PnL       decimal.Decimal `json:"pnl"`
	Margin    decimal.Decimal `json:"margin"`
	Leverage  int             `json:"leverage"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Stats aggregates the stored history of one pair.
type Stats struct {
	Pair        string          `json:"pair"`
	TradesCount int             `json:"tradesCount"`
	TotalPnL    decimal.Decimal `json:"totalPnl"`
	TotalVolume decimal.Decimal `json:"totalVolume"` // sum of |amount| * price
	WinRate     decimal.Decimal `json:"winRate"`     // fraction of trades with positive PnL
}

type TradeLog struct {
	db *pebble.DB
}

func OpenTradeLog(path string) (*TradeLog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}
	return &TradeLog{db: db}, nil
}

func (l *TradeLog) Close() error { return l.db.Close() }

// keys: trade:<pair>:<20-digit-unix-nano>:<id>, zero-padded so a prefix scan
// walks trades in time order
func tradeKey(pair string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("trade:%s:%020d:%s", pair, at.UnixNano(), id))
}

func tradePrefix(pair string) []byte {
	return []byte(fmt.Sprintf("trade:%s:", pair))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// SaveTrade appends a trade. A missing ID or timestamp is filled in; the
// write is NoSync because a lost tail entry on crash only costs history.
func (l *TradeLog) SaveTrade(trade *Trade) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	key := tradeKey(trade.Pair, trade.CreatedAt, trade.ID)
	if err := l.db.Set(key, data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// RecentTrades returns up to limit trades for a pair, newest first.
func (l *TradeLog) RecentTrades(pair string, limit int) ([]*Trade, error) {
	prefix := tradePrefix(pair)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var trades []*Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var trade Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			continue // skip invalid entries
		}
		trades = append(trades, &trade)
	}
	return trades, nil
}

// PairStats walks a pair's full history and aggregates it.
func (l *TradeLog) PairStats(pair string) (Stats, error) {
	prefix := tradePrefix(pair)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	stats := Stats{Pair: pair}
	wins := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var trade Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			continue
		}
		stats.TradesCount++
		stats.TotalPnL = stats.TotalPnL.Add(trade.PnL)
		stats.TotalVolume = stats.TotalVolume.Add(trade.Amount.Abs().Mul(trade.Price))
		if trade.PnL.Sign() > 0 {
			wins++
		}
	}

	if stats.TradesCount > 0 {
		stats.WinRate = decimal.NewFromInt(int64(wins)).
			Div(decimal.NewFromInt(int64(stats.TradesCount))).
			Round(4)
	}
	return stats, nil
}

// TradesSince returns every trade for a pair at or after the cutoff, oldest
// first. Used for the daily report.
func (l *TradeLog) TradesSince(pair string, cutoff time.Time) ([]*Trade, error) {
	lower := tradeKey(pair, cutoff, "")
	upper := keyUpperBound(tradePrefix(pair))
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var trades []*Trade
	for iter.First(); iter.Valid(); iter.Next() {
		var trade Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			continue
		}
		trades = append(trades, &trade)
	}
	return trades, nil
}
