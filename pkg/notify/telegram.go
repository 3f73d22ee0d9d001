// Package notify pushes trading events to Telegram. Notifications are
// best-effort: a delivery failure is logged and never propagated into the
// trading path.
package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nadoxyz/makerbot/params"
	"github.com/nadoxyz/makerbot/pkg/storage"
)

// sender is the slice of the Telegram bot API we use; *bot.Bot satisfies it.
type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier sends formatted alerts to a single chat. The zero-value-like
// disabled Notifier (no token configured) swallows every call, so callers
// never branch on whether Telegram is set up.
type Notifier struct {
	bot     sender
	chatID  string
	cfg     params.Telegram
	log     *zap.SugaredLogger
	enabled bool
}

// New builds a Notifier from config. An empty bot token or chat id yields a
// disabled notifier and no error.
func New(cfg params.Telegram, log *zap.SugaredLogger) (*Notifier, error) {
	n := &Notifier{cfg: cfg, chatID: cfg.ChatID, log: log}
	if cfg.BotToken == "" || cfg.ChatID == "" {
		log.Info("telegram notifications disabled: no token or chat id configured")
		return n, nil
	}

	// skip the startup GetMe round-trip so construction never blocks on the
	// Telegram API
	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	n.bot = b
	n.enabled = true
	return n, nil
}

// NotifyOrderPlaced reports one accepted order.
func (n *Notifier) NotifyOrderPlaced(ctx context.Context, pair, side string, price, amount decimal.Decimal) {
	if !n.enabled || !n.cfg.NotifyOnTrade {
		return
	}
	emoji := "🟢"
	if side == "SHORT" {
		emoji = "🔴"
	}
	n.send(ctx, fmt.Sprintf(
		"%s <b>%s %s</b>\nPrice: <code>%s</code>\nAmount: <code>%s</code>",
		emoji, side, pair, price.String(), amount.String()))
}

// NotifyTrade reports a recorded fill. PnL alerts below the configured
// threshold are suppressed unless per-trade notifications are on.
func (n *Notifier) NotifyTrade(ctx context.Context, trade *storage.Trade) {
	if !n.enabled {
		return
	}
	if !n.cfg.NotifyOnTrade && trade.PnL.Abs().LessThan(n.cfg.PnLThreshold) {
		return
	}
	n.send(ctx, fmt.Sprintf(
		"💱 <b>%s %s</b>\nPrice: <code>%s</code>\nAmount: <code>%s</code>\nPnL: <code>%s</code>",
		trade.Side, trade.Pair, trade.Price.String(), trade.Amount.String(), trade.PnL.String()))
}

// NotifyCancelled reports a product-wide cancellation.
func (n *Notifier) NotifyCancelled(ctx context.Context, pair string, cleared int) {
	if !n.enabled || !n.cfg.NotifyOnTrade {
		return
	}
	n.send(ctx, fmt.Sprintf("🚫 Cancelled <b>%d</b> orders on <b>%s</b>", cleared, pair))
}

// NotifyDailyReport summarizes a pair's stored statistics.
func (n *Notifier) NotifyDailyReport(ctx context.Context, stats storage.Stats) {
	if !n.enabled {
		return
	}
	winRate := stats.WinRate.Shift(2).Round(2)
	n.send(ctx, fmt.Sprintf(
		"📊 <b>Daily Report — %s</b>\nTrades: <code>%d</code>\nVolume: <code>%s</code>\nPnL: <code>%s</code>\nWin rate: <code>%s%%</code>",
		stats.Pair, stats.TradesCount, stats.TotalVolume.String(), stats.TotalPnL.String(), winRate.String()))
}

func (n *Notifier) send(ctx context.Context, text string) {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		n.log.Warnw("telegram send failed (ignored)", "error", err)
	}
}
