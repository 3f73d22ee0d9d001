package api

import (
	"github.com/shopspring/decimal"

	"github.com/nadoxyz/makerbot/pkg/mm"
	"github.com/nadoxyz/makerbot/pkg/storage"
)

// ProductInfo describes a configured market.
type ProductInfo struct {
	Pair     string `json:"pair"`
	ID       uint32 `json:"productId"`
	TickSize string `json:"tickSize"`
}

// LadderRequest asks the bot to quote a ladder on one pair. MidPrice is
// optional; when omitted the bot derives it from the gateway orderbook.
type LadderRequest struct {
	Pair           string          `json:"pair"`
	MidPrice       decimal.Decimal `json:"midPrice"`
	SpreadPercent  decimal.Decimal `json:"spreadPercent"`
	OrderCount     int             `json:"orderCount"`
	AmountPerOrder decimal.Decimal `json:"amountPerOrder"`
	OrderType      string          `json:"orderType"` // LIMIT, IOC, FOK, POST_ONLY
}

// LadderResponse reports the outcome of a ladder run.
type LadderResponse struct {
	Pair         string   `json:"pair"`
	OrdersPlaced int      `json:"ordersPlaced"`
	Errors       []string `json:"errors,omitempty"`
	Success      bool     `json:"success"`
}

// CancelRequest asks for a product-wide cancellation.
type CancelRequest struct {
	Pair string `json:"pair"`
}

// TradeRequest records an observed fill into the trade log.
type TradeRequest struct {
	Pair     string          `json:"pair"`
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	PnL      decimal.Decimal `json:"pnl"`
	Margin   decimal.Decimal `json:"margin"`
	Leverage int             `json:"leverage"`
}

// StatusInfo is the bot's current submission state.
type StatusInfo struct {
	Phase     string `json:"phase"`
	Loading   bool   `json:"loading"`
	LastError string `json:"lastError,omitempty"`
}

// PendingUpdate is pushed over WebSocket after each order placement.
type PendingUpdate struct {
	Type    string           `json:"type"` // "pending"
	Pair    string           `json:"pair"`
	Pending []mm.PendingOrder `json:"pending"`
}

// TradeUpdate is pushed over WebSocket after a fill is recorded.
type TradeUpdate struct {
	Type  string         `json:"type"` // "trade"
	Pair  string         `json:"pair"`
	Trade *storage.Trade `json:"trade"`
}

// WSSubscribeRequest is the client -> server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // subscribe | unsubscribe
	Channels []string `json:"channels"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
