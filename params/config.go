package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Gateway holds connection parameters for the Nado gateway.
type Gateway struct {
	Endpoint       string        // e.g. https://gateway.prod.nado.xyz/v1
	ChainID        int64         // 57073 = Ink mainnet
	RequestTimeout time.Duration // per HTTP round-trip
}

// Product maps a trading pair to its on-chain product and tick size.
type Product struct {
	Pair      string // e.g. "ETH-USDC"
	ID        uint32
	TickSize  decimal.Decimal // 0 disables tick rounding
	SizeScale int32           // fractional digits kept on order amounts
}

// Trading holds the parameters of ladder construction and submission.
type Trading struct {
	SubaccountName string        // 12-byte subaccount label, "default" unless overridden
	OrderExpiry    time.Duration // order expiration from now
	LatencyBuffer  time.Duration // nonce recv-time forward buffer
	StepTimeout    time.Duration // per signing / submission step; 0 = no timeout
	SpreadPercent  decimal.Decimal
	OrderCount     int
	AmountPerOrder decimal.Decimal
}

// Telegram holds push-notification settings. Empty token disables alerts.
type Telegram struct {
	BotToken      string
	ChatID        string
	NotifyOnTrade bool
	NotifyOnPnL   bool
	PnLThreshold  decimal.Decimal
}

type Config struct {
	Gateway  Gateway
	Trading  Trading
	Telegram Telegram
	Products []Product
	APIAddr  string // dashboard REST/WebSocket listen address
	DataDir  string // pebble trade log location
	LogFile  string
}

func Default() Config {
	return Config{
		Gateway: Gateway{
			Endpoint:       "https://gateway.prod.nado.xyz/v1",
			ChainID:        57073,
			RequestTimeout: 10 * time.Second,
		},
		Trading: Trading{
			SubaccountName: "default",
			OrderExpiry:    24 * time.Hour,
			LatencyBuffer:  5 * time.Second,
			StepTimeout:    30 * time.Second,
			SpreadPercent:  decimal.RequireFromString("0.1"),
			OrderCount:     2,
			AmountPerOrder: decimal.RequireFromString("1"),
		},
		Telegram: Telegram{
			NotifyOnTrade: true,
			PnLThreshold:  decimal.RequireFromString("10"),
		},
		Products: []Product{
			{Pair: "BTC-USDC", ID: 2, TickSize: decimal.RequireFromString("1"), SizeScale: 6},
			{Pair: "ETH-USDC", ID: 4, TickSize: decimal.RequireFromString("0.1"), SizeScale: 6},
			{Pair: "SOL-USDC", ID: 8, TickSize: decimal.RequireFromString("0.01"), SizeScale: 6},
			{Pair: "INK-USDC", ID: 42, TickSize: decimal.RequireFromString("0.0001"), SizeScale: 6},
		},
		APIAddr: ":8080",
		DataDir: "data/makerbot",
		LogFile: "data/makerbot.log",
	}
}

// FindProduct returns the product config for a pair symbol.
func (c Config) FindProduct(pair string) (Product, bool) {
	for _, p := range c.Products {
		if strings.EqualFold(p.Pair, pair) {
			return p, true
		}
	}
	return Product{}, false
}

// ProductByID returns the product config for an on-chain product id.
func (c Config) ProductByID(id uint32) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables.
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("NADO_GATEWAY"); v != "" {
		cfg.Gateway.Endpoint = v
	}
	if v := os.Getenv("NADO_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Gateway.ChainID = id
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.RequestTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("SUBACCOUNT_NAME"); v != "" {
		cfg.Trading.SubaccountName = v
	}
	if v := os.Getenv("ORDER_EXPIRY_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			cfg.Trading.OrderExpiry = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("LATENCY_BUFFER_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Trading.LatencyBuffer = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("STEP_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Trading.StepTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SPREAD_PERCENT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Trading.SpreadPercent = d
		}
	}
	if v := os.Getenv("ORDER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Trading.OrderCount = n
		}
	}
	if v := os.Getenv("AMOUNT_PER_ORDER"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Trading.AmountPerOrder = d
		}
	}

	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("TELEGRAM_NOTIFY_ON_TRADE"); v != "" {
		cfg.Telegram.NotifyOnTrade = v == "true"
	}
	if v := os.Getenv("TELEGRAM_PNL_THRESHOLD"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Telegram.PnLThreshold = d
		}
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return cfg
}
