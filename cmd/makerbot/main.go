package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadoxyz/makerbot/params"
	"github.com/nadoxyz/makerbot/pkg/api"
	"github.com/nadoxyz/makerbot/pkg/crypto"
	"github.com/nadoxyz/makerbot/pkg/exchange"
	"github.com/nadoxyz/makerbot/pkg/mm"
	"github.com/nadoxyz/makerbot/pkg/notify"
	"github.com/nadoxyz/makerbot/pkg/storage"
	"github.com/nadoxyz/makerbot/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	// ---- Signer ----
	// The daemon signs with a local key; the dashboard flow delegates to a
	// browser wallet instead and never needs PRIVATE_KEY.
	var signer crypto.Signer
	if hexKey := os.Getenv("PRIVATE_KEY"); hexKey != "" {
		local, err := crypto.FromPrivateKeyHex(hexKey)
		if err != nil {
			sugar.Fatalw("signer_init_failed", "err", err)
		}
		signer = local
		sugar.Infow("signer_loaded", "address", crypto.ChecksumAddress(local.Address()))
	} else {
		sugar.Warn("PRIVATE_KEY not set - submissions will fail until a signer is configured")
	}

	// ---- Gateway client ----
	gateway := exchange.NewClient(cfg.Gateway.Endpoint, cfg.Gateway.RequestTimeout, sugar)
	sugar.Infow("gateway_configured", "endpoint", cfg.Gateway.Endpoint, "chain_id", cfg.Gateway.ChainID)

	// ---- Trade log ----
	trades, err := storage.OpenTradeLog(cfg.DataDir)
	if err != nil {
		sugar.Fatalw("trade_log_open_failed", "err", err, "path", cfg.DataDir)
	}
	defer trades.Close()

	// ---- Telegram notifier ----
	notifier, err := notify.New(cfg.Telegram, sugar)
	if err != nil {
		sugar.Fatalw("telegram_init_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Orchestrator ----
	clock := util.RealClock{}
	builder := exchange.NewBuilder(
		clock,
		exchange.NewNonceSource(clock),
		cfg.Trading.LatencyBuffer,
		cfg.Trading.OrderExpiry,
	)
	orch := mm.NewOrchestrator(signer, gateway, builder, clock, sugar, mm.Config{
		ChainID:        cfg.Gateway.ChainID,
		SubaccountName: cfg.Trading.SubaccountName,
		StepTimeout:    cfg.Trading.StepTimeout,
	})

	// ---- API Server ----
	apiServer := api.NewServer(cfg, orch, gateway, trades)

	// Hook orchestrator events to notifications and the WebSocket feed
	orch.OnOrderPlaced = func(po mm.PendingOrder) {
		pair := pairForProduct(cfg, po.ProductID)
		notifier.NotifyOrderPlaced(ctx, pair, string(po.Side), po.Price, po.Amount)
		apiServer.BroadcastPending(pair, po.ProductID)
	}
	orch.OnCancelled = func(productID uint32, cleared int) {
		pair := pairForProduct(cfg, productID)
		notifier.NotifyCancelled(ctx, pair, cleared)
		apiServer.BroadcastPending(pair, productID)
	}

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.APIAddr)
		if err := apiServer.Start(cfg.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Daily report loop ----
	reportTicker := time.NewTicker(24 * time.Hour)
	defer reportTicker.Stop()

	sugar.Infow("makerbot_started",
		"products", len(cfg.Products),
		"spread_percent", cfg.Trading.SpreadPercent.String(),
		"order_count", cfg.Trading.OrderCount)

	for {
		select {
		case <-ctx.Done():
			sugar.Info("shutting down")
			return
		case <-reportTicker.C:
			for _, p := range cfg.Products {
				stats, err := trades.PairStats(p.Pair)
				if err != nil {
					sugar.Warnw("stats_failed", "pair", p.Pair, "err", err)
					continue
				}
				if stats.TradesCount > 0 {
					notifier.NotifyDailyReport(ctx, stats)
				}
			}
		}
	}
}

func pairForProduct(cfg params.Config, productID uint32) string {
	if p, ok := cfg.ProductByID(productID); ok {
		return p.Pair
	}
	return "unknown"
}
