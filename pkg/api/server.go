// Package api exposes the maker bot's dashboard surface: REST endpoints for
// ladder control and trade history, plus a WebSocket feed of pending-order
// and fill events.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/nadoxyz/makerbot/params"
	"github.com/nadoxyz/makerbot/pkg/exchange"
	"github.com/nadoxyz/makerbot/pkg/mm"
	"github.com/nadoxyz/makerbot/pkg/storage"
)

// Server handles REST API and WebSocket connections
type Server struct {
	cfg     params.Config
	orch    *mm.Orchestrator
	gateway *exchange.Client
	trades  *storage.TradeLog
	router  *mux.Router
	hub     *Hub
}

// NewServer creates a new API server
func NewServer(cfg params.Config, orch *mm.Orchestrator, gateway *exchange.Client, trades *storage.TradeLog) *Server {
	s := &Server{
		cfg:     cfg,
		orch:    orch,
		gateway: gateway,
		trades:  trades,
		router:  mux.NewRouter(),
		hub:     NewHub(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market and state endpoints
	api.HandleFunc("/products", s.handleGetProducts).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/pending", s.handleGetPending).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")

	// Trading actions
	api.HandleFunc("/ladder", s.handlePostLadder).Methods("POST")
	api.HandleFunc("/cancel", s.handlePostCancel).Methods("POST")
	api.HandleFunc("/trades", s.handlePostTrade).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	response := make([]ProductInfo, len(s.cfg.Products))
	for i, p := range s.cfg.Products {
		response[i] = ProductInfo{
			Pair:     p.Pair,
			ID:       p.ID,
			TickSize: p.TickSize.String(),
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, StatusInfo{
		Phase:     string(s.orch.CurrentPhase()),
		Loading:   s.orch.IsLoading(),
		LastError: s.orch.LastError(),
	})
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		respondJSON(w, s.orch.Pending())
		return
	}

	product, ok := s.cfg.FindProduct(pair)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown pair", pair)
		return
	}
	respondJSON(w, s.orch.PendingFor(product.ID))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		respondError(w, http.StatusBadRequest, "missing pair", "")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades, err := s.trades.RecentTrades(pair, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load trades", err.Error())
		return
	}
	if trades == nil {
		trades = []*storage.Trade{}
	}
	respondJSON(w, trades)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		respondError(w, http.StatusBadRequest, "missing pair", "")
		return
	}

	stats, err := s.trades.PairStats(pair)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats", err.Error())
		return
	}
	respondJSON(w, stats)
}

func (s *Server) handlePostLadder(w http.ResponseWriter, r *http.Request) {
	var req LadderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	product, ok := s.cfg.FindProduct(req.Pair)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown pair", req.Pair)
		return
	}

	if s.orch.IsLoading() {
		respondError(w, http.StatusConflict, "submission in progress", "")
		return
	}

	typ, err := exchange.ParseOrderType(req.OrderType)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order type", err.Error())
		return
	}

	mid := req.MidPrice
	if mid.Sign() <= 0 {
		mid, err = s.midPrice(r.Context(), product.ID)
		if err != nil {
			respondError(w, http.StatusBadGateway, "failed to derive mid price", err.Error())
			return
		}
	}

	lcfg := mm.LadderConfig{
		MidPrice:      mid,
		SpreadPercent: s.cfg.Trading.SpreadPercent,
		RungCount:     s.cfg.Trading.OrderCount,
		AmountPerRung: s.cfg.Trading.AmountPerOrder,
		TickSize:      product.TickSize,
	}
	if req.SpreadPercent.Sign() > 0 {
		lcfg.SpreadPercent = req.SpreadPercent
	}
	if req.OrderCount > 0 {
		lcfg.RungCount = req.OrderCount
	}
	if req.AmountPerOrder.Sign() > 0 {
		lcfg.AmountPerRung = req.AmountPerOrder
	}

	res := s.orch.SubmitLadder(r.Context(), product.ID, lcfg, typ)

	log.Printf("[api] ladder submitted: pair=%s placed=%d errors=%d", req.Pair, res.OrdersPlaced, len(res.Errors))
	s.BroadcastPending(req.Pair, product.ID)

	respondJSON(w, LadderResponse{
		Pair:         req.Pair,
		OrdersPlaced: res.OrdersPlaced,
		Errors:       res.Errors,
		Success:      res.Success(),
	})
}

func (s *Server) handlePostCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	product, ok := s.cfg.FindProduct(req.Pair)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown pair", req.Pair)
		return
	}

	if err := s.orch.CancelAll(r.Context(), product.ID); err != nil {
		respondError(w, http.StatusBadGateway, "cancel failed", err.Error())
		return
	}

	log.Printf("[api] cancel submitted: pair=%s", req.Pair)
	s.BroadcastPending(req.Pair, product.ID)

	respondJSON(w, map[string]string{"status": "cancelled", "pair": req.Pair})
}

func (s *Server) handlePostTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Pair == "" {
		respondError(w, http.StatusBadRequest, "missing pair", "")
		return
	}

	trade := &storage.Trade{
		Pair:     req.Pair,
		Side:     req.Side,
		Price:    req.Price,
		Amount:   req.Amount,
		PnL:      req.PnL,
		Margin:   req.Margin,
		Leverage: req.Leverage,
	}
	if err := s.trades.SaveTrade(trade); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save trade", err.Error())
		return
	}

	s.hub.BroadcastToChannel("trades:"+req.Pair, TradeUpdate{
		Type:  "trade",
		Pair:  req.Pair,
		Trade: trade,
	})

	respondJSON(w, trade)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// BroadcastPending pushes the current pending set for a pair to subscribers.
func (s *Server) BroadcastPending(pair string, productID uint32) {
	s.hub.BroadcastToChannel("pending:"+pair, PendingUpdate{
		Type:    "pending",
		Pair:    pair,
		Pending: s.orch.PendingFor(productID),
	})
}

// ==============================
// Helper Functions
// ==============================

// midPrice derives a mid from the gateway's best bid and ask.
func (s *Server) midPrice(ctx context.Context, productID uint32) (decimal.Decimal, error) {
	book, err := s.gateway.Orderbook(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return decimal.Zero, exchange.ErrExchangeRejected
	}

	bid, err := decimal.NewFromString(book.Bids[0][0])
	if err != nil {
		return decimal.Zero, err
	}
	ask, err := decimal.NewFromString(book.Asks[0][0])
	if err != nil {
		return decimal.Zero, err
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
