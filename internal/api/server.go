// Package api is the ambient HTTP surface (spec §6): a single
// POST /process endpoint that hands the raw envelope to the action
// router, plus a handful of read-only REST conveniences and a
// websocket broadcast channel, grounded on the node's pkg/api/server.go
// mux+cors wiring.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/market"
	"github.com/cradle-exchange/cradle/internal/orderbook"
	"github.com/cradle-exchange/cradle/internal/ramp"
	"github.com/cradle-exchange/cradle/internal/router"
	"github.com/cradle-exchange/cradle/internal/timeseries"
)

type Server struct {
	router  *router.Router
	markets *market.Registry
	orders  *orderbook.Store
	series  *timeseries.Service
	ramp    *ramp.Service
	hub     *Hub
	mux     *mux.Router
	log     *zap.Logger
}

type Config struct {
	AllowedOrigins []string
}

func NewServer(r *router.Router, markets *market.Registry, orders *orderbook.Store, series *timeseries.Service, rampSvc *ramp.Service, log *zap.Logger) *Server {
	s := &Server{
		router:  r,
		markets: markets,
		orders:  orders,
		series:  series,
		ramp:    rampSvc,
		hub:     NewHub(log),
		mux:     mux.NewRouter(),
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.mux.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/process", s.handleProcess).Methods("POST")

	v1.HandleFunc("/markets", s.handleListMarkets).Methods("GET")
	v1.HandleFunc("/markets/{id}", s.handleGetMarket).Methods("GET")

	v1.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	v1.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")

	v1.HandleFunc("/time-series/history", s.handleHistory).Methods("GET")

	v1.HandleFunc("/ramp/request", s.handleRampRequest).Methods("POST")
	v1.HandleFunc("/ramp/callback", s.handleRampCallback).Methods("POST")

	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub loop and serves HTTP with CORS applied, mirroring
// the node's Start(addr) shape.
func (s *Server) Start(addr string, cfg Config) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.mux))
}

// BroadcastTrade notifies subscribers of "trades:<market-id>". Nothing in
// this repository calls it: neither the matching engine nor the order-book
// processor broadcasts the trades it produces.
func (s *Server) BroadcastTrade(marketID dec.ID, trade orderbook.Trade) {
	s.hub.BroadcastToChannel("trades:"+marketID.String(), trade)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	resp := s.router.Dispatch(r.Context(), body)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	markets, err := s.markets.List(r.Context(), q.Get("market_type"), q.Get("status"), q.Get("regulation"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, markets)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	m, err := s.markets.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, m)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var wallet, marketID *dec.ID
	if v := q.Get("wallet"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			wallet = &id
		}
	}
	if v := q.Get("market_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			marketID = &id
		}
	}
	orders, err := s.orders.ListOrders(r.Context(), wallet, marketID, q.Get("status"), q.Get("order_type"), q.Get("mode"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, order)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	marketID, err := uuid.Parse(q.Get("market_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market_id")
		return
	}
	assetID, err := uuid.Parse(q.Get("asset_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid asset_id")
		return
	}
	duration := 24 * time.Hour
	if v := q.Get("duration_secs"); v != "" {
		if secs, perr := time.ParseDuration(v + "s"); perr == nil {
			duration = secs
		}
	}
	points, err := s.series.Aggregate(r.Context(), marketID, assetID, timeseries.Interval(q.Get("interval")), time.Now().Add(-duration))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, points)
}

func (s *Server) handleRampRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token      string `json:"token"`
		Amount     string `json:"amount"`
		WalletID   string `json:"wallet_id"`
		ResultPage string `json:"result_page"`
		Email      string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	wallet, err := uuid.Parse(req.WalletID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid wallet id")
		return
	}
	amount, err := dec.New(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	resp, err := s.ramp.OnRamp(r.Context(), ramp.OnRampRequest{
		Token: token, Amount: amount, WalletID: wallet, ResultPage: req.ResultPage, Email: req.Email,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, resp)
}

func (s *Server) handleRampCallback(w http.ResponseWriter, r *http.Request) {
	var cb ramp.CallbackData
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		respondError(w, http.StatusBadRequest, "invalid callback body")
		return
	}
	if err := s.ramp.Callback(r.Context(), cb); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
