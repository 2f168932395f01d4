// Package api exposes the read-only query surface over the datasets.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"data-service/internal/health"
	"data-service/internal/storage"
)

const apiKeyHeader = "X-API-Key"

// Options parameterise the query server. Tracker must be non-nil: both the
// candle handler and the health endpoint rely on it.
type Options struct {
	APIKey string

	Candles   storage.CandleStore
	OrderBook storage.OrderBookStore
	Futures   storage.FuturesStore
	Macro     storage.MacroStore
	Tracker   *health.Tracker
}

// Server dispatches HTTP requests to the fixed read operations.
type Server struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs the query server.
func New(opts Options, logger zerolog.Logger) *Server {
	return &Server{
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler builds the route table wrapped in the auth middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /candles/{symbol}/{tf}", s.handleCandles)
	mux.HandleFunc("GET /orderbook/{symbol}", s.handleOrderBook)
	mux.HandleFunc("GET /oi/{symbol}/5m", s.handleOpenInterest)
	mux.HandleFunc("GET /funding/{symbol}", s.handleFunding)
	mux.HandleFunc("GET /macro/latest", s.handleMacroLatest)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.authenticate(mux)
}

// authenticate rejects requests lacking the shared secret before any handler
// logic runs. An empty configured key disables the check entirely.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" && r.Header.Get(apiKeyHeader) != s.opts.APIKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
