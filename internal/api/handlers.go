package api

import (
	"net/http"
	"strconv"
	"strings"

	"data-service/internal/health"
)

const (
	defaultCandleLimit    = 200
	defaultOrderBookLimit = 1
	defaultOILimit        = 10
	defaultFundingLimit   = 20
)

type candlePoint struct {
	TS     int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"vol"`
}

type candlesResponse struct {
	Symbol     string        `json:"symbol"`
	TF         string        `json:"tf"`
	Count      int           `json:"count"`
	Candles    []candlePoint `json:"candles"`
	LatestTime *int64        `json:"latest_time"`
}

type orderBookPoint struct {
	TS  int64   `json:"ts"`
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

type orderBookResponse struct {
	Symbol    string           `json:"symbol"`
	Count     int              `json:"count"`
	OrderBook []orderBookPoint `json:"orderbook"`
}

type openInterestPoint struct {
	TS int64   `json:"ts"`
	OI float64 `json:"oi"`
}

type openInterestResponse struct {
	Symbol string              `json:"symbol"`
	TF     string              `json:"tf"`
	Count  int                 `json:"count"`
	OI     []openInterestPoint `json:"oi"`
}

type fundingPoint struct {
	TS   int64   `json:"ts"`
	Rate float64 `json:"rate"`
}

type fundingResponse struct {
	Symbol  string         `json:"symbol"`
	Count   int            `json:"count"`
	Funding []fundingPoint `json:"funding"`
}

type macroEntry struct {
	TS    int64   `json:"ts"`
	Value float64 `json:"value"`
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	tf := r.PathValue("tf")
	if tf == "" {
		tf = "15m"
	}
	limit := queryLimit(r, defaultCandleLimit)

	rows, err := s.opts.Candles.ListRecentCandles(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("candle query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp := candlesResponse{
		Symbol:  symbol,
		TF:      tf,
		Count:   len(rows),
		Candles: make([]candlePoint, 0, len(rows)),
	}

	if len(rows) > 0 {
		newest := rows[0].Timestamp
		resp.LatestTime = &newest
		s.opts.Tracker.Observe(health.NormalizeTimestamp(newest))
	}

	// Fetched newest-first; presented oldest-first.
	for i := len(rows) - 1; i >= 0; i-- {
		c := rows[i]
		resp.Candles = append(resp.Candles, candlePoint{
			TS:     c.Timestamp,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	limit := queryLimit(r, defaultOrderBookLimit)

	rows, err := s.opts.OrderBook.ListRecentImbalance(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("orderbook query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp := orderBookResponse{
		Symbol:    symbol,
		Count:     len(rows),
		OrderBook: make([]orderBookPoint, 0, len(rows)),
	}
	for i := len(rows) - 1; i >= 0; i-- {
		sample := rows[i]
		resp.OrderBook = append(resp.OrderBook, orderBookPoint{
			TS:  sample.Timestamp,
			Bid: sample.BidVolume,
			Ask: sample.AskVolume,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenInterest(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	limit := queryLimit(r, defaultOILimit)

	rows, err := s.opts.Futures.ListRecentOpenInterest(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("open interest query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp := openInterestResponse{
		Symbol: symbol,
		TF:     "5m",
		Count:  len(rows),
		OI:     make([]openInterestPoint, 0, len(rows)),
	}
	for i := len(rows) - 1; i >= 0; i-- {
		sample := rows[i]
		resp.OI = append(resp.OI, openInterestPoint{
			TS: sample.Timestamp,
			OI: sample.OpenInterest,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFunding(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	limit := queryLimit(r, defaultFundingLimit)

	rows, err := s.opts.Futures.ListRecentFunding(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("funding query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp := fundingResponse{
		Symbol:  symbol,
		Count:   len(rows),
		Funding: make([]fundingPoint, 0, len(rows)),
	}
	for i := len(rows) - 1; i >= 0; i-- {
		sample := rows[i]
		resp.Funding = append(resp.Funding, fundingPoint{
			TS:   sample.Timestamp,
			Rate: sample.Rate,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMacroLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.opts.Macro.LatestIndices(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("macro query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp := make(map[string]macroEntry, len(latest))
	for symbol, sample := range latest {
		resp[symbol] = macroEntry{TS: sample.Timestamp, Value: sample.Value}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Tracker.Status())
}

// queryLimit coerces the limit query parameter, falling back to the endpoint
// default for anything that is not a non-negative integer.
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
