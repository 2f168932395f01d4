package storage

import (
	"context"
	"fmt"
)

const (
	listRecentCandlesSQL = `SELECT symbol, timestamp, open, high, low, close, volume
    FROM candles
    WHERE symbol = ?
    ORDER BY timestamp DESC
    LIMIT ?;`

	listCandlesBetweenSQL = `SELECT symbol, timestamp, open, high, low, close, volume
    FROM candles
    WHERE symbol = ?
      AND timestamp >= ?
      AND timestamp < ?
    ORDER BY timestamp;`

	listRecentImbalanceSQL = `SELECT symbol, ts, bidVol, askVol
    FROM ob_imbalance
    WHERE symbol = ?
    ORDER BY ts DESC
    LIMIT ?;`

	listRecentOpenInterestSQL = `SELECT symbol, ts, oi
    FROM open_interest
    WHERE symbol = ?
    ORDER BY ts DESC
    LIMIT ?;`

	listRecentFundingSQL = `SELECT symbol, ts, rate
    FROM funding_rate
    WHERE symbol = ?
    ORDER BY ts DESC
    LIMIT ?;`

	listIndicesDescSQL = `SELECT symbol, ts, value
    FROM daily_indices
    ORDER BY ts DESC;`
)

// maxPreallocRows bounds the capacity hint for result slices. The limit
// comes from callers (ultimately query parameters) and must not drive an
// arbitrarily large allocation.
const maxPreallocRows = 512

func preallocRows(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > maxPreallocRows {
		return maxPreallocRows
	}
	return limit
}

// CandleStore reads OHLCV bars from the market data dataset.
type CandleStore interface {
	ListRecentCandles(ctx context.Context, symbol string, limit int) ([]Candle, error)
	ListCandlesBetween(ctx context.Context, symbol string, fromTS, toTS int64) ([]Candle, error)
}

// OrderBookStore reads depth-imbalance snapshots.
type OrderBookStore interface {
	ListRecentImbalance(ctx context.Context, symbol string, limit int) ([]OrderBookSample, error)
}

// FuturesStore reads open-interest and funding-rate observations.
type FuturesStore interface {
	ListRecentOpenInterest(ctx context.Context, symbol string, limit int) ([]OpenInterestSample, error)
	ListRecentFunding(ctx context.Context, symbol string, limit int) ([]FundingRateSample, error)
}

// MacroStore reads daily macro index closes.
type MacroStore interface {
	LatestIndices(ctx context.Context) (map[string]MacroIndexSample, error)
}

// Store aggregates read access to the four datasets.
type Store struct {
	marketData *Dataset
	orderbook  *Dataset
	futures    *Dataset
	macro      *Dataset
}

// NewStore wires the dataset handles into a Store.
func NewStore(marketData, orderbook, futures, macro *Dataset) *Store {
	return &Store{
		marketData: marketData,
		orderbook:  orderbook,
		futures:    futures,
		macro:      macro,
	}
}

// ListRecentCandles returns the newest `limit` bars for a symbol, newest first.
func (s *Store) ListRecentCandles(ctx context.Context, symbol string, limit int) ([]Candle, error) {
	db, err := s.marketData.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, queryErr := db.QueryContext(ctx, listRecentCandlesSQL, symbol, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent candles: %w", queryErr)
	}
	defer rows.Close()

	candles := make([]Candle, 0, preallocRows(limit))
	for rows.Next() {
		var c Candle
		if err := rows.Scan(&c.Symbol, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candles, nil
}

// ListCandlesBetween returns bars inside [fromTS, toTS), oldest first.
func (s *Store) ListCandlesBetween(ctx context.Context, symbol string, fromTS, toTS int64) ([]Candle, error) {
	db, err := s.marketData.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, queryErr := db.QueryContext(ctx, listCandlesBetweenSQL, symbol, fromTS, toTS)
	if queryErr != nil {
		return nil, fmt.Errorf("list candles between: %w", queryErr)
	}
	defer rows.Close()

	candles := make([]Candle, 0)
	for rows.Next() {
		var c Candle
		if err := rows.Scan(&c.Symbol, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candles, nil
}

// ListRecentImbalance returns the newest `limit` snapshots for a symbol, newest first.
func (s *Store) ListRecentImbalance(ctx context.Context, symbol string, limit int) ([]OrderBookSample, error) {
	db, err := s.orderbook.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, queryErr := db.QueryContext(ctx, listRecentImbalanceSQL, symbol, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent imbalance: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]OrderBookSample, 0, preallocRows(limit))
	for rows.Next() {
		var sample OrderBookSample
		if err := rows.Scan(&sample.Symbol, &sample.Timestamp, &sample.BidVolume, &sample.AskVolume); err != nil {
			return nil, fmt.Errorf("scan imbalance: %w", err)
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentOpenInterest returns the newest `limit` observations for a symbol, newest first.
func (s *Store) ListRecentOpenInterest(ctx context.Context, symbol string, limit int) ([]OpenInterestSample, error) {
	db, err := s.futures.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, queryErr := db.QueryContext(ctx, listRecentOpenInterestSQL, symbol, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent open interest: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]OpenInterestSample, 0, preallocRows(limit))
	for rows.Next() {
		var sample OpenInterestSample
		if err := rows.Scan(&sample.Symbol, &sample.Timestamp, &sample.OpenInterest); err != nil {
			return nil, fmt.Errorf("scan open interest: %w", err)
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentFunding returns the newest `limit` observations for a symbol, newest first.
func (s *Store) ListRecentFunding(ctx context.Context, symbol string, limit int) ([]FundingRateSample, error) {
	db, err := s.futures.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, queryErr := db.QueryContext(ctx, listRecentFundingSQL, symbol, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent funding: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]FundingRateSample, 0, preallocRows(limit))
	for rows.Next() {
		var sample FundingRateSample
		if err := rows.Scan(&sample.Symbol, &sample.Timestamp, &sample.Rate); err != nil {
			return nil, fmt.Errorf("scan funding: %w", err)
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// LatestIndices returns the newest observation per macro symbol. The scan is
// descending by timestamp, so the first row seen for a symbol is its newest.
func (s *Store) LatestIndices(ctx context.Context) (map[string]MacroIndexSample, error) {
	db, err := s.macro.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, queryErr := db.QueryContext(ctx, listIndicesDescSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list macro indices: %w", queryErr)
	}
	defer rows.Close()

	latest := make(map[string]MacroIndexSample)
	for rows.Next() {
		var sample MacroIndexSample
		if err := rows.Scan(&sample.Symbol, &sample.Timestamp, &sample.Value); err != nil {
			return nil, fmt.Errorf("scan macro index: %w", err)
		}
		if _, seen := latest[sample.Symbol]; !seen {
			latest[sample.Symbol] = sample
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return latest, nil
}

var (
	_ CandleStore    = (*Store)(nil)
	_ OrderBookStore = (*Store)(nil)
	_ FuturesStore   = (*Store)(nil)
	_ MacroStore     = (*Store)(nil)
)
