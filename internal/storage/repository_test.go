package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openSeedDB(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer db.Close()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}

func seedMarketData(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "market_data.db")
	openSeedDB(t, path,
		`CREATE TABLE candles (symbol TEXT, timestamp INTEGER, open REAL, high REAL, low REAL, close REAL, volume REAL, PRIMARY KEY(symbol, timestamp))`,
		`INSERT INTO candles VALUES ('BTCUSDT', 1000, 1, 2, 0.5, 1.5, 10)`,
		`INSERT INTO candles VALUES ('BTCUSDT', 2000, 1.5, 2.5, 1, 2, 20)`,
		`INSERT INTO candles VALUES ('BTCUSDT', 3000, 2, 3, 1.5, 2.5, 30)`,
		`INSERT INTO candles VALUES ('ETHUSDT', 5000, 9, 9, 9, 9, 9)`,
	)
	return path
}

func newTestStore(t *testing.T, marketData, orderbook, futures, macro string) *Store {
	t.Helper()
	timeout := time.Second
	return NewStore(
		NewDataset(marketData, timeout),
		NewDataset(orderbook, timeout),
		NewDataset(futures, timeout),
		NewDataset(macro, timeout),
	)
}

func TestListRecentCandlesDescendingLimited(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, seedMarketData(t, dir), "", "", "")

	candles, err := store.ListRecentCandles(context.Background(), "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("list recent candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[0].Timestamp != 3000 || candles[1].Timestamp != 2000 {
		t.Fatalf("expected newest-first [3000 2000], got [%d %d]", candles[0].Timestamp, candles[1].Timestamp)
	}
	if candles[0].Close != 2.5 || candles[0].Volume != 30 {
		t.Fatalf("unexpected newest candle values: %+v", candles[0])
	}
}

func TestListRecentCandlesUnknownSymbolEmpty(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, seedMarketData(t, dir), "", "", "")

	candles, err := store.ListRecentCandles(context.Background(), "NOPEUSDT", 10)
	if err != nil {
		t.Fatalf("unknown symbol should not error: %v", err)
	}
	if len(candles) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(candles))
	}
}

func TestListRecentCandlesZeroLimit(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, seedMarketData(t, dir), "", "", "")

	candles, err := store.ListRecentCandles(context.Background(), "BTCUSDT", 0)
	if err != nil {
		t.Fatalf("zero limit should not error: %v", err)
	}
	if len(candles) != 0 {
		t.Fatalf("limit 0 must return no rows, got %d", len(candles))
	}
}

func TestListRecentCandlesHugeLimit(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, seedMarketData(t, dir), "", "", "")

	candles, err := store.ListRecentCandles(context.Background(), "BTCUSDT", 1<<45)
	if err != nil {
		t.Fatalf("huge limit should not error: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected all 3 rows, got %d", len(candles))
	}
	if cap(candles) > maxPreallocRows {
		t.Fatalf("capacity hint must stay bounded, got %d", cap(candles))
	}
}

func TestListCandlesBetweenAscending(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, seedMarketData(t, dir), "", "", "")

	candles, err := store.ListCandlesBetween(context.Background(), "BTCUSDT", 1000, 3000)
	if err != nil {
		t.Fatalf("list candles between: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("window [1000,3000) should hold 2 rows, got %d", len(candles))
	}
	if candles[0].Timestamp != 1000 || candles[1].Timestamp != 2000 {
		t.Fatalf("expected oldest-first [1000 2000], got [%d %d]", candles[0].Timestamp, candles[1].Timestamp)
	}
}

func TestListRecentImbalance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orderbook.db")
	openSeedDB(t, path,
		`CREATE TABLE ob_imbalance (symbol TEXT, ts INTEGER, bidVol REAL, askVol REAL, PRIMARY KEY(symbol, ts))`,
		`INSERT INTO ob_imbalance VALUES ('BTCUSDT', 1000, 5, 6)`,
		`INSERT INTO ob_imbalance VALUES ('BTCUSDT', 2000, 7, 8)`,
	)
	store := newTestStore(t, "", path, "", "")

	samples, err := store.ListRecentImbalance(context.Background(), "BTCUSDT", 1)
	if err != nil {
		t.Fatalf("list recent imbalance: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0].Timestamp != 2000 || samples[0].BidVolume != 7 || samples[0].AskVolume != 8 {
		t.Fatalf("expected newest snapshot, got %+v", samples[0])
	}
}

func TestFuturesStores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "futures_metrics.db")
	openSeedDB(t, path,
		`CREATE TABLE open_interest (symbol TEXT, ts INTEGER, oi REAL, PRIMARY KEY(symbol, ts))`,
		`CREATE TABLE funding_rate (symbol TEXT, ts INTEGER, rate REAL, PRIMARY KEY(symbol, ts))`,
		`INSERT INTO open_interest VALUES ('BTCUSDT', 1000, 100)`,
		`INSERT INTO open_interest VALUES ('BTCUSDT', 2000, 200)`,
		`INSERT INTO funding_rate VALUES ('BTCUSDT', 1000, 0.0001)`,
		`INSERT INTO funding_rate VALUES ('BTCUSDT', 2000, 0.0002)`,
	)
	store := newTestStore(t, "", "", path, "")

	oi, err := store.ListRecentOpenInterest(context.Background(), "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("list open interest: %v", err)
	}
	if len(oi) != 2 || oi[0].Timestamp != 2000 || oi[0].OpenInterest != 200 {
		t.Fatalf("unexpected open interest rows: %+v", oi)
	}

	funding, err := store.ListRecentFunding(context.Background(), "BTCUSDT", 1)
	if err != nil {
		t.Fatalf("list funding: %v", err)
	}
	if len(funding) != 1 || funding[0].Rate != 0.0002 {
		t.Fatalf("unexpected funding rows: %+v", funding)
	}
}

func TestLatestIndicesOnePerSymbol(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macro.db")
	openSeedDB(t, path,
		`CREATE TABLE daily_indices (symbol TEXT, ts INTEGER, value REAL, PRIMARY KEY(symbol, ts))`,
		`INSERT INTO daily_indices VALUES ('DXY', 1000, 103.0)`,
		`INSERT INTO daily_indices VALUES ('DXY', 2000, 104.2)`,
		`INSERT INTO daily_indices VALUES ('VIX', 1500, 13.5)`,
	)
	store := newTestStore(t, "", "", "", path)

	latest, err := store.LatestIndices(context.Background())
	if err != nil {
		t.Fatalf("latest indices: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected one entry per symbol, got %+v", latest)
	}
	if latest["DXY"].Timestamp != 2000 || latest["DXY"].Value != 104.2 {
		t.Fatalf("DXY entry must be its newest row, got %+v", latest["DXY"])
	}
	if latest["VIX"].Timestamp != 1500 {
		t.Fatalf("VIX entry must be its newest row, got %+v", latest["VIX"])
	}
}

func TestUnconfiguredDatasetFails(t *testing.T) {
	store := newTestStore(t, "", "", "", "")
	if _, err := store.ListRecentCandles(context.Background(), "BTCUSDT", 1); err == nil {
		t.Fatal("unconfigured dataset must error")
	}
}
