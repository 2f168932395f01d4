package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"data-service/internal/health"
	"data-service/internal/storage"
)

// Export renders historical candles as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	symbol := strings.ToUpper(opts.Symbol)
	if symbol == "" {
		return errors.New("--symbol is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.Add(-7 * 24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	store := a.newStore()
	// Candle timestamps are stored as millisecond epochs by the streamer.
	candles, err := store.ListCandlesBetween(ctx, symbol, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		a.Logger.Info().Str("symbol", symbol).Msg("no candles found for export window")
		return nil
	}

	downsampled := downsampleCandles(candles, opts.MaxPoints)
	a.Logger.Info().Int("total", len(candles)).Int("exported", len(downsampled)).Msg("exporting candles")

	if opts.CSVPath != "" {
		if err := writeCandlesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeCandlesPNG(opts.PNGPath, symbol, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleCandles(candles []storage.Candle, max int) []storage.Candle {
	if max <= 0 || len(candles) <= max {
		return candles
	}

	result := make([]storage.Candle, 0, max)
	step := float64(len(candles)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(candles) {
			idx = len(candles) - 1
		}
		result = append(result, candles[idx])
	}
	return result
}

func writeCandlesCSV(path string, candles []storage.Candle) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"time", "symbol", "open", "high", "low", "close", "volume"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, c := range candles {
		record := []string{
			health.NormalizeTimestamp(c.Timestamp).Format(time.RFC3339),
			c.Symbol,
			formatValue(c.Open, 8),
			formatValue(c.High, 8),
			formatValue(c.Low, 8),
			formatValue(c.Close, 8),
			formatValue(c.Volume, 8),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeCandlesPNG(path, symbol string, candles []storage.Candle) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(candles))
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))

	for i, c := range candles {
		x[i] = health.NormalizeTimestamp(c.Timestamp)
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Close (" + symbol + ")",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Volume",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: x,
				YValues: closes,
			},
			chart.TimeSeries{
				Name:    "Volume",
				XValues: x,
				YValues: volumes,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
