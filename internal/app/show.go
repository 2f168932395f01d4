package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"data-service/internal/health"
)

// Show prints recent candles for a symbol.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	symbol := strings.ToUpper(opts.Symbol)

	store := a.newStore()
	candles, err := store.ListRecentCandles(ctx, symbol, opts.Limit)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		fmt.Fprintln(os.Stdout, "no candles found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tOpen\tHigh\tLow\tClose\tVolume")

	// Newest-first from storage; print oldest-first.
	for i := len(candles) - 1; i >= 0; i-- {
		c := candles[i]
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			health.NormalizeTimestamp(c.Timestamp).Format(time.RFC3339),
			formatValue(c.Open, 4),
			formatValue(c.High, 4),
			formatValue(c.Low, 4),
			formatValue(c.Close, 4),
			formatValue(c.Volume, 2),
		)
	}

	writer.Flush()
	return nil
}

func formatValue(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
