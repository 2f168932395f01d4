package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"data-service/internal/api"
	"data-service/internal/config"
	"data-service/internal/health"
	"data-service/internal/scheduler"
	"data-service/internal/storage"
	"data-service/internal/watchdog"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newStore() *storage.Store {
	db := a.Config.Database
	return storage.NewStore(
		storage.NewDataset(db.MarketDataPath, db.BusyTimeout),
		storage.NewDataset(db.OrderbookPath, db.BusyTimeout),
		storage.NewDataset(db.FuturesPath, db.BusyTimeout),
		storage.NewDataset(db.MacroPath, db.BusyTimeout),
	)
}

// Serve runs the query service until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := a.newStore()
	tracker := health.NewTracker(a.Config.Health.StaleAfter)

	server := api.New(api.Options{
		APIKey:    a.Config.Server.APIKey,
		Candles:   store,
		OrderBook: store,
		Futures:   store,
		Macro:     store,
		Tracker:   tracker,
	}, a.Logger)

	httpServer := &http.Server{
		Addr:    a.Config.Server.Listen,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("listen", a.Config.Server.Listen).Msg("query service listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down query service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (a *App) shutdownTimeout() time.Duration {
	if t := a.Config.Server.ShutdownTimeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// WatchOptions configure the watchdog command.
type WatchOptions struct {
	Once bool
}

// Watch runs the supervision loop, or a single pass when Once is set so an
// external scheduler can own the cadence.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wcfg := a.Config.Watchdog
	apiKey := wcfg.APIKey
	if apiKey == "" {
		apiKey = a.Config.Server.APIKey
	}
	controller := watchdog.NewPM2Controller(wcfg.PM2Bin, a.Logger)
	dog := watchdog.New(watchdog.Options{
		HealthURL:      wcfg.HealthURL,
		APIKey:         apiKey,
		ServiceName:    wcfg.ServiceName,
		Siblings:       wcfg.Siblings,
		RequestTimeout: wcfg.RequestTimeout,
	}, controller, a.Logger)

	if opts.Once {
		dog.Check(ctx)
		return nil
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       wcfg.Interval,
		RunImmediately: true,
	}, a.Logger)

	a.Logger.Info().Dur("interval", wcfg.Interval).Msg("starting watchdog loop")
	err := sched.Run(ctx, func(ctx context.Context, _ time.Time) {
		dog.Check(ctx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Symbol string
	Limit  int
}

// ExportOptions hold parameters for exporting historical candles.
type ExportOptions struct {
	Symbol    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
