// Package watchdog probes the query service's health endpoint and the
// liveness of the sibling ingestion processes, restarting whatever is down.
package watchdog

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ProcessController checks and restarts named processes. Restart results are
// fire-and-forget: the watchdog never acts on a failed restart.
type ProcessController interface {
	IsOnline(ctx context.Context, name string) bool
	Restart(ctx context.Context, name string)
}

// Options parameterise the watchdog. APIKey, when set, is sent on every
// health probe so that an authenticated endpoint does not read as down.
type Options struct {
	HealthURL      string
	APIKey         string
	ServiceName    string
	Siblings       []string
	RequestTimeout time.Duration
}

// Watchdog performs one stateless supervision pass per invocation.
type Watchdog struct {
	opts       Options
	controller ProcessController
	client     *http.Client
	logger     zerolog.Logger
}

// New constructs a Watchdog.
func New(opts Options, controller ProcessController, logger zerolog.Logger) *Watchdog {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Watchdog{
		opts:       opts,
		controller: controller,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "watchdog").Logger(),
	}
}

type healthBody struct {
	OK     bool    `json:"ok"`
	AgeSec float64 `json:"age_sec"`
}

// Check runs one supervision pass: probe the health endpoint, then verify
// each sibling process. No state carries over between passes.
func (w *Watchdog) Check(ctx context.Context) {
	w.checkHealth(ctx)
	for _, name := range w.opts.Siblings {
		w.checkSibling(ctx, name)
	}
}

// checkHealth treats an unreachable endpoint and an explicit ok=false
// identically: both restart the query service.
func (w *Watchdog) checkHealth(ctx context.Context) {
	body, err := w.probe(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Str("service", w.opts.ServiceName).Msg("health probe failed, restarting")
		w.controller.Restart(ctx, w.opts.ServiceName)
		return
	}
	if !body.OK {
		w.logger.Warn().Float64("age_sec", body.AgeSec).Str("service", w.opts.ServiceName).Msg("service reports stale data, restarting")
		w.controller.Restart(ctx, w.opts.ServiceName)
		return
	}
	w.logger.Debug().Float64("age_sec", body.AgeSec).Msg("service healthy")
}

func (w *Watchdog) checkSibling(ctx context.Context, name string) {
	if w.controller.IsOnline(ctx, name) {
		return
	}
	w.logger.Warn().Str("service", name).Msg("process not online, restarting")
	w.controller.Restart(ctx, name)
}

func (w *Watchdog) probe(ctx context.Context) (healthBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.opts.HealthURL, nil)
	if err != nil {
		return healthBody{}, err
	}
	if w.opts.APIKey != "" {
		req.Header.Set("X-API-Key", w.opts.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return healthBody{}, err
	}
	defer resp.Body.Close()

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return healthBody{}, err
	}
	return body, nil
}
