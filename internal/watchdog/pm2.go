package watchdog

import (
	"context"
	"encoding/json"
	"os/exec"

	"github.com/rs/zerolog"
)

// PM2Controller drives the pm2 process manager via its CLI.
type PM2Controller struct {
	bin    string
	logger zerolog.Logger
}

// NewPM2Controller builds a controller shelling out to the given pm2 binary.
func NewPM2Controller(bin string, logger zerolog.Logger) *PM2Controller {
	if bin == "" {
		bin = "pm2"
	}
	return &PM2Controller{
		bin:    bin,
		logger: logger.With().Str("component", "pm2").Logger(),
	}
}

type pm2Process struct {
	Name   string `json:"name"`
	PM2Env struct {
		Status string `json:"status"`
	} `json:"pm2_env"`
}

// IsOnline reports whether pm2 lists the named process as online. A pm2
// invocation failure counts as not online.
func (c *PM2Controller) IsOnline(ctx context.Context, name string) bool {
	out, err := exec.CommandContext(ctx, c.bin, "jlist").Output()
	if err != nil {
		c.logger.Error().Err(err).Msg("pm2 jlist failed")
		return false
	}

	var procs []pm2Process
	if err := json.Unmarshal(out, &procs); err != nil {
		c.logger.Error().Err(err).Msg("pm2 jlist returned malformed json")
		return false
	}

	for _, p := range procs {
		if p.Name == name {
			return p.PM2Env.Status == "online"
		}
	}
	return false
}

// Restart issues a pm2 restart for the named process. Failures are logged
// here and nowhere else; the watchdog does not await the outcome.
func (c *PM2Controller) Restart(ctx context.Context, name string) {
	if err := exec.CommandContext(ctx, c.bin, "restart", name).Run(); err != nil {
		c.logger.Error().Err(err).Str("service", name).Msg("pm2 restart failed")
		return
	}
	c.logger.Info().Str("service", name).Msg("pm2 restart issued")
}

var _ ProcessController = (*PM2Controller)(nil)
