package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"data-service/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Health   HealthConfig   `mapstructure:"health"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP listener and request authentication.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	APIKey          string        `mapstructure:"api_key"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig points at the four SQLite datasets populated by the streamers.
type DatabaseConfig struct {
	MarketDataPath string        `mapstructure:"market_data_path"`
	OrderbookPath  string        `mapstructure:"orderbook_path"`
	FuturesPath    string        `mapstructure:"futures_path"`
	MacroPath      string        `mapstructure:"macro_path"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout"`
}

// HealthConfig tunes the staleness signal derived from candle queries.
type HealthConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// WatchdogConfig drives the supervision loop.
type WatchdogConfig struct {
	HealthURL      string        `mapstructure:"health_url"`
	APIKey         string        `mapstructure:"api_key"`
	Interval       time.Duration `mapstructure:"interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ServiceName    string        `mapstructure:"service_name"`
	Siblings       []string      `mapstructure:"siblings"`
	PM2Bin         string        `mapstructure:"pm2_bin"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DATASERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "data-service")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.listen", ":8980")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.market_data_path", "data/market_data.db")
	v.SetDefault("database.orderbook_path", "data/orderbook.db")
	v.SetDefault("database.futures_path", "data/futures_metrics.db")
	v.SetDefault("database.macro_path", "data/macro.db")
	v.SetDefault("database.busy_timeout", "30s")

	v.SetDefault("health.stale_after", "120s")

	v.SetDefault("watchdog.health_url", "http://127.0.0.1:8980/health")
	v.SetDefault("watchdog.interval", "60s")
	v.SetDefault("watchdog.request_timeout", "5s")
	v.SetDefault("watchdog.service_name", "data-service")
	v.SetDefault("watchdog.siblings", []string{"streamer", "ob-streamer", "futures-metrics"})
	v.SetDefault("watchdog.pm2_bin", "pm2")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Database.MarketDataPath == "" {
		return fmt.Errorf("database.market_data_path is required")
	}
	if c.Database.OrderbookPath == "" {
		return fmt.Errorf("database.orderbook_path is required")
	}
	if c.Database.FuturesPath == "" {
		return fmt.Errorf("database.futures_path is required")
	}
	if c.Database.MacroPath == "" {
		return fmt.Errorf("database.macro_path is required")
	}
	if c.Health.StaleAfter <= 0 {
		return fmt.Errorf("health.stale_after must be greater than zero")
	}
	if c.Watchdog.Interval <= 0 {
		return fmt.Errorf("watchdog.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
