package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"intradaytick/models"
)

type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	Session    SessionConfig    `envPrefix:"SESSION_"`
	ClickHouse ClickHouseConfig `envPrefix:"CLICKHOUSE_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
}

type AppConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogDir      string `env:"LOG_DIR" envDefault:"logs"`
	OutputDir   string `env:"OUTPUT_DIR" envDefault:"."`
}

// SessionConfig describes how to reach the market-data gateway.
type SessionConfig struct {
	Host              string        `env:"HOST" envDefault:"localhost"`
	Port              int           `env:"PORT" envDefault:"8194"`
	Path              string        `env:"PATH" envDefault:"/session"`
	Service           string        `env:"SERVICE"`
	AuthURL           string        `env:"AUTH_URL"`
	User              string        `env:"USER"`
	Password          string        `env:"PASSWORD"`
	HandshakeTimeout  time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"5s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"10s"`
	ConnectMaxElapsed time.Duration `env:"CONNECT_MAX_ELAPSED" envDefault:"1m"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10m"`
}

type ClickHouseConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"false"`
	Host     string        `env:"HOST" envDefault:"localhost"`
	Port     int           `env:"PORT" envDefault:"9000"`
	User     string        `env:"USER" envDefault:"default"`
	Password string        `env:"PASSWORD"`
	Database string        `env:"DATABASE" envDefault:"default"`
	Table    string        `env:"TABLE" envDefault:"intraday_ticks"`
	Timeout  time.Duration `env:"QUERY_TIMEOUT" envDefault:"30s"`
}

type MetricsConfig struct {
	Addr string `env:"ADDR"`
}

// Load reads the configuration from the environment, after applying a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Session.Service == "" {
		cfg.Session.Service = models.RefDataService
	}

	return cfg, nil
}

// Debug reports whether the environment is anything other than production.
func (c *Config) Debug() bool {
	return c.App.Environment != "production"
}
