package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/matches.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL enables the live stream publisher and the redis health check.
	RedisURL string `env:"REDIS_URL"`

	// OperatorKeyHash is a bcrypt hash. Empty leaves mutating routes open.
	OperatorKeyHash string   `env:"OPERATOR_KEY_HASH"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	TimerTickInterval     time.Duration `env:"TIMER_TICK_INTERVAL" envDefault:"10ms"`
	BroadcastStreamPrefix string        `env:"BROADCAST_STREAM_PREFIX" envDefault:"matches.live"`

	// SeedDemo creates demo matches on an empty database.
	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TimerTickInterval <= 0 {
		return nil, fmt.Errorf("TIMER_TICK_INTERVAL must be positive, got %s", cfg.TimerTickInterval)
	}
	return &cfg, nil
}
