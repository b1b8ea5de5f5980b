package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	// Server
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Database
	DatabaseURL string `env:"DATABASE_URL,required"`

	// NATS presence fan-out. Empty disables the bridge (single-instance mode).
	NatsURL string `env:"NATS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// LogFile enables rotating file output in addition to stdout.
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`

	// Authentication
	JWTSecret string `env:"JWT_SECRET,required"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:4200"`

	// Rate limiting (requests per second + burst, per authenticated caller)
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"10"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	SessionRatePerHour float64 `env:"SESSION_RATE_PER_HOUR" envDefault:"120"`
	SessionRateBurst   int     `env:"SESSION_RATE_BURST" envDefault:"10"`

	// Heartbeat sweep. A zero interval disables the sweeper, matching the
	// original behavior of acknowledging heartbeats without expiry.
	HeartbeatSweepInterval time.Duration `env:"HEARTBEAT_SWEEP_INTERVAL" envDefault:"0"`
	HeartbeatMaxAge        time.Duration `env:"HEARTBEAT_MAX_AGE" envDefault:"90s"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
