// Package config assembles the application configuration from the
// environment. Each subsystem owns its Config struct and env tags; this
// package only composes them and parses once at startup.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Shivang0/linkedinai/internal/db"
	"github.com/Shivang0/linkedinai/internal/logger"
	"github.com/Shivang0/linkedinai/internal/media"
	"github.com/Shivang0/linkedinai/internal/notifier"
	"github.com/Shivang0/linkedinai/internal/queue"
	"github.com/Shivang0/linkedinai/internal/ratelimit"
	"github.com/Shivang0/linkedinai/internal/redis"
)

// ErrFailedToParse is returned when the environment cannot be parsed
// into the configuration.
var ErrFailedToParse = errors.New("config: failed to parse environment")

// Config is the complete application configuration.
type Config struct {
	DB        db.Config
	Redis     redis.Config
	Logger    logger.Config
	Queue     queue.Config
	Media     media.Config
	Notifier  notifier.Config
	RateLimit ratelimit.Config

	// HTTPAddr is the API listen address.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	// HTTPShutdownTimeout bounds graceful HTTP shutdown.
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// SweepInterval is how often the fallback sweep scans for overdue
	// scheduled posts the queue missed.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	// SweepBatchSize caps overdue posts processed per sweep.
	SweepBatchSize int `env:"SWEEP_BATCH_SIZE" envDefault:"10"`

	// ExpandInterval is how often recurring rules are expanded into
	// concrete occurrences.
	ExpandInterval time.Duration `env:"EXPAND_INTERVAL" envDefault:"1h"`
	// ExpandLookAhead is how far ahead occurrences are materialized.
	ExpandLookAhead time.Duration `env:"EXPAND_LOOKAHEAD" envDefault:"2h"`
}

// Load parses the process environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrFailedToParse, err)
	}
	return cfg, nil
}
