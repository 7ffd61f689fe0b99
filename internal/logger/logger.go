// Package logger builds the process logger: JSON to stdout, plus Sentry
// when a DSN is configured.
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config holds logging and error-reporting settings.
type Config struct {
	Level             slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN         string     `env:"SENTRY_DSN"`
	SentryEnvironment string     `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// New creates the application logger. With no Sentry DSN it logs JSON to
// stdout only, which is the right behavior for local development.
func New(cfg Config) *slog.Logger {
	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level,
	})

	if cfg.SentryDSN == "" {
		return slog.New(stdoutHandler)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		// Graceful degradation: a broken Sentry config should not stop
		// the scheduler from running.
		slog.New(stdoutHandler).Error("failed to initialize sentry", slog.Any("error", err))
		return slog.New(stdoutHandler)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(fanout{stdoutHandler, sentryHandler})
}
