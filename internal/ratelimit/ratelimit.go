// Package ratelimit throttles outbound LinkedIn API calls across all
// worker processes. The budget lives in Redis so five workers on three
// machines still share one ceiling.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBackend wraps Redis failures during rate accounting.
var ErrBackend = errors.New("ratelimit: backend error")

// Config holds limiter settings.
type Config struct {
	// PublishPerSecond caps publish calls process-wide. LinkedIn
	// throttles aggressively; stay under its ceiling rather than eat
	// 429s as retries.
	PublishPerSecond int `env:"PUBLISH_RATE_LIMIT" envDefault:"10"`
}

// Limiter is a fixed-window per-second limiter over Redis.
type Limiter struct {
	client redis.UniversalClient
	key    string
	limit  int
}

// New creates a limiter. key namespaces the counter so different call
// classes can have independent budgets.
func New(client redis.UniversalClient, key string, limit int) *Limiter {
	return &Limiter{client: client, key: key, limit: limit}
}

// Allow consumes one slot from the current one-second window, reporting
// whether the call may proceed.
func (l *Limiter) Allow(ctx context.Context) (bool, error) {
	window := time.Now().Unix()
	key := fmt.Sprintf("%s:%d", l.key, window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Expire at 2s, not 1s: a counter living one extra second is
	// harmless, losing the expiry on a race is not.
	pipe.Expire(ctx, key, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Join(ErrBackend, err)
	}

	return incr.Val() <= int64(l.limit), nil
}

// Wait blocks until a slot is available or ctx ends. Callers sit out the
// remainder of the current window when it is exhausted.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, err := l.Allow(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		nextWindow := time.Until(time.Now().Truncate(time.Second).Add(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(nextWindow):
		}
	}
}
