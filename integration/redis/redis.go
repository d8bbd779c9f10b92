// Package redis provides Redis client initialization and health checking for
// deployments that use Redis as the session store backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrFailedToParseConnString is returned for malformed Redis URLs.
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")

	// ErrNotReady is returned when Redis does not become reachable within the
	// configured retry budget.
	ErrNotReady = errors.New("redis did not become ready within the given time period")

	// ErrHealthcheckFailed is returned when the health check ping fails.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)

// Config holds Redis connection settings loaded from the environment.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a Redis client and verifies connectivity with a ping,
// retrying transient failures before giving up.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	client := redis.NewClient(opt)
	attempts := max(cfg.RetryAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrNotReady, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		lastErr = err
	}

	_ = client.Close()
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrNotReady, attempts, lastErr)
}

// Healthcheck returns a probe function suitable for readiness endpoints.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
