// Package retry provides bounded retry with fixed or growing backoff.
package retry

import (
	"context"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int           // Total attempts, including the first
	Wait        time.Duration // Wait between attempts
	Multiplier  float64       // Backoff multiplier (1.0 = fixed)
}

// DefaultConfig returns sensible defaults: two attempts separated by a
// fixed short backoff.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 2,
		Wait:        500 * time.Millisecond,
		Multiplier:  1.0,
	}
}

// Do executes fn up to cfg.MaxAttempts times, waiting between attempts.
// retryable decides whether a failure is worth another attempt; a nil
// retryable retries everything. The last error is returned when all
// attempts fail.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	wait := cfg.Wait
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if cfg.Multiplier > 1 {
			wait = time.Duration(float64(wait) * cfg.Multiplier)
		}
	}
	return lastErr
}
