// Package retry provides fixed-count, fixed-delay retry for per-date fetch
// tasks. Every failure is retried: the remote reports most errors as opaque
// marker strings, so there is no reliable retryable/non-retryable split.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultConfig returns the fetcher's retry configuration: three attempts
// with a short pause between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       1 * time.Second,
	}
}

// Do runs operation up to MaxAttempts times, sleeping Delay between
// attempts. The sleep is context-aware so a cancelled caller is not held up.
func Do(ctx context.Context, config Config, operation func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.Delay):
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}
