package review

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retries of failed state writes.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// retry calls fn until it succeeds, returns a permanent error, the context
// ends, or the attempts run out. It returns the number of attempts made.
func retry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func(context.Context) error) (int, error) {
	attempts := max(cfg.MaxAttempts, 1)
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}
		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err

		if !retryable(err) {
			return attempt + 1, err
		}

		// No sleep after the final attempt.
		if attempt == attempts-1 {
			break
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		select {
		case <-ctx.Done():
			return attempt + 1, ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return attempts, lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, ErrRejected)
}

// backoff computes the wait before the next attempt with ±20% jitter.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxWait > 0 && wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
