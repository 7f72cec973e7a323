package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig controls exponential backoff between attempts. Zero fields
// take the defaults below. Retryable, when set, marks errors that are not
// worth repeating; nil retries everything.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Retryable    func(error) bool
}

const (
	defaultAttempts   = 3
	defaultDelay      = 100 * time.Millisecond
	defaultMaxDelay   = 10 * time.Second
	defaultMultiplier = 2.0
)

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = defaultMultiplier
	}
	return c
}

// delay returns the pause after the given failed attempt (1-based): the
// capped exponential step, half of it fixed and half jittered.
func (c RetryConfig) delay(attempt int) time.Duration {
	step := float64(c.InitialDelay)
	for i := 1; i < attempt && step < float64(c.MaxDelay); i++ {
		step *= c.Multiplier
	}
	step = min(step, float64(c.MaxDelay))
	half := step / 2
	return time.Duration(half + rand.Float64()*half)
}

// Retry calls fn until it succeeds, the attempts run out or ctx ends.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	_, err := RetryValue(ctx, name, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryValue is Retry for operations that produce a result.
func RetryValue[T any](ctx context.Context, name string, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.normalized()
	log := slog.Default().With("component", "retry", "operation", name)

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn()
		switch {
		case err == nil:
			if attempt > 1 {
				log.Info("recovered", "attempt", attempt)
			}
			return v, nil
		case cfg.Retryable != nil && !cfg.Retryable(err):
			return zero, fmt.Errorf("%s: %w", name, err)
		case attempt >= cfg.MaxAttempts:
			return zero, fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
		}

		wait := cfg.delay(attempt)
		log.Warn("attempt failed", "attempt", attempt, "of", cfg.MaxAttempts, "error", err, "backoff", wait)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("%s: abandoned during backoff: %w", name, ctx.Err())
		}
	}
}
