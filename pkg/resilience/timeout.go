package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

type outcome[T any] struct {
	value T
	err   error
}

// Within runs fn with a deadline of d and stops waiting for it once the
// deadline passes, even if fn does not watch its context. A deadline of
// zero or less disables the limit. Expiry is reported as ErrTimeout; a
// cancelled parent context is returned as is.
func Within[T any](ctx context.Context, d time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	dctx, cancel := context.WithTimeoutCause(ctx, d, apperrors.ErrTimeout)
	defer cancel()

	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn(dctx)
		ch <- outcome[T]{v, err}
	}()

	var zero T
	select {
	case o := <-ch:
		if o.err != nil && ctx.Err() == nil && context.Cause(dctx) == apperrors.ErrTimeout {
			return zero, fmt.Errorf("%s exceeded %v: %w", name, d, apperrors.ErrTimeout)
		}
		return o.value, o.err
	case <-dctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		return zero, fmt.Errorf("%s exceeded %v: %w", name, d, apperrors.ErrTimeout)
	}
}

// WithTimeout is Within for operations without a result.
func WithTimeout(ctx context.Context, d time.Duration, name string, fn func(context.Context) error) error {
	_, err := Within(ctx, d, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
