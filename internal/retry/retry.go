// internal/retry/retry.go
// Bounded exponential-backoff retry shared by the scorer and the venue
// pipeline. One combinator instead of per-caller loops.

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how many attempts to make and how long to wait between
// them. The delay doubles after every failed attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy matches the service-wide retry defaults
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as not worth retrying. Do returns it immediately,
// unwrapped, without burning further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. The zero value of T is returned alongside the last
// error on failure.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		}
		delay *= 2
	}

	return zero, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}
