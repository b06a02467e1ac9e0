// Package resilience provides retry and error classification for upstream calls.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy controls how a failed call is retried.
type Policy struct {
	// Retries is the number of extra attempts after the first one.
	// Zero disables retrying.
	Retries int

	// BaseDelay is the delay before the first retry; each later retry
	// doubles it.
	BaseDelay time.Duration

	// MaxDelay caps a single delay.
	MaxDelay time.Duration

	// ShouldRetry overrides the default Retryable predicate.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number
	// (1-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// NoRetry is a Policy that makes exactly one attempt.
var NoRetry = Policy{}

// Backoff returns the delay before retry number attempt (0-based):
// min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = 30 * time.Second
	}
	d := base
	for range attempt {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// retries are exhausted, or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Retryable
	}

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || attempt >= p.Retries || !shouldRetry(err) {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
