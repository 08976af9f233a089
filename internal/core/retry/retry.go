// Package retry provides a reusable backoff policy and a retry combinator,
// independent of the I/O call being wrapped.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// BackoffPolicy maps a 1-based attempt number to the delay before the next
// attempt.
type BackoffPolicy func(attempt int) time.Duration

// Exponential returns a policy of base * 2^attempt. With base = 500ms the
// delays after attempts 1, 2, 3 are 1s, 2s, 4s.
func Exponential(base time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		d := base
		for i := 0; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

// Do runs op up to maxAttempts times, sleeping according to policy between
// attempts. The sleep is context-aware: cancellation interrupts the wait and
// surfaces ctx.Err(). Returns the error from the last attempt if all fail.
func Do(ctx context.Context, op func() error, maxAttempts int, policy BackoffPolicy) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(policy(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
