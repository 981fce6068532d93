// Package retry implements bounded retry with exponential backoff for
// at-most-once external persistence operations.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how many attempts an operation gets and how long to wait
// between them. The delay doubles from BaseDelay each attempt, capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the write path: 3 attempts, 200ms base, 2s cap.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// Delay returns the wait before the given attempt (1-based). There is no wait
// before the first attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 2; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// permanentError wraps an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as terminal: Do stops immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op up to p.MaxAttempts times, sleeping p.Delay between attempts.
// A nil return from op ends the loop. An error wrapped with Permanent ends the
// loop immediately. Context cancellation aborts between attempts. The last
// underlying error is returned after the attempts are exhausted.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if d := p.Delay(attempt); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, errors.Join(ctx.Err(), lastErr))
			}
		}

		err := op()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	return fmt.Errorf("exhausted %d attempts: %w", p.MaxAttempts, lastErr)
}
