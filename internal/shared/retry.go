package shared

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// RetryPolicy describes how many times an operation is attempted and how long
// to wait between attempts. The wait doubles after every failure.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Delay returns the backoff before retry number n (zero based).
func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.BaseDelay << n
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() if the context is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that [WithRetry] returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithRetry calls fn until it succeeds, the attempts are exhausted or ctx is cancelled.
// It returns the last error from fn. Errors wrapped with [Permanent] are returned
// immediately, unwrapped.
func WithRetry(ctx context.Context, logger *log.Logger, policy RetryPolicy, sleep Sleeper, fn func() error) error {
	if sleep == nil {
		sleep = Sleep
	}
	attempts := max(policy.Attempts, 1)

	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == attempts-1 {
			break
		}

		delay := policy.Delay(attempt)
		if logger != nil {
			logger.Warn("attempt failed, retrying", "attempt", attempt+1, "max", attempts, "delay", delay, "error", lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}
