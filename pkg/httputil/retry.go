package httputil

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryableError marks a failure as transient. [CheckResponse] wraps 5xx and
// 429 responses in it; callers wrap transport errors themselves.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Backoff is a retry schedule for transient fetch failures. The delay
// doubles after every failed attempt and is capped at MaxDelay when set.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultBackoff is the schedule used for remote documents.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second, MaxDelay: 8 * time.Second}

// Do runs fn until it succeeds, fails permanently, or the attempts run out.
// fn receives the zero-based attempt number. The last error is returned, or
// ctx.Err() if the context ends while waiting.
func (b Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var lastErr error

	for i := range attempts {
		if lastErr = fn(i); lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	return lastErr
}

// Retry runs fn with a plain doubling schedule.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return Backoff{Attempts: attempts, Delay: delay}.Do(ctx, func(int) error { return fn() })
}

// Retryable reports whether err is worth another attempt: it was marked with
// [RetryableError] or is a network timeout.
func Retryable(err error) bool {
	if errors.As(err, new(*RetryableError)) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
