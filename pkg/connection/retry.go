package connection

import (
	"context"
	"time"
)

// RetryPolicy controls how many times a failed send is attempted before the
// failure is reported to the caller. The default policy makes a single
// attempt: a failed send surfaces immediately.
//
// Retries apply to send failures only. A request that was written to the
// peer but never answered is a timeout, not a send failure, and is never
// retried here.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Backoff supplies the delay between attempts. Nil means retry
	// immediately.
	Backoff *Backoff

	// Retryable reports whether an error warrants another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the single-attempt policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// attempts returns the effective attempt count.
func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn up to MaxAttempts times, waiting out the backoff delay between
// attempts. It returns nil on the first success, the last error once
// attempts are exhausted or the error is not retryable, or the context
// error if the context ends while waiting to retry.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.attempts()

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= attempts {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff.Next()
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
