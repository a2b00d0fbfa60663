package scanning

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// retryPolicy is a bounded retry schedule for rate-limited requests.
// Only errors wrapping ErrRateLimited are retried; everything else is
// returned to the caller on the first attempt.
type retryPolicy struct {
	maxAttempts int
	backoff     time.Duration
}

func newRetryPolicy(maxAttempts int, backoff time.Duration) retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return retryPolicy{maxAttempts: maxAttempts, backoff: backoff}
}

// do runs fn up to maxAttempts times, sleeping the backoff delay between
// rate-limited attempts. Cancelling ctx aborts the wait.
func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
		if attempt == p.maxAttempts {
			break
		}
		slog.Warn("Rate limited, backing off",
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"backoff", p.backoff,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff):
		}
	}
	return err
}
