package resilience

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryTransient runs fn, retrying with capped exponential backoff when
// isTransient classifies the error as retryable. maxAttempts counts the
// initial call; non-transient errors surface immediately.
func RetryTransient(ctx context.Context, maxAttempts int, base time.Duration, isTransient func(error) bool, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if base <= 0 {
		base = time.Second
	}

	backoff := retry.WithCappedDuration(30*time.Second,
		retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(base)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
