package storeengine

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry runs fn with an exponential backoff (capped and jittered) up to maxElapsed, retrying
// only on errors wrapped with retry.RetryableError. Block writer backends use this to absorb
// transient I/O failures without surfacing them to callers, which otherwise treat any
// sub-operation failure as fatal to the current attempt.
func Retry(ctx context.Context, maxElapsed time.Duration, fn func(ctx context.Context) error) error {
	b, err := retry.NewExponential(10 * time.Millisecond)
	if err != nil {
		return err
	}
	b = retry.WithMaxDuration(maxElapsed, b)
	b = retry.WithJitterPercent(10, b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		return fn(ctx)
	})
}

// Retryable marks err as transient so Retry will attempt it again.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retry.RetryableError(err)
}
