package webdav

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flashnote/syncd/internal/metrics"
)

const maxRetries = 3

// withRetry runs op, retrying retriable *Error failures with an exponential
// backoff capped at 8s (min(1s*2^attempt, 8s) per spec §4.1), up to
// maxRetries attempts beyond the first.
func withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 8 * time.Second
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // bounded by retryCount instead of elapsed time

	bctx := backoff.WithContext(b, ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !Retriable(err) {
			return backoff.Permanent(err)
		}
		attempt++
		return err
	}, bctx)

	metrics.RequestsTotal.Inc()
	if attempt > 0 {
		metrics.RequestsRetriedTotal.Inc()
	}
	return err
}
