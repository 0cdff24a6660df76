package handlers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"nafsAPI/internal/apperr"
)

const (
	maxRetries   = 2
	retryBackoff = 50 * time.Millisecond
)

func retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBackoff
	b.MaxInterval = 4 * retryBackoff
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// withRetry reruns fn while it fails with a retryable transaction error.
// Every operation it wraps is idempotent or guarded by a uniqueness check.
func withRetry(ctx context.Context, fn func() error) error {
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !apperr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, retryPolicy(ctx))
}
