package simulator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry runs fn with exponential backoff, capped at 30s and bounded
// by maxRetries, grounded on the original system's simulator/shared/retry.rs.
// Each attempt's delay carries the library's standard jitter (±random
// factor), matching the original's "exponential with jitter" policy.
func WithRetry(ctx context.Context, base time.Duration, maxRetries int, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // bounded by retry count, not elapsed wall time

	attempt := 0
	policy := backoff.WithMaxRetries(b, uint64(maxRetries))
	return backoff.Retry(func() error {
		attempt++
		return fn()
	}, backoff.WithContext(policy, ctx))
}
