package ecommerce

import (
	"context"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter paces outgoing calls to one platform.
// Safe for concurrent use.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketLimiter creates a limiter allowing qps requests per second with
// the given burst. A burst of 0 defaults to max(1, int(qps)).
func NewTokenBucketLimiter(qps float64, burst int) *TokenBucketLimiter {
	if qps <= 0 {
		qps = 1
	}
	if burst <= 0 {
		burst = max(1, int(qps))
	}
	return &TokenBucketLimiter{limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

// Acquire blocks until a token is available or ctx is done
func (l *TokenBucketLimiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
