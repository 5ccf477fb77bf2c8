package cmr

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/cmr-client/internal/metrics"
)

// RateLimiter throttles outgoing CMR calls with a token bucket so bulk
// searches and ingests stay inside CMR's per-client request rate. It never
// retries; it only delays.
type RateLimiter struct {
	limiter *rate.Limiter
	calls   atomic.Int64
	waited  atomic.Int64 // nanoseconds
	nowFunc func() time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a rate limiter allowing perSecond calls with the
// given burst. A non-positive perSecond disables throttling.
func NewRateLimiter(perSecond float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	r := &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Wait blocks until a call is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := r.nowFunc()
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	waited := r.nowFunc().Sub(start)
	r.calls.Add(1)
	r.waited.Add(int64(waited))
	metrics.RateLimitWaitSeconds.Observe(waited.Seconds())
	return nil
}

// Calls returns the number of calls admitted so far.
func (r *RateLimiter) Calls() int64 {
	return r.calls.Load()
}

// Waited returns the total time callers spent blocked.
func (r *RateLimiter) Waited() time.Duration {
	return time.Duration(r.waited.Load())
}
