// Package rate provides the single process-wide serial pacing primitive used
// by both the explorer client and the artifact publisher: at most one
// caller may start an outbound call per configured interval.
package rate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Guard enforces a minimum spacing between the start of successive calls.
// It is safe for concurrent use; callers queue behind Wait in arrival order.
type Guard struct {
	limiter *rate.Limiter
}

// NewGuard returns a Guard that allows at most one call to proceed per
// interval. A single token is ever in the bucket, so a burst of concurrent
// callers still gets serialized one-per-interval rather than let a batch
// through immediately.
func NewGuard(interval time.Duration) *Guard {
	return &Guard{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the caller may proceed, or ctx is done.
func (g *Guard) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
