// Package ratelimit throttles how often a single user can drive the workflow.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result captures the outcome of a rate-limit evaluation. A denied request is not an error.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window frees a slot, at least one.
func (r *Result) RetryAfter(now time.Time) int {
	if r == nil {
		return 1
	}

	seconds := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter describes a sliding-window rate limiter.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Sweeper drops bookkeeping for keys that have been idle longer than maxAge.
type Sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}
