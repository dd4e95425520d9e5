// Package ratelimit bounds suggestion traffic per caller identity.
package ratelimit

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
)

// maxTrackedCallers bounds limiter state; evicted callers simply start a
// fresh window on their next request.
const maxTrackedCallers = 4096

// CallerLimiter enforces a rolling per-caller request budget. Safe for
// concurrent use; the LRU cache carries its own lock.
type CallerLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewCallerLimiter allows requestsPerWindow requests per caller over the
// given window, with bursts up to the full window budget.
func NewCallerLimiter(requestsPerWindow int, window time.Duration) (*CallerLimiter, error) {
	if requestsPerWindow <= 0 {
		return nil, fmt.Errorf("requests per window must be positive, got %d", requestsPerWindow)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	cache, err := lru.New[string, *rate.Limiter](maxTrackedCallers)
	if err != nil {
		return nil, fmt.Errorf("create limiter cache: %w", err)
	}

	return &CallerLimiter{
		limiters: cache,
		limit:    rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:    requestsPerWindow,
	}, nil
}

// Allow consumes one request slot for the caller. Exceeding the budget
// returns apperrors.ErrRateLimited; the caller may retry after the window
// refills.
func (l *CallerLimiter) Allow(caller string) error {
	if caller == "" {
		caller = "anonymous"
	}

	limiter, ok := l.limiters.Get(caller)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		// Another goroutine may have raced the insert; use its limiter so
		// both share one budget.
		if prev, existed, _ := l.limiters.PeekOrAdd(caller, limiter); existed {
			limiter = prev
		}
	}

	if !limiter.Allow() {
		return apperrors.ErrRateLimited
	}
	return nil
}
