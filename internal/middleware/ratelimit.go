package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/James-Fry-2/train-data-api/pkg/response"
)

// RateLimiter is a sliding-window limiter keyed by caller identity
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewRateLimiter creates a limiter allowing limit requests per window for each key.
// Its background sweep stops when ctx is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	go rl.sweep(ctx)

	return rl
}

// Done is closed once the background sweep has exited
func (rl *RateLimiter) Done() <-chan struct{} {
	return rl.done
}

// sweep drops keys whose requests have all left the window
func (rl *RateLimiter) sweep(ctx context.Context) {
	defer close(rl.done)

	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, times := range rl.requests {
		if kept := rl.prune(times, now); len(kept) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = kept
		}
	}
}

// prune keeps the timestamps still inside the window, reusing the slice
func (rl *RateLimiter) prune(times []time.Time, now time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if now.Sub(t) < rl.window {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow records a request for key and reports whether it fits the limit,
// together with how many requests remain in the current window
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	times := rl.prune(rl.requests[key], now)
	if len(times) >= rl.limit {
		rl.requests[key] = times
		return false, 0
	}

	times = append(times, now)
	rl.requests[key] = times
	return true, rl.limit - len(times)
}

// RateLimit middleware limits requests per authenticated user, falling back to
// the client IP on unauthenticated routes
func RateLimit(ctx context.Context, limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(ctx, limit, window)

	return func(c *gin.Context) {
		key := UserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		ok, remaining := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			return
		}

		c.Next()
	}
}
