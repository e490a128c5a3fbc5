// Package ratelimit provides in-memory token bucket rate limiting built on
// golang.org/x/time/rate, either globally or per key.
//
// The operator API wraps its mutating routes with HTTPMiddleware keyed by
// client IP:
//
//	limiter, err := ratelimit.NewLocal(5, 10) // 5 RPS, burst of 10
//	if err != nil {
//		return err
//	}
//	router.Use(ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey))
//
// Per-key limiters that have not been used for CleanupPeriod are dropped
// lazily, and eagerly once more than MaxKeys are tracked.
package ratelimit
