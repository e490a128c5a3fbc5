package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// NewLocal creates a new local rate limiter
func NewLocal(requestsPerSecond, burstSize int) (Limiter, error) {
	config := DefaultConfig()
	config.RequestsPerSecond = requestsPerSecond
	config.BurstSize = burstSize
	return NewLocalLimiter(config)
}

// HTTPMiddleware creates an HTTP middleware for rate limiting
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)

			var allowed bool
			if key == "" {
				allowed = limiter.TryAcquire()
			} else {
				allowed = limiter.TryAcquireForKey(key)
			}

			if !allowed {
				stats := limiter.Stats()
				if rps, ok := stats["requests_per_second"].(int); ok {
					w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rps))
				}
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")

				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKey extracts the client IP, preferring proxy headers
func IPKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// The first entry is the original client
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
