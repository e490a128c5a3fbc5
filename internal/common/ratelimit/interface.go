package ratelimit

import (
	"context"
)

// Limiter defines the main interface for rate limiting
type Limiter interface {
	Wait(ctx context.Context) error
	TryAcquire() bool

	// Key-based rate limiting for per-client restrictions
	TryAcquireForKey(key string) bool

	Stats() map[string]interface{}
	UpdateConfig(config Config) error
}
