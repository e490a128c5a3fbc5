package cache

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrValueEncoding marks a remote error caused by a value the backend could not
// encode or decode. It says nothing about the backend's health.
var ErrValueEncoding = stderrors.New("cache value encoding failed")

// Cache defines the operations application code uses to memoize values
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}) bool
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	Clear(ctx context.Context)
	ClearMatching(ctx context.Context, substring string) int
	SweepExpired() int
	Stats() Stats
}

// RemoteBackend is the remote cache tier consumed by FailoverCache.
//
// Implementations carry their own timeouts. Any returned error is treated as
// "remote unavailable" unless it wraps ErrValueEncoding; a miss must be
// reported as found=false with a nil error.
type RemoteBackend interface {
	Get(ctx context.Context, key string) (value interface{}, found bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// HealthChecker is implemented by backends that can be probed before an administrative reset
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PatternDeleter is implemented by backends that can remove every key containing a substring
type PatternDeleter interface {
	DeleteMatching(ctx context.Context, substring string) (int, error)
}

// StoreStats is a point-in-time view of a Store's counters
type StoreStats struct {
	Size        int     `json:"size"`
	Capacity    int     `json:"capacity"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitRatio    float64 `json:"hit_ratio"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
}

// Stats is the facade view: local store counters plus remote tier state
type Stats struct {
	StoreStats
	RemoteConfigured bool  `json:"remote_configured"`
	RemoteAvailable  bool  `json:"remote_available"`
	Failovers        int64 `json:"failovers"`
}

// hitRatio returns hits / (hits + misses), or 0 when nothing was requested
func hitRatio(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
