package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localLimiter keeps one token bucket per key plus a global bucket for unkeyed requests
type localLimiter struct {
	mu       sync.Mutex
	config   Config
	limiters map[string]*limiterEntry
	global   *rate.Limiter
	now      func() time.Time

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLocalLimiter creates a new local rate limiter using golang.org/x/time/rate
func NewLocalLimiter(config Config) (Limiter, error) {
	return newLocalLimiter(config, time.Now)
}

func newLocalLimiter(config Config, now func() time.Time) (*localLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &localLimiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		global:      rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize),
		now:         now,
		lastCleanup: now(),
	}, nil
}

// Wait blocks until the global bucket grants a token or ctx is done
func (rl *localLimiter) Wait(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}
	return rl.global.Wait(ctx)
}

// TryAcquire takes a token from the global bucket without blocking
func (rl *localLimiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.global.AllowN(rl.now(), 1)
}

// TryAcquireForKey takes a token from key's bucket without blocking
func (rl *localLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	rl.mu.Lock()
	now := rl.now()
	limiter := rl.limiterForKeyLocked(key, now)
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// limiterForKeyLocked gets or creates the bucket for key (caller must hold lock)
func (rl *localLimiter) limiterForKeyLocked(key string, now time.Time) *rate.Limiter {
	if now.Sub(rl.lastCleanup) > rl.config.CleanupPeriod {
		rl.cleanupLocked(now)
	}

	if entry, ok := rl.limiters[key]; ok {
		entry.lastUsed = now
		return entry.limiter
	}

	if len(rl.limiters) >= rl.config.MaxKeys {
		rl.cleanupLocked(now)
		if len(rl.limiters) >= rl.config.MaxKeys {
			rl.evictLeastRecentLocked()
		}
	}

	entry := &limiterEntry{
		limiter:  rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
		lastUsed: now,
	}
	rl.limiters[key] = entry
	return entry.limiter
}

// cleanupLocked drops buckets idle for longer than CleanupPeriod
func (rl *localLimiter) cleanupLocked(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupPeriod)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = now
}

func (rl *localLimiter) evictLeastRecentLocked() {
	var (
		oldestKey  string
		oldestUsed time.Time
	)
	for key, entry := range rl.limiters {
		if oldestKey == "" || entry.lastUsed.Before(oldestUsed) {
			oldestKey, oldestUsed = key, entry.lastUsed
		}
	}
	delete(rl.limiters, oldestKey)
}

// Stats returns rate limiter statistics
func (rl *localLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"type":                "local",
		"enabled":             rl.config.Enabled,
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst_size":          rl.config.BurstSize,
		"available_tokens":    rl.global.TokensAt(rl.now()),
		"active_keys":         len(rl.limiters),
		"max_keys":            rl.config.MaxKeys,
		"last_cleanup":        rl.lastCleanup.Format(time.RFC3339),
	}
}

// UpdateConfig applies new limits to the global bucket and every tracked key
func (rl *localLimiter) UpdateConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit := rate.Limit(config.RequestsPerSecond)
	rl.global.SetLimit(limit)
	rl.global.SetBurst(config.BurstSize)
	for _, entry := range rl.limiters {
		entry.limiter.SetLimit(limit)
		entry.limiter.SetBurst(config.BurstSize)
	}

	rl.config = config
	return nil
}

var _ Limiter = (*localLimiter)(nil)
