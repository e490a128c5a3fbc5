// Package cache provides a two-tier memoization cache with automatic degradation.
//
// It has two building blocks:
//
// 1. Store - a bounded, TTL-aware, LRU-evicting in-process key-value store
//   - Capacity bound enforced on every insert (evict before insert)
//   - Per-entry expiry, removed lazily on Get or eagerly by SweepExpired
//   - Hit/miss/eviction/expiration counters
//
// 2. FailoverCache - a facade preferring a RemoteBackend (e.g. Redis)
//   - Reads go to the remote tier first and fall through to the local store on a remote miss
//   - Writes go to both tiers so the local store stays a warm standby
//   - The first remote error switches the facade to local-only mode for good;
//     only ResetRemote switches it back
//   - Remote errors are logged and absorbed, never returned to callers
//
// Usage:
//
//	// Local-only
//	c, err := cache.New(cache.DefaultConfig(), nil, logger)
//
//	// With a remote tier
//	backend := redis.NewBackend(client, "features:")
//	c, err := cache.New(cache.Config{Capacity: 5000, DefaultTTL: 10 * time.Minute}, backend, logger)
//
//	c.Set(ctx, "user:1:profile", profile)
//	v, found := c.Get(ctx, "user:1:profile")
//	c.ClearMatching(ctx, "user:1:")
//
//	// Memoize an expensive computation
//	score, err := c.Remember(ctx, "model:score:42", time.Minute, func(ctx context.Context) (interface{}, error) {
//		return model.Score(ctx, 42)
//	})
package cache
