package cache

import (
	"context"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
)

// FailoverCache routes operations to a remote backend while it is healthy and
// to its local Store otherwise.
//
// The first remote fault flips the facade to local-only mode. It stays there
// until ResetRemote is called; there is no automatic failback, so a broken
// backend is never probed on the request path.
type FailoverCache struct {
	local  *Store
	remote RemoteBackend

	remoteAvailable atomic.Bool
	failovers       atomic.Int64

	group  singleflight.Group
	logger logging.Logger
}

var _ Cache = (*FailoverCache)(nil)

func newFailoverCache(local *Store, remote RemoteBackend, logger logging.Logger) *FailoverCache {
	c := &FailoverCache{
		local:  local,
		remote: remote,
		logger: logging.OrGlobal(logger).WithFields(logging.Field{Key: "component", Value: "failover_cache"}),
	}
	c.remoteAvailable.Store(remote != nil)
	return c
}

// Get returns the remote value when the remote tier has it, otherwise the local one.
// A remote miss still consults the local store, which may hold writes the remote never saw.
func (c *FailoverCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if c.remoteAvailable.Load() {
		value, found, err := c.remote.Get(ctx, key)
		if err != nil {
			c.handleRemoteError("get", key, err)
		} else if found {
			return value, true
		}
	}
	return c.local.Get(key)
}

// Set stores value with the local store's default TTL
func (c *FailoverCache) Set(ctx context.Context, key string, value interface{}) bool {
	return c.SetWithTTL(ctx, key, value, c.local.DefaultTTL())
}

// SetWithTTL writes to the remote tier while available and always to the local store
func (c *FailoverCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if c.remoteAvailable.Load() {
		if err := c.remote.Set(ctx, key, value, ttl); err != nil {
			c.handleRemoteError("set", key, err)
		}
	}
	return c.local.SetWithTTL(key, value, ttl)
}

// Delete removes key from both tiers and reports whether the local store held it
func (c *FailoverCache) Delete(ctx context.Context, key string) bool {
	if c.remoteAvailable.Load() {
		if err := c.remote.Delete(ctx, key); err != nil {
			c.markRemoteUnavailable("delete", key, err)
		}
	}
	return c.local.Delete(key)
}

// Clear empties both tiers
func (c *FailoverCache) Clear(ctx context.Context) {
	if c.remoteAvailable.Load() {
		if err := c.remote.Clear(ctx); err != nil {
			c.markRemoteUnavailable("clear", "", err)
		}
	}
	c.local.Clear()
}

// ClearMatching removes every key containing substring. The remote tier is
// included when its backend supports pattern deletion. The count is the local one.
func (c *FailoverCache) ClearMatching(ctx context.Context, substring string) int {
	if deleter, ok := c.remote.(PatternDeleter); ok && c.remoteAvailable.Load() {
		removed, err := deleter.DeleteMatching(ctx, substring)
		if err != nil {
			c.markRemoteUnavailable("delete_matching", substring, err)
		} else {
			c.logger.Debug("Remote pattern invalidation",
				logging.Field{Key: "match", Value: substring},
				logging.Field{Key: "removed", Value: removed},
			)
		}
	}
	return c.local.ClearMatching(substring)
}

// SweepExpired removes expired entries from the local store
func (c *FailoverCache) SweepExpired() int {
	return c.local.SweepExpired()
}

// Stats reports local counters and the remote tier state without a remote round-trip
func (c *FailoverCache) Stats() Stats {
	return Stats{
		StoreStats:       c.local.Stats(),
		RemoteConfigured: c.remote != nil,
		RemoteAvailable:  c.remoteAvailable.Load(),
		Failovers:        c.failovers.Load(),
	}
}

// RemoteAvailable reports whether operations are currently routed to the remote tier
func (c *FailoverCache) RemoteAvailable() bool {
	return c.remoteAvailable.Load()
}

// Local exposes the owned store for diagnostics
func (c *FailoverCache) Local() *Store {
	return c.local
}

// Inspect returns the local entry for key without affecting recency or counters
func (c *FailoverCache) Inspect(key string) (Entry, bool) {
	return c.local.Inspect(key)
}

// ResetRemote routes traffic back to the remote tier. It is an operator action:
// it fails when no backend was configured, and when the backend can be probed
// it must report healthy first.
func (c *FailoverCache) ResetRemote(ctx context.Context) error {
	if c.remote == nil {
		return errors.ConfigError("no remote backend configured").WithCode("remote_not_configured")
	}

	if checker, ok := c.remote.(HealthChecker); ok {
		if err := checker.Health(ctx); err != nil {
			c.logger.Warn("Remote reset refused, backend unhealthy", logging.Err(err))
			return errors.RemoteError("health", err).WithCode("remote_unhealthy")
		}
	}

	if c.remoteAvailable.CompareAndSwap(false, true) {
		c.logger.Info("Remote cache re-enabled by operator",
			logging.Field{Key: "failovers", Value: c.failovers.Load()},
		)
	}
	return nil
}

// handleRemoteError fails over on backend faults. Encoding errors concern a
// single value, so they are logged and the remote tier stays in use.
func (c *FailoverCache) handleRemoteError(op, key string, err error) {
	if errors.Is(err, ErrValueEncoding) {
		c.logger.Warn("Remote cache could not encode value, using local store",
			logging.String("operation", op),
			logging.String("key", key),
			logging.Err(err),
		)
		return
	}
	c.markRemoteUnavailable(op, key, err)
}

// markRemoteUnavailable performs the one-way REMOTE_PREFERRED -> LOCAL_ONLY
// transition. Concurrent callers may all get here; only one logs the switch.
func (c *FailoverCache) markRemoteUnavailable(op, key string, err error) {
	remoteErr := errors.RemoteError(op, err)
	if key != "" {
		remoteErr = remoteErr.WithContext("key", key)
	}

	if c.remoteAvailable.CompareAndSwap(true, false) {
		c.failovers.Inc()
		c.logger.Warn("Remote cache failed, switching to local-only mode",
			logging.String("operation", op),
			logging.String("key", key),
			logging.Err(remoteErr),
		)
		return
	}

	c.logger.Debug("Remote cache error absorbed",
		logging.String("operation", op),
		logging.Err(remoteErr),
	)
}
