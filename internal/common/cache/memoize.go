package cache

import (
	"context"
	"time"
)

// ComputeFunc produces the value to memoize for a key
type ComputeFunc func(ctx context.Context) (interface{}, error)

// Remember returns the cached value for key, computing and storing it on a miss.
// Concurrent misses for the same key share a single compute call. Errors from
// compute are returned as-is and nothing is stored.
//
// compute and the write run on a context detached from the caller's
// cancellation, so a caller that gives up does not fail the callers sharing
// its compute. Context values are kept.
func (c *FailoverCache) Remember(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (interface{}, error) {
	if value, found := c.Get(ctx, key); found {
		return value, nil
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		computed, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.SetWithTTL(shared, key, computed, ttl)
		return computed, nil
	})
	return value, err
}
