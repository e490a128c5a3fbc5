package cache

import (
	"fmt"
	"time"

	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = 300 * time.Second
)

// Config holds local store configuration
type Config struct {
	// Capacity is the maximum number of live entries; 0 disables retention entirely
	Capacity int `json:"capacity"`
	// DefaultTTL applies to Set calls that do not pass a TTL
	DefaultTTL time.Duration `json:"default_ttl"`
	// Clock overrides time.Now, mainly for tests
	Clock func() time.Time `json:"-"`
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		DefaultTTL: DefaultTTL,
	}
}

// Validate rejects configurations a bounded store cannot honour
func (c Config) Validate() error {
	if c.Capacity < 0 {
		return errors.CapacityError(c.Capacity)
	}
	if c.DefaultTTL <= 0 {
		return errors.ConfigError(fmt.Sprintf("default TTL must be positive, got %v", c.DefaultTTL))
	}
	return nil
}

// New creates a failover cache owning a fresh local store. A nil remote puts
// the cache in local-only mode for its whole life.
func New(config Config, remote RemoteBackend, logger logging.Logger) (*FailoverCache, error) {
	local, err := NewStore(config)
	if err != nil {
		return nil, err
	}
	return newFailoverCache(local, remote, logger), nil
}

// MustNew creates a cache instance or panics
func MustNew(config Config, remote RemoteBackend, logger logging.Logger) *FailoverCache {
	c, err := New(config, remote, logger)
	if err != nil {
		panic(err)
	}
	return c
}
