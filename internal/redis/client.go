package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"failover-cache/internal/common/validation"
)

const (
	DefaultAddress   = "localhost:6379"
	DefaultPoolSize  = 10
	DefaultKeyPrefix = "cache:"
	DefaultTimeout   = 500 * time.Millisecond
)

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
	// KeyPrefix namespaces every cache key so Clear never touches foreign data
	KeyPrefix string `json:"key_prefix"`
	// Timeout bounds each command, including the connect ping
	Timeout time.Duration `json:"timeout"`
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.PoolSize == 0 {
		config.PoolSize = DefaultPoolSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	if err := validation.NewFluentValidatorWithPrefix("redis").
		RequireHostPort(config.Address, "address").
		RequireRange(config.DB, 0, 15, "db").
		RequirePositive(config.PoolSize, "pool_size").
		Error(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.Timeout,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server within the configured timeout
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Config returns the effective configuration after defaults were applied
func (c *Client) Config() Config {
	return *c.config
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.config.Timeout)
}
