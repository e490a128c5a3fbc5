// Package config provides configuration management for the failover cache service.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Operator API port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Cache Configuration:
//   - CACHE_CAPACITY: Maximum entries held by the local store (default: 1000)
//   - CACHE_DEFAULT_TTL_SECONDS: TTL applied when a write does not pass one (default: 300)
//   - CACHE_REMOTE_ENABLED: Use Redis as the remote tier (default: true)
//   - CACHE_SWEEP_SCHEDULE: Cron spec for expired-entry sweeps (default: @every 1m, empty disables)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - REDIS_KEY_PREFIX: Namespace for every cache key (default: cache:)
//   - REDIS_TIMEOUT: Per-command timeout (default: 500ms)
//
// Operator API Rate Limiting:
//   - ADMIN_RATE_LIMIT_RPS: Requests per second per client on mutating routes (default: 5)
//   - ADMIN_RATE_LIMIT_BURST: Burst size (default: 10)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//
//	settings := cfg.Settings()
//	fmt.Printf("Starting with capacity %d\n", settings.CacheCapacity)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/validation"
)

// Config holds raw configuration values as read from the environment.
// Call Validate before Settings.
type Config struct {
	// Application settings
	Port     string // Operator API port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Cache settings
	CacheCapacity          string // Local store capacity
	CacheDefaultTTLSeconds string // Default TTL in whole seconds
	CacheRemoteEnabled     bool   // Whether to connect to Redis at all
	CacheSweepSchedule     string // Cron spec; empty disables sweeping

	// Redis configuration for the remote tier
	RedisAddress   string // Redis server address (host:port)
	RedisPassword  string // Redis authentication password
	RedisDB        string // Redis database number (0-15)
	RedisPoolSize  string // Redis connection pool size
	RedisKeyPrefix string // Prefix applied to every cache key
	RedisTimeout   string // Per-command timeout (e.g. "500ms")

	// Rate limiting for mutating operator endpoints
	AdminRateLimitRPS   string
	AdminRateLimitBurst string

	settings *Settings
}

// Settings are the typed, validated configuration values
type Settings struct {
	Port int `json:"PORT" validate:"min=1,max=65535"`

	CacheCapacity      int           `json:"CACHE_CAPACITY" validate:"min=1"`
	CacheDefaultTTL    time.Duration `json:"CACHE_DEFAULT_TTL_SECONDS" validate:"gt=0"`
	CacheRemoteEnabled bool          `json:"CACHE_REMOTE_ENABLED"`
	CacheSweepSchedule string        `json:"CACHE_SWEEP_SCHEDULE" validate:"omitempty,cron_expression"`

	RedisAddress   string        `json:"REDIS_ADDRESS" validate:"omitempty,hostname_port"`
	RedisPassword  string        `json:"-"`
	RedisDB        int           `json:"REDIS_DB" validate:"min=0,max=15"`
	RedisPoolSize  int           `json:"REDIS_POOL_SIZE" validate:"min=1"`
	RedisKeyPrefix string        `json:"REDIS_KEY_PREFIX"`
	RedisTimeout   time.Duration `json:"REDIS_TIMEOUT" validate:"gt=0"`

	AdminRateLimitRPS   int `json:"ADMIN_RATE_LIMIT_RPS" validate:"min=1"`
	AdminRateLimitBurst int `json:"ADMIN_RATE_LIMIT_BURST" validate:"min=1"`
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Cache configuration
		CacheCapacity:          getEnv("CACHE_CAPACITY", "1000"),
		CacheDefaultTTLSeconds: getEnv("CACHE_DEFAULT_TTL_SECONDS", "300"),
		CacheRemoteEnabled:     getBoolEnv("CACHE_REMOTE_ENABLED", true),
		CacheSweepSchedule:     getEnvAllowEmpty("CACHE_SWEEP_SCHEDULE", "@every 1m"),

		// Redis configuration
		RedisAddress:   getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnv("REDIS_DB", "0"),
		RedisPoolSize:  getEnv("REDIS_POOL_SIZE", "10"),
		RedisKeyPrefix: getEnvAllowEmpty("REDIS_KEY_PREFIX", "cache:"),
		RedisTimeout:   getEnv("REDIS_TIMEOUT", "500ms"),

		// Rate limiting configuration
		AdminRateLimitRPS:   getEnv("ADMIN_RATE_LIMIT_RPS", "5"),
		AdminRateLimitBurst: getEnv("ADMIN_RATE_LIMIT_BURST", "10"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty returns defaultValue only when key is unset, so an explicit
// empty value can switch a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
//
// This function accepts common boolean representations:
//   - "true", "1", "t", "TRUE", "True" -> true
//   - "false", "0", "f", "FALSE", "False" -> false
//   - Any other value or parsing error -> returns defaultValue
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate parses every value and checks it against its rule. All problems are
// reported together as a single validation error.
func (c *Config) Validate() error {
	var problems []string
	atoi := func(name, value string) int {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be a whole number, got %q", name, value))
		}
		return n
	}

	settings := &Settings{
		Port:                atoi("PORT", c.Port),
		CacheCapacity:       atoi("CACHE_CAPACITY", c.CacheCapacity),
		CacheDefaultTTL:     time.Duration(atoi("CACHE_DEFAULT_TTL_SECONDS", c.CacheDefaultTTLSeconds)) * time.Second,
		CacheRemoteEnabled:  c.CacheRemoteEnabled,
		CacheSweepSchedule:  c.CacheSweepSchedule,
		RedisAddress:        c.RedisAddress,
		RedisPassword:       c.RedisPassword,
		RedisDB:             atoi("REDIS_DB", c.RedisDB),
		RedisPoolSize:       atoi("REDIS_POOL_SIZE", c.RedisPoolSize),
		RedisKeyPrefix:      c.RedisKeyPrefix,
		AdminRateLimitRPS:   atoi("ADMIN_RATE_LIMIT_RPS", c.AdminRateLimitRPS),
		AdminRateLimitBurst: atoi("ADMIN_RATE_LIMIT_BURST", c.AdminRateLimitBurst),
	}

	timeout, err := time.ParseDuration(c.RedisTimeout)
	if err != nil {
		problems = append(problems, fmt.Sprintf("REDIS_TIMEOUT must be a valid duration (e.g. '500ms', '2s'), got %q", c.RedisTimeout))
	}
	settings.RedisTimeout = timeout

	if settings.CacheRemoteEnabled && settings.RedisAddress == "" {
		problems = append(problems, "REDIS_ADDRESS is required when CACHE_REMOTE_ENABLED is true")
	}

	if len(problems) > 0 {
		return errors.ValidationError(fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; ")))
	}

	if err := validation.ValidateStruct(settings); err != nil {
		return err
	}

	c.settings = settings
	return nil
}

// Settings returns the typed configuration. It panics if Validate has not succeeded.
func (c *Config) Settings() Settings {
	if c.settings == nil {
		panic("config: Settings called before a successful Validate")
	}
	return *c.settings
}
