package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"failover-cache/internal/common/cache"
)

// scanBatch is the COUNT hint for SCAN and the DEL batch size
const scanBatch = 500

// Backend stores cache values in Redis as JSON under the client's key prefix.
// It satisfies cache.RemoteBackend, cache.HealthChecker and cache.PatternDeleter.
type Backend struct {
	client *Client
	prefix string
}

// NewBackend wraps a connected client
func NewBackend(client *Client) *Backend {
	return &Backend{
		client: client,
		prefix: client.config.KeyPrefix,
	}
}

// Get reports found=false on a missing key. A stored value that is not valid
// JSON yields an error wrapping cache.ErrValueEncoding.
//
// Values come back as decoded JSON, so their Go type depends on the tier that
// served them: Set(1) reads back as float64(1) from Redis but as int 1 from the
// local store after a failover. Structs come back as map[string]interface{}.
func (b *Backend) Get(ctx context.Context, key string) (interface{}, bool, error) {
	ctx, cancel := b.client.withTimeout(ctx)
	defer cancel()

	data, err := b.client.rdb.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode %s: %w", cache.ErrValueEncoding, key, err)
	}
	return value, true, nil
}

// Set writes value with ttl. A non-positive ttl removes the key instead, since
// Redis rejects such expirations and the value would be expired anyway.
// Values JSON cannot represent (NaN, channels, funcs) fail with an error
// wrapping cache.ErrValueEncoding before any command is sent.
func (b *Backend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, cancel := b.client.withTimeout(ctx)
	defer cancel()

	if ttl <= 0 {
		if err := b.client.rdb.Del(ctx, b.key(key)).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal value for %s: %w", cache.ErrValueEncoding, key, err)
	}
	if err := b.client.rdb.Set(ctx, b.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.client.withTimeout(ctx)
	defer cancel()

	if err := b.client.rdb.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the prefix
func (b *Backend) Clear(ctx context.Context) error {
	_, err := b.deletePattern(ctx, escapeGlob(b.prefix)+"*")
	return err
}

// DeleteMatching removes every prefixed key whose unprefixed name contains substring
func (b *Backend) DeleteMatching(ctx context.Context, substring string) (int, error) {
	return b.deletePattern(ctx, escapeGlob(b.prefix)+"*"+escapeGlob(substring)+"*")
}

func (b *Backend) Health(ctx context.Context) error {
	return b.client.Health(ctx)
}

func (b *Backend) key(key string) string {
	return b.prefix + key
}

// deletePattern walks the keyspace with SCAN and deletes matches in batches.
// Each batch gets its own timeout.
func (b *Backend) deletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		batchCtx, cancel := b.client.withTimeout(ctx)
		keys, next, err := b.client.rdb.Scan(batchCtx, cursor, pattern, scanBatch).Result()
		if err != nil {
			cancel()
			return removed, fmt.Errorf("failed to scan %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			n, err := b.client.rdb.Del(batchCtx, keys...).Result()
			if err != nil {
				cancel()
				return removed, fmt.Errorf("failed to delete keys matching %s: %w", pattern, err)
			}
			removed += int(n)
		}
		cancel()

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

var globReplacer = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob quotes the characters Redis MATCH treats as glob syntax
func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
