package cache

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
	"failover-cache/internal/testutil"
)

func newTestFailoverCache(t *testing.T, remote RemoteBackend) *FailoverCache {
	t.Helper()
	c, err := New(Config{Capacity: 100, DefaultTTL: time.Minute}, remote, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestFailoverCache_LocalOnlyFromConstruction(t *testing.T) {
	ctx := context.Background()
	c := newTestFailoverCache(t, nil)

	assert.False(t, c.RemoteAvailable())
	assert.True(t, c.Set(ctx, "a", 1))

	got, found := c.Get(ctx, "a")
	assert.True(t, found)
	assert.Equal(t, 1, got)

	stats := c.Stats()
	assert.False(t, stats.RemoteConfigured)
	assert.False(t, stats.RemoteAvailable)
	assert.Equal(t, int64(0), stats.Failovers)
	assert.Equal(t, 1, stats.Size)
}

func TestFailoverCache_FailoverScenario(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote().FailFromCall(2)
	c := newTestFailoverCache(t, remote)

	require.True(t, c.RemoteAvailable())

	// Call 1: both tiers accept the write
	assert.True(t, c.Set(ctx, "x", 1))
	assert.True(t, remote.Has("x"))

	// Call 2: remote get fails, the value comes from the warm local tier
	got, found := c.Get(ctx, "x")
	assert.True(t, found)
	assert.Equal(t, 1, got)
	assert.False(t, c.RemoteAvailable())

	// Local-only from now on: the remote is not called again
	calls := remote.TotalCalls()
	assert.True(t, c.Set(ctx, "y", 2))
	assert.Equal(t, calls, remote.TotalCalls())
	assert.False(t, remote.Has("y"))

	got, found = c.Get(ctx, "y")
	assert.True(t, found)
	assert.Equal(t, 2, got)

	stats := c.Stats()
	assert.True(t, stats.RemoteConfigured)
	assert.False(t, stats.RemoteAvailable)
	assert.Equal(t, int64(1), stats.Failovers)
}

func TestFailoverCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("remote hit is returned without consulting local", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)

		remote.Put("k", "remote-value", time.Minute)
		c.Local().Set("k", "local-value")

		got, found := c.Get(ctx, "k")
		assert.True(t, found)
		assert.Equal(t, "remote-value", got)
		assert.Equal(t, uint64(0), c.Stats().Hits+c.Stats().Misses)
	})

	t.Run("remote miss falls through to local", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Local().Set("k", "local-value")

		got, found := c.Get(ctx, "k")
		assert.True(t, found)
		assert.Equal(t, "local-value", got)
		assert.True(t, c.RemoteAvailable())
	})

	t.Run("falsy remote values are hits", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Local().Set("zero", 99)
		remote.Put("zero", 0, time.Minute)
		remote.Put("empty", "", time.Minute)

		got, found := c.Get(ctx, "zero")
		assert.True(t, found)
		assert.Equal(t, 0, got)

		got, found = c.Get(ctx, "empty")
		assert.True(t, found)
		assert.Equal(t, "", got)
	})

	t.Run("miss in both tiers", func(t *testing.T) {
		c := newTestFailoverCache(t, testutil.NewFakeRemote())

		got, found := c.Get(ctx, "missing")
		assert.False(t, found)
		assert.Nil(t, got)
		assert.Equal(t, uint64(1), c.Stats().Misses)
	})
}

func TestFailoverCache_SetWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	remote := new(testutil.MockRemote)
	remote.On("Set", mock.Anything, "k", "v", 30*time.Second).Return(nil).Once()

	c := newTestFailoverCache(t, remote)
	assert.True(t, c.SetWithTTL(ctx, "k", "v", 30*time.Second))

	entry, found := c.Inspect("k")
	require.True(t, found)
	assert.Equal(t, "v", entry.Value)
	assert.Equal(t, 30*time.Second, entry.TTL)
	remote.AssertExpectations(t)
}

func TestFailoverCache_SetUsesDefaultTTL(t *testing.T) {
	ctx := context.Background()
	remote := new(testutil.MockRemote)
	remote.On("Set", mock.Anything, "k", "v", time.Minute).Return(nil).Once()

	c := newTestFailoverCache(t, remote)
	c.Set(ctx, "k", "v")

	remote.AssertExpectations(t)
}

func TestFailoverCache_RemoteSetErrorStillWritesLocal(t *testing.T) {
	ctx := context.Background()
	remote := new(testutil.MockRemote)
	remote.On("Set", mock.Anything, "k", "v", time.Minute).Return(testutil.ErrRemoteDown).Once()

	c := newTestFailoverCache(t, remote)
	assert.True(t, c.Set(ctx, "k", "v"))
	assert.False(t, c.RemoteAvailable())

	got, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", got)

	remote.AssertExpectations(t)
	remote.AssertNotCalled(t, "Get", mock.Anything, "k")
}

func TestFailoverCache_EncodingErrorKeepsRemote(t *testing.T) {
	encodingErr := fmt.Errorf("%w: json: unsupported value: NaN", ErrValueEncoding)

	t.Run("set", func(t *testing.T) {
		var buf syncBuffer
		logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.WarnLevel, Output: &buf})
		require.NoError(t, err)

		ctx := context.Background()
		remote := testutil.NewFakeRemote()
		remote.SetError("Set", encodingErr)
		c, err := New(Config{Capacity: 100, DefaultTTL: time.Minute}, remote, logger)
		require.NoError(t, err)

		assert.True(t, c.Set(ctx, "score", "unencodable"))
		assert.True(t, c.RemoteAvailable())
		assert.Equal(t, int64(0), c.Stats().Failovers)
		assert.Contains(t, buf.String(), "could not encode value")
		assert.NotContains(t, buf.String(), "switching to local-only mode")

		got, found := c.Get(ctx, "score")
		assert.True(t, found, "the local write still happens")
		assert.Equal(t, "unencodable", got)

		// Later writes keep reaching the remote tier
		remote.SetError("Set", nil)
		c.Set(ctx, "next", 1)
		assert.True(t, remote.Has("next"))
	})

	t.Run("get", func(t *testing.T) {
		ctx := context.Background()
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "k", "local")

		remote.SetError("Get", encodingErr)
		got, found := c.Get(ctx, "k")
		assert.True(t, found)
		assert.Equal(t, "local", got)
		assert.True(t, c.RemoteAvailable())

		_, found = c.Get(ctx, "missing")
		assert.False(t, found)
		assert.Equal(t, int64(0), c.Stats().Failovers)
	})
}

func TestFailoverCache_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors to both tiers", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "k", "v")

		assert.True(t, c.Delete(ctx, "k"))
		assert.False(t, remote.Has("k"))
		_, found := c.Local().Inspect("k")
		assert.False(t, found)
	})

	t.Run("absent key is idempotent", func(t *testing.T) {
		c := newTestFailoverCache(t, testutil.NewFakeRemote())
		c.Set(ctx, "other", 1)

		assert.False(t, c.Delete(ctx, "missing"))
		assert.Equal(t, 1, c.Stats().Size)
	})

	t.Run("remote error triggers failover and local delete still happens", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "k", "v")
		remote.SetError("Delete", testutil.ErrRemoteDown)

		assert.True(t, c.Delete(ctx, "k"))
		assert.False(t, c.RemoteAvailable())
		assert.Equal(t, 0, c.Stats().Size)
	})
}

func TestFailoverCache_Clear(t *testing.T) {
	ctx := context.Background()

	t.Run("clears both tiers", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "a", 1)
		c.Set(ctx, "b", 2)

		c.Clear(ctx)

		assert.Equal(t, 0, remote.Len())
		assert.Equal(t, 0, c.Stats().Size)
	})

	t.Run("remote error still clears local", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "a", 1)
		remote.SetError("Clear", testutil.ErrRemoteDown)

		c.Clear(ctx)

		assert.False(t, c.RemoteAvailable())
		assert.Equal(t, 0, c.Stats().Size)
	})

	t.Run("local only skips remote", func(t *testing.T) {
		remote := new(testutil.MockRemote)
		remote.On("Set", mock.Anything, "a", 1, time.Minute).Return(testutil.ErrRemoteDown).Once()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "a", 1)

		c.Clear(ctx)

		remote.AssertNotCalled(t, "Clear", mock.Anything)
		assert.Equal(t, 0, c.Stats().Size)
	})
}

func TestFailoverCache_ClearMatching(t *testing.T) {
	ctx := context.Background()

	t.Run("pattern deleter backend is mirrored", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "user:1:profile", "p1")
		c.Set(ctx, "user:1:orders", "o1")
		c.Set(ctx, "user:2:profile", "p2")

		assert.Equal(t, 2, c.ClearMatching(ctx, "user:1:"))
		assert.False(t, remote.Has("user:1:profile"))
		assert.False(t, remote.Has("user:1:orders"))
		assert.True(t, remote.Has("user:2:profile"))
		assert.Equal(t, 1, c.Stats().Size)
	})

	t.Run("backend without pattern support only clears local", func(t *testing.T) {
		remote := new(testutil.MockRemote)
		remote.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Minute).Return(nil)
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "user:1:profile", "p1")

		assert.Equal(t, 1, c.ClearMatching(ctx, "user:1:"))
		assert.True(t, c.RemoteAvailable())
	})

	t.Run("remote error triggers failover", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		c.Set(ctx, "user:1:profile", "p1")
		remote.SetError("DeleteMatching", testutil.ErrRemoteDown)

		assert.Equal(t, 1, c.ClearMatching(ctx, "user:1:"))
		assert.False(t, c.RemoteAvailable())
	})
}

func TestFailoverCache_SweepExpired(t *testing.T) {
	clock := testutil.NewFakeClock()
	c, err := New(Config{Capacity: 10, DefaultTTL: time.Minute, Clock: clock.Now}, nil, logging.NewNopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	c.SetWithTTL(ctx, "short", 1, time.Second)
	c.SetWithTTL(ctx, "long", 2, time.Hour)
	clock.Advance(time.Minute)

	assert.Equal(t, 1, c.SweepExpired())
	assert.Equal(t, 1, c.Stats().Size)
}

func TestFailoverCache_NoAutomaticFailback(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	c := newTestFailoverCache(t, remote)

	remote.SetError("Get", testutil.ErrRemoteDown)
	c.Get(ctx, "k")
	require.False(t, c.RemoteAvailable())

	// The backend recovers, but the facade keeps serving locally
	remote.SetError("Get", nil)
	before := remote.TotalCalls()
	for i := 0; i < 10; i++ {
		c.Get(ctx, "k")
		c.Set(ctx, "k", i)
	}
	assert.Equal(t, before, remote.TotalCalls())
	assert.False(t, c.RemoteAvailable())
}

func TestFailoverCache_ResetRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("no remote configured", func(t *testing.T) {
		c := newTestFailoverCache(t, nil)

		err := c.ResetRemote(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
		assert.False(t, c.RemoteAvailable())
	})

	t.Run("healthy backend is re-enabled", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		remote.SetError("Get", testutil.ErrRemoteDown)
		c.Get(ctx, "k")
		require.False(t, c.RemoteAvailable())

		remote.SetError("Get", nil)
		require.NoError(t, c.ResetRemote(ctx))
		assert.True(t, c.RemoteAvailable())
		assert.Equal(t, 1, remote.CallCount("Health"))

		c.Set(ctx, "after-reset", 1)
		assert.True(t, remote.Has("after-reset"))
	})

	t.Run("unhealthy backend is refused", func(t *testing.T) {
		remote := testutil.NewFakeRemote()
		c := newTestFailoverCache(t, remote)
		remote.SetError("Set", testutil.ErrRemoteDown)
		c.Set(ctx, "k", 1)
		require.False(t, c.RemoteAvailable())

		remote.SetError("Health", testutil.ErrRemoteDown)
		err := c.ResetRemote(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeRemote))
		assert.False(t, c.RemoteAvailable())
	})

	t.Run("backend without health probe", func(t *testing.T) {
		remote := new(testutil.MockRemote)
		remote.On("Get", mock.Anything, "k").Return(nil, false, testutil.ErrRemoteDown).Once()
		c := newTestFailoverCache(t, remote)
		c.Get(ctx, "k")
		require.False(t, c.RemoteAvailable())

		require.NoError(t, c.ResetRemote(ctx))
		assert.True(t, c.RemoteAvailable())
	})

	t.Run("reset while available is a no-op", func(t *testing.T) {
		c := newTestFailoverCache(t, testutil.NewFakeRemote())
		require.NoError(t, c.ResetRemote(ctx))
		assert.True(t, c.RemoteAvailable())
		assert.Equal(t, int64(0), c.Stats().Failovers)
	})
}

func TestFailoverCache_ConcurrentFailoverLogsOnce(t *testing.T) {
	var buf syncBuffer
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.WarnLevel, Output: &buf})
	require.NoError(t, err)

	remote := testutil.NewFakeRemote()
	remote.SetError("Get", testutil.ErrRemoteDown)
	c, err := New(Config{Capacity: 100, DefaultTTL: time.Minute}, remote, logger)
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get(ctx, "k")
		}()
	}
	wg.Wait()

	assert.False(t, c.RemoteAvailable())
	assert.Equal(t, int64(1), c.Stats().Failovers)
	assert.Equal(t, 1, strings.Count(buf.String(), "switching to local-only mode"))
}

// syncBuffer guards a bytes.Buffer for concurrent log writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
