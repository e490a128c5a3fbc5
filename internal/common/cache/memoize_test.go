package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"failover-cache/internal/testutil"
)

func TestRemember_ComputesOnceThenHits(t *testing.T) {
	ctx := context.Background()
	c := newTestFailoverCache(t, testutil.NewFakeRemote())

	var calls atomic.Int32
	compute := func(ctx context.Context) (interface{}, error) {
		calls.Inc()
		return "computed", nil
	}

	for i := 0; i < 3; i++ {
		value, err := c.Remember(ctx, "k", time.Minute, compute)
		require.NoError(t, err)
		assert.Equal(t, "computed", value)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemember_ErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := newTestFailoverCache(t, nil)

	_, err := c.Remember(ctx, "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, testutil.ErrTestFailure
	})
	assert.ErrorIs(t, err, testutil.ErrTestFailure)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)

	value, err := c.Remember(ctx, "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, value)
}

func TestRemember_ConcurrentMissesShareCompute(t *testing.T) {
	ctx := context.Background()
	c := newTestFailoverCache(t, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (interface{}, error) {
		calls.Inc()
		<-release
		return "shared", nil
	}

	const callers = 16
	var started, done sync.WaitGroup
	results := make([]interface{}, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			value, err := c.Remember(ctx, "k", time.Minute, compute)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	started.Wait()
	// Let the callers reach the in-flight compute before releasing it
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	done.Wait()

	for _, value := range results {
		assert.Equal(t, "shared", value)
	}
	assert.Less(t, calls.Load(), int32(callers))
}

type requestKey struct{}

func TestRemember_CallerCancellationDoesNotFailCompute(t *testing.T) {
	remote := testutil.NewFakeRemote()
	c := newTestFailoverCache(t, remote)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), requestKey{}, "req-1"))
	defer cancel()

	value, err := c.Remember(ctx, "k", time.Minute, func(computeCtx context.Context) (interface{}, error) {
		cancel()
		if err := computeCtx.Err(); err != nil {
			return nil, err
		}
		return computeCtx.Value(requestKey{}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", value)

	assert.True(t, remote.Has("k"))
	assert.True(t, c.RemoteAvailable())
}
