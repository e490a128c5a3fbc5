package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"failover-cache/internal/common/cache"
	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
	"failover-cache/internal/testutil"
)

type countingTarget struct {
	calls   atomic.Int32
	removed int
}

func (c *countingTarget) SweepExpired() int {
	c.calls.Add(1)
	return c.removed
}

func TestNewSweeper_InvalidSchedule(t *testing.T) {
	for _, schedule := range []string{"", "every minute", "* * *"} {
		t.Run(schedule, func(t *testing.T) {
			s, err := NewSweeper(&countingTarget{}, schedule, logging.NewNopLogger())
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
		})
	}
}

func TestNewSweeper_NilTarget(t *testing.T) {
	_, err := NewSweeper(nil, "@every 1m", nil)
	assert.Error(t, err)
}

func TestSweeper_RunNow(t *testing.T) {
	clock := testutil.NewFakeClock()
	store, err := cache.New(cache.Config{Capacity: 10, DefaultTTL: time.Minute, Clock: clock.Now}, nil, logging.NewNopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	store.SetWithTTL(ctx, "a", 1, time.Second)
	store.SetWithTTL(ctx, "b", 2, time.Second)
	store.SetWithTTL(ctx, "c", 3, time.Hour)
	clock.Advance(time.Minute)

	s, err := NewSweeper(store, "@every 1m", logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, s.RunNow())
	assert.Equal(t, 0, s.RunNow())

	status := s.Status()
	assert.Equal(t, 2, status.RunCount)
	assert.Equal(t, 2, status.TotalRemoved)
	assert.NotNil(t, status.LastRun)
	assert.False(t, status.Running)
	assert.Nil(t, status.NextRun)
	assert.Equal(t, 1, store.Stats().Size)
}

func TestSweeper_StartStop(t *testing.T) {
	target := &countingTarget{removed: 1}
	s, err := NewSweeper(target, "@every 1s", logging.NewNopLogger())
	require.NoError(t, err)

	s.Start()
	s.Start()

	status := s.Status()
	assert.True(t, status.Running)
	require.NotNil(t, status.NextRun)

	require.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx), "stopping twice is a no-op")

	calls := target.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, calls, target.calls.Load(), "no sweeps after stop")
	assert.False(t, s.Status().Running)
	assert.GreaterOrEqual(t, s.Status().TotalRemoved, 1)
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"entry", 1, "next", "soon", "dangling"})
	require.Len(t, fields, 2)
	assert.Equal(t, "entry", fields[0].Key)
	assert.Equal(t, 1, fields[0].Value)
	assert.Equal(t, "next", fields[1].Key)
}
