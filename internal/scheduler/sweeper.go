// Package scheduler runs periodic maintenance against the cache on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"failover-cache/internal/common/errors"
	"failover-cache/internal/common/logging"
	"failover-cache/internal/common/validation"
)

// SweepTarget is anything that can drop its expired entries
type SweepTarget interface {
	SweepExpired() int
}

// Sweeper calls SweepExpired on its target according to a cron spec.
// Runs never overlap: a tick that fires while a sweep is in progress is skipped.
type Sweeper struct {
	target   SweepTarget
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
	logger   logging.Logger

	mu       sync.RWMutex
	running  bool
	runCount int
	removed  int
	lastRun  time.Time
}

// SweeperStatus is a snapshot of sweep activity
type SweeperStatus struct {
	Schedule     string     `json:"schedule"`
	Running      bool       `json:"running"`
	RunCount     int        `json:"run_count"`
	TotalRemoved int        `json:"total_removed"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// NewSweeper parses schedule and prepares a stopped sweeper
func NewSweeper(target SweepTarget, schedule string, logger logging.Logger) (*Sweeper, error) {
	if target == nil {
		return nil, errors.ConfigError("sweep target is required")
	}

	cronLogger := logging.OrGlobal(logger).WithFields(logging.Field{Key: "component", Value: "sweeper"})
	c := cron.New(
		cron.WithParser(validation.CronParser),
		cron.WithChain(cron.SkipIfStillRunning(cronLogAdapter{cronLogger})),
		cron.WithLogger(cronLogAdapter{cronLogger}),
	)

	s := &Sweeper{
		target:   target,
		schedule: schedule,
		cron:     c,
		logger:   cronLogger,
	}

	id, err := c.AddFunc(schedule, s.sweep)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid sweep schedule %q: %v", schedule, err)).
			WithCode("invalid_schedule")
	}
	s.entryID = id

	return s, nil
}

// Start begins running sweeps in the background
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("Sweeper started",
		logging.String("schedule", s.schedule),
		logging.Field{Key: "next_run", Value: s.cron.Entry(s.entryID).Next.Format(time.RFC3339)},
	)
}

// Stop halts scheduling and waits for an in-flight sweep, or until ctx is done
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow performs one sweep synchronously and returns how many entries it removed
func (s *Sweeper) RunNow() int {
	return s.sweepOnce(uuid.NewString())
}

// Status reports sweep counters and the next scheduled run
func (s *Sweeper) Status() SweeperStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SweeperStatus{
		Schedule:     s.schedule,
		Running:      s.running,
		RunCount:     s.runCount,
		TotalRemoved: s.removed,
	}
	if !s.lastRun.IsZero() {
		lastRun := s.lastRun
		status.LastRun = &lastRun
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

func (s *Sweeper) sweep() {
	s.sweepOnce(uuid.NewString())
}

func (s *Sweeper) sweepOnce(runID string) int {
	started := time.Now()
	removed := s.target.SweepExpired()

	s.mu.Lock()
	s.runCount++
	s.removed += removed
	s.lastRun = started
	s.mu.Unlock()

	s.logger.Debug("Expired entries swept",
		logging.String("run_id", runID),
		logging.Int("removed", removed),
		logging.Duration("duration", time.Since(started)),
	)
	return removed
}

// cronLogAdapter routes robfig/cron's logr-style logging into our logger
type cronLogAdapter struct {
	logger logging.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, toFields(keysAndValues)...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("cron: "+msg, err, toFields(keysAndValues)...)
}

func toFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, logging.Any(key, keysAndValues[i+1]))
	}
	return fields
}
