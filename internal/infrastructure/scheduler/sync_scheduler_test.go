package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type countingObserver struct {
	mu      sync.Mutex
	runs    map[RunStatus]int
	skipped int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{runs: make(map[RunStatus]int)}
}

func (o *countingObserver) ObserveRun(_ string, status RunStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs[status]++
}

func (o *countingObserver) ObserveSkippedTick(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped++
}

func (o *countingObserver) Skipped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.skipped
}

func (o *countingObserver) Runs(status RunStatus) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs[status]
}

func newTestScheduler(t *testing.T, cfg SyncSchedulerConfig) *SyncScheduler {
	t.Helper()
	s, err := NewSyncScheduler(cfg, zap.NewNop())
	require.NoError(t, err)
	return s
}

func stopScheduler(t *testing.T, s *SyncScheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

// ---------------------------------------------------------------------------
// SyncRun Tests
// ---------------------------------------------------------------------------

func TestSyncRun_Lifecycle(t *testing.T) {
	run := NewSyncRun("stock", TriggerManual)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Zero(t, run.Duration())

	run.Error = "previous"
	run.Start()
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NotNil(t, run.StartedAt)
	assert.Empty(t, run.Error)

	run.Complete()
	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.GreaterOrEqual(t, run.Duration(), time.Duration(0))

	failed := NewSyncRun("catalog", TriggerScheduled)
	failed.Start()
	failed.Fail("boom")
	assert.Equal(t, RunStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
}

// ---------------------------------------------------------------------------
// Config and registration
// ---------------------------------------------------------------------------

func TestSyncSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.JobTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultSyncSchedulerConfig()
	cfg.MaxHistory = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestSyncScheduler_Register(t *testing.T) {
	s := newTestScheduler(t, DefaultSyncSchedulerConfig())
	noop := func(context.Context, *SyncRun) error { return nil }

	require.NoError(t, s.Register(JobDefinition{Name: "stock", Interval: time.Minute, Run: noop}))
	assert.ErrorIs(t, s.Register(JobDefinition{Name: "stock", Interval: time.Minute, Run: noop}), ErrDuplicateJob)
	assert.ErrorIs(t, s.Register(JobDefinition{Name: "", Interval: time.Minute, Run: noop}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Register(JobDefinition{Name: "x", Interval: 0, Run: noop}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Register(JobDefinition{Name: "y", Interval: time.Minute}), ErrInvalidConfig)

	_, err := s.Trigger("unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.False(t, s.IsRunning("unknown"))
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func TestSyncScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(t, DefaultSyncSchedulerConfig())
	var seenRunID uuid.UUID
	require.NoError(t, s.Register(JobDefinition{
		Name:     "catalog",
		Interval: time.Hour,
		Run: func(ctx context.Context, run *SyncRun) error {
			seenRunID = run.ID
			return nil
		},
	}))

	run, err := s.RunNow(context.Background(), "catalog")
	require.NoError(t, err)
	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.Equal(t, seenRunID, run.ID)
	assert.False(t, s.IsRunning("catalog"))

	history := s.GetJobHistory(10)
	require.Len(t, history, 1)
	assert.Equal(t, run.ID, history[0].ID)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].LastRun)
	assert.Equal(t, RunStatusSuccess, jobs[0].LastRun.Status)
}

func TestSyncScheduler_FailureAndPanicAreContained(t *testing.T) {
	s := newTestScheduler(t, DefaultSyncSchedulerConfig())
	obs := newCountingObserver()
	s.SetObserver(obs)

	require.NoError(t, s.Register(JobDefinition{
		Name: "fails", Interval: time.Hour,
		Run: func(context.Context, *SyncRun) error { return errors.New("remote down") },
	}))
	require.NoError(t, s.Register(JobDefinition{
		Name: "panics", Interval: time.Hour,
		Run: func(context.Context, *SyncRun) error { panic("nil map") },
	}))

	run, err := s.RunNow(context.Background(), "fails")
	require.Error(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "remote down", run.Error)

	run, err = s.RunNow(context.Background(), "panics")
	assert.ErrorIs(t, err, ErrJobPanicked)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.False(t, s.IsRunning("panics"), "gate is released after a panic")

	assert.Equal(t, 2, obs.Runs(RunStatusFailed))
}

func TestSyncScheduler_JobTimeout(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	cfg.JobTimeout = 20 * time.Millisecond
	s := newTestScheduler(t, cfg)

	require.NoError(t, s.Register(JobDefinition{
		Name: "slow", Interval: time.Hour,
		Run: func(ctx context.Context, _ *SyncRun) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	run, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, RunStatusFailed, run.Status)
}

func TestSyncScheduler_ManualTriggerWhileRunning(t *testing.T) {
	s := newTestScheduler(t, DefaultSyncSchedulerConfig())
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, s.Register(JobDefinition{
		Name: "stock", Interval: time.Hour,
		Run: func(ctx context.Context, _ *SyncRun) error {
			close(started)
			<-release
			return nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	defer stopScheduler(t, s)

	first, err := s.Trigger("stock")
	require.NoError(t, err)
	assert.Equal(t, RunStatusPending, first.Status)
	assert.Equal(t, TriggerManual, first.Trigger)

	<-started
	assert.True(t, s.IsRunning("stock"))

	_, err = s.Trigger("stock")
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	_, err = s.RunNow(context.Background(), "stock")
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)

	close(release)
	assert.Eventually(t, func() bool { return !s.IsRunning("stock") }, time.Second, 5*time.Millisecond)

	history := s.GetJobHistory(0)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)
}

func TestSyncScheduler_CoalescesOverlappingTicks(t *testing.T) {
	s := newTestScheduler(t, DefaultSyncSchedulerConfig())
	obs := newCountingObserver()
	s.SetObserver(obs)

	var runs atomic.Int32
	release := make(chan struct{})
	require.NoError(t, s.Register(JobDefinition{
		Name: "stock", Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context, _ *SyncRun) error {
			runs.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return obs.Skipped() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "ticks while running are dropped, not queued")

	close(release)
	stopScheduler(t, s)
}

func TestSyncScheduler_RunOnStart(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	cfg.RunOnStart = true
	s := newTestScheduler(t, cfg)

	var runs atomic.Int32
	for _, name := range []string{"catalog", "collections"} {
		require.NoError(t, s.Register(JobDefinition{
			Name: name, Interval: time.Hour,
			Run: func(context.Context, *SyncRun) error { runs.Add(1); return nil },
		}))
	}

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	stopScheduler(t, s)

	for _, run := range s.GetJobHistory(0) {
		assert.Equal(t, TriggerStartup, run.Trigger)
	}

	_, err := s.Trigger("catalog")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestSyncScheduler_StopWithoutStart(t *testing.T) {
	s := newTestScheduler(t, DefaultSyncSchedulerConfig())
	assert.ErrorIs(t, s.Stop(context.Background()), ErrSchedulerNotRunning)
}

func TestSyncScheduler_HistoryLimit(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	cfg.MaxHistory = 2
	s := newTestScheduler(t, cfg)
	require.NoError(t, s.Register(JobDefinition{
		Name: "stock", Interval: time.Hour,
		Run: func(context.Context, *SyncRun) error { return nil },
	}))

	var last SyncRun
	for i := 0; i < 3; i++ {
		run, err := s.RunNow(context.Background(), "stock")
		require.NoError(t, err)
		last = run
	}

	history := s.GetJobHistory(10)
	require.Len(t, history, 2)
	assert.Equal(t, last.ID, history[0].ID)
}
