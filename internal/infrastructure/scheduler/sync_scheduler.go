package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// JobFunc is the body of a scheduled job. run carries the run id for logging.
type JobFunc func(ctx context.Context, run *SyncRun) error

// JobDefinition registers a job that runs every Interval
type JobDefinition struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// RunObserver receives run outcomes, e.g. for metrics
type RunObserver interface {
	ObserveRun(job string, status RunStatus, duration time.Duration)
	ObserveSkippedTick(job string)
}

// JobState is a snapshot of a registered job
type JobState struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Running  bool          `json:"running"`
	LastRun  *SyncRun      `json:"last_run,omitempty"`
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// JobTimeout is the maximum time a run can take
	JobTimeout time.Duration
	// RunOnStart fires every job once when the scheduler starts
	RunOnStart bool
	// MaxHistory is how many finished runs are kept for monitoring
	MaxHistory int
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		JobTimeout: 2 * time.Hour,
		MaxHistory: 100,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("%w: max history cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

type registeredJob struct {
	def     JobDefinition
	running atomic.Bool
	lastRun *SyncRun // guarded by SyncScheduler.mu
}

// SyncScheduler runs interval jobs with at most one run per job at a time.
// A tick or manual trigger that arrives while the job is running is dropped.
type SyncScheduler struct {
	config   SyncSchedulerConfig
	logger   *zap.Logger
	observer RunObserver

	mu        sync.Mutex
	jobs      map[string]*registeredJob
	order     []string
	baseCtx   context.Context
	cancel    context.CancelFunc
	isRunning bool
	stopped   bool

	loops sync.WaitGroup
	runs  sync.WaitGroup

	historyMu sync.RWMutex
	history   []SyncRun
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config:  config,
		logger:  logger.Named("scheduler"),
		jobs:    make(map[string]*registeredJob),
		baseCtx: context.Background(),
	}, nil
}

// SetObserver attaches a run observer
func (s *SyncScheduler) SetObserver(o RunObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Register adds a job. Jobs must be registered before Start.
func (s *SyncScheduler) Register(def JobDefinition) error {
	if def.Name == "" || def.Run == nil || def.Interval <= 0 {
		return fmt.Errorf("%w: job %q needs a name, a body and a positive interval", ErrInvalidConfig, def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, def.Name)
	}
	s.jobs[def.Name] = &registeredJob{def: def}
	s.order = append(s.order, def.Name)
	return nil
}

// Start starts one ticker loop per job
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	jobs := make([]*registeredJob, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}
	s.mu.Unlock()

	for _, job := range jobs {
		s.loops.Add(1)
		go s.loop(job)
		s.logger.Info("Scheduled job",
			zap.String("job", job.def.Name),
			zap.Duration("interval", job.def.Interval),
		)
	}

	if s.config.RunOnStart {
		for _, job := range jobs {
			if _, err := s.launch(job, TriggerStartup); err != nil {
				s.logger.Warn("Startup run not launched", zap.String("job", job.def.Name), zap.Error(err))
			}
		}
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("jobs", len(jobs)),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop cancels running jobs and waits for them to return
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger starts a run of job in the background. It returns a snapshot of the
// pending run, or ErrJobAlreadyRunning when the job is busy.
func (s *SyncScheduler) Trigger(job string) (SyncRun, error) {
	rj, err := s.lookup(job)
	if err != nil {
		return SyncRun{}, err
	}
	return s.launch(rj, TriggerManual)
}

// RunNow runs job synchronously on ctx through the same single-run gate
func (s *SyncScheduler) RunNow(ctx context.Context, job string) (SyncRun, error) {
	rj, err := s.lookup(job)
	if err != nil {
		return SyncRun{}, err
	}
	if !rj.running.CompareAndSwap(false, true) {
		return SyncRun{}, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, job)
	}
	run := NewSyncRun(job, TriggerManual)
	err = s.execute(ctx, rj, run)
	return *run, err
}

// IsRunning reports whether job currently has a run in progress
func (s *SyncScheduler) IsRunning(job string) bool {
	rj, err := s.lookup(job)
	if err != nil {
		return false
	}
	return rj.running.Load()
}

// Jobs returns a snapshot of every registered job in registration order
func (s *SyncScheduler) Jobs() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobState, 0, len(s.order))
	for _, name := range s.order {
		rj := s.jobs[name]
		state := JobState{Name: name, Interval: rj.def.Interval, Running: rj.running.Load()}
		if rj.lastRun != nil {
			last := *rj.lastRun
			state.LastRun = &last
		}
		out = append(out, state)
	}
	return out
}

// GetJobHistory returns the most recent finished runs, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []SyncRun {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]SyncRun, limit)
	copy(out, s.history[:limit])
	return out
}

func (s *SyncScheduler) lookup(job string) (*registeredJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.jobs[job]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, job)
	}
	return rj, nil
}

func (s *SyncScheduler) loop(rj *registeredJob) {
	defer s.loops.Done()

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	ticker := time.NewTicker(rj.def.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.launch(rj, TriggerScheduled); errors.Is(err, ErrJobAlreadyRunning) {
				s.logger.Warn("Skipping tick, previous run still in progress", zap.String("job", rj.def.Name))
				if o := s.runObserver(); o != nil {
					o.ObserveSkippedTick(rj.def.Name)
				}
			}
		}
	}
}

func (s *SyncScheduler) launch(rj *registeredJob, trigger TriggerSource) (SyncRun, error) {
	if !rj.running.CompareAndSwap(false, true) {
		return SyncRun{}, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, rj.def.Name)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		rj.running.Store(false)
		return SyncRun{}, ErrSchedulerNotRunning
	}
	ctx := s.baseCtx
	s.runs.Add(1)
	s.mu.Unlock()

	run := NewSyncRun(rj.def.Name, trigger)
	snapshot := *run

	go func() {
		defer s.runs.Done()
		_ = s.execute(ctx, rj, run)
	}()
	return snapshot, nil
}

// execute performs one run; the caller must hold rj.running
func (s *SyncScheduler) execute(ctx context.Context, rj *registeredJob, run *SyncRun) error {
	defer rj.running.Store(false)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	run.Start()
	s.logger.Info("Starting job run",
		zap.String("job", run.Job),
		zap.String("run_id", run.ID.String()),
		zap.String("trigger", string(run.Trigger)),
	)

	err := s.safeRun(jobCtx, rj.def.Run, run)
	if err != nil {
		run.Fail(err.Error())
		s.logger.Error("Job run failed",
			zap.String("job", run.Job),
			zap.String("run_id", run.ID.String()),
			zap.Duration("duration", run.Duration()),
			zap.Error(err),
		)
	} else {
		run.Complete()
		s.logger.Info("Job run completed",
			zap.String("job", run.Job),
			zap.String("run_id", run.ID.String()),
			zap.Duration("duration", run.Duration()),
		)
	}

	s.record(rj, run)
	if o := s.runObserver(); o != nil {
		o.ObserveRun(run.Job, run.Status, run.Duration())
	}
	return err
}

func (s *SyncScheduler) safeRun(ctx context.Context, fn JobFunc, run *SyncRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked",
				zap.String("job", run.Job),
				zap.String("run_id", run.ID.String()),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return fn(ctx, run)
}

func (s *SyncScheduler) record(rj *registeredJob, run *SyncRun) {
	finished := *run

	s.mu.Lock()
	rj.lastRun = &finished
	s.mu.Unlock()

	if s.config.MaxHistory == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append([]SyncRun{finished}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}

func (s *SyncScheduler) runObserver() RunObserver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer
}
