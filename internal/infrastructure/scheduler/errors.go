package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when stopping a scheduler that was never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobNotFound is returned when a job name is not registered
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRunning is returned when a trigger arrives while the job is running
	ErrJobAlreadyRunning = errors.New("job already running")

	// ErrDuplicateJob is returned when registering a job name twice
	ErrDuplicateJob = errors.New("job already registered")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// ErrJobPanicked wraps a panic recovered from a job
var ErrJobPanicked = errors.New("job panicked")
