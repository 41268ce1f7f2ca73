package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a job run
type RunStatus string

const (
	RunStatusPending RunStatus = "PENDING"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// TriggerSource records why a run started
type TriggerSource string

const (
	TriggerScheduled TriggerSource = "scheduled"
	TriggerManual    TriggerSource = "manual"
	TriggerStartup   TriggerSource = "startup"
)

// SyncRun is one execution of a registered job
type SyncRun struct {
	ID          uuid.UUID     `json:"id"`
	Job         string        `json:"job"`
	Trigger     TriggerSource `json:"trigger"`
	Status      RunStatus     `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// NewSyncRun creates a pending run
func NewSyncRun(job string, trigger TriggerSource) *SyncRun {
	return &SyncRun{
		ID:      uuid.New(),
		Job:     job,
		Trigger: trigger,
		Status:  RunStatusPending,
	}
}

// Start marks the run as running
func (r *SyncRun) Start() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
	r.Error = ""
}

// Complete marks the run as successful
func (r *SyncRun) Complete() {
	now := time.Now()
	r.Status = RunStatusSuccess
	r.CompletedAt = &now
}

// Fail marks the run as failed
func (r *SyncRun) Fail(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.CompletedAt = &now
	r.Error = err
}

// Duration returns how long the run took, or has been running
func (r *SyncRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	if r.CompletedAt == nil {
		return time.Since(*r.StartedAt)
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}
