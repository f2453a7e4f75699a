package pipeline

import (
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/id"
)

// Status is the terminal disposition of a run.
type Status string

const (
	// StatusRunning means the run is in progress.
	StatusRunning Status = "running"
	// StatusCompleted means every chunk committed.
	StatusCompleted Status = "completed"
	// StatusFailed means a chunk failed; prior chunks stay committed.
	StatusFailed Status = "failed"
	// StatusCancelled means cancellation was observed at a chunk boundary.
	StatusCancelled Status = "cancelled"
)

// Summary is the execution outcome returned to the trigger caller.
// On success SkipCount is always zero and WriteCount equals ReadCount:
// the pipeline never silently drops a row.
type Summary struct {
	Status     Status `json:"status"`
	ReadCount  int    `json:"read_count"`
	WriteCount int    `json:"write_count"`
	SkipCount  int    `json:"skip_count"`
}

// Run is one execution of a job spec. It flows through middleware and
// extension hooks.
type Run struct {
	beema.Entity

	ID          id.RunID   `json:"id"`
	JobName     string     `json:"job_name"`
	TenantID    string     `json:"tenant_id"`
	Status      Status     `json:"status"`
	Summary     Summary    `json:"summary"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// NewRun creates a running Run for the given spec.
func NewRun(spec *Spec) *Run {
	now := time.Now().UTC()
	return &Run{
		Entity:    beema.NewEntity(),
		ID:        id.NewRunID(),
		JobName:   spec.Name,
		TenantID:  spec.TenantID,
		Status:    StatusRunning,
		StartedAt: now,
	}
}

// Finish stamps the terminal state onto the run. A run finishes once;
// later calls are no-ops.
func (r *Run) Finish(summary Summary, err error) {
	if r.CompletedAt != nil {
		return
	}
	now := time.Now().UTC()
	r.Summary = summary
	r.Status = summary.Status
	r.CompletedAt = &now
	r.Touch()
	if err != nil {
		r.LastError = err.Error()
	}
}
