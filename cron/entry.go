package cron

import (
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Entry represents a scheduled job trigger.
type Entry struct {
	beema.Entity

	ID        id.CronID    `json:"id"`
	Name      string       `json:"name"`
	Schedule  string       `json:"schedule"`
	JobName   string       `json:"job_name"`
	TenantID  string       `json:"tenant_id"`
	Params    value.Object `json:"params,omitempty"`
	LastRunAt *time.Time   `json:"last_run_at,omitempty"`
	NextRunAt *time.Time   `json:"next_run_at,omitempty"`
	Enabled   bool         `json:"enabled"`
}

// Due reports whether the entry should fire at now.
func (e *Entry) Due(now time.Time) bool {
	return e.Enabled && e.NextRunAt != nil && !e.NextRunAt.After(now)
}
