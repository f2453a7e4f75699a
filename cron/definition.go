package cron

import "github.com/prabhatkmr/beema-sub003/value"

// Definition declares a cron entry in code. Engines register it at
// startup; the store copy keeps runtime state (NextRunAt, Enabled).
type Definition struct {
	// Name is the unique identifier for this cron entry.
	Name string

	// Schedule is a cron expression (e.g., "0 2 * * *" or "@every 30m").
	Schedule string

	// JobName is the job spec to trigger on each due tick.
	JobName string

	// TenantID is the tenant the triggered runs execute under.
	TenantID string

	// Params are static parameters merged into every triggered run.
	Params value.Object
}
