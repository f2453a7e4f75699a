// Package store defines the aggregate persistence interface. Each subsystem
// (version, layout, pipeline, cron) defines its own store interface; the
// composite Store composes them all. Backends: Postgres (pgx), Bun, Redis
// (layout cache), and Memory.
package store

import (
	"context"

	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, memory) implements all of the subsystem
// contracts; lighter backends (bun, redis) cover a subset and compose.
type Store interface {
	version.Store
	layout.CandidateStore
	pipeline.SpecStore
	pipeline.RowStore
	cron.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
