// Package beema provides the temporal core shared by every business entity
// in the platform: a bitemporal versioning and query engine, a deterministic
// layout resolver, and a configuration-driven chunked batch pipeline.
//
// beema is designed as a library, not a service. Import it, configure a
// store, register transforms, and call operations directly.
//
// # Quick Start
//
//	p, err := beema.New(
//	    beema.WithStore(pgStore),
//	    beema.WithConflictRetries(5),
//	)
//
// # Architecture
//
// beema follows a composable store pattern where each subsystem (version,
// layout, pipeline, cron) defines its own store interface. A single backend
// implements the system of record; partial backends (bun, redis) cover the
// configuration and cache surfaces.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package beema
