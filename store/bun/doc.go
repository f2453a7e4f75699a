// Package bunstore implements the configuration stores (layout
// candidates, job specs, cron entries) on the Bun ORM with the
// PostgreSQL dialect.
//
// The high-volume temporal tables intentionally live elsewhere: the
// pgx-based postgres backend owns version rows and pipeline row access,
// where explicit transactions and streaming matter. This store covers
// the low-write config tables where the ORM's model mapping earns its
// keep.
//
// Usage:
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	s := bunstore.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package bunstore
