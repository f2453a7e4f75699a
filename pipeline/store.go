package pipeline

import (
	"context"

	"github.com/prabhatkmr/beema-sub003/value"
)

// Row is one record flowing through the pipeline.
type Row = value.Object

// RowReader streams rows from a read query. Next returns io.EOF after the
// last row. Readers hold database resources and must be closed.
type RowReader interface {
	Next(ctx context.Context) (Row, error)
	Close() error
}

// SpecStore defines the persistence contract for job specs.
type SpecStore interface {
	// GetSpec returns the spec by job name, or beema.ErrJobNotFound.
	GetSpec(ctx context.Context, name string) (*Spec, error)

	// PutSpec creates or replaces a spec by name.
	PutSpec(ctx context.Context, spec *Spec) error

	// ListSpecs returns every stored spec ordered by name.
	ListSpecs(ctx context.Context) ([]*Spec, error)
}

// RowStore executes a spec's queries against the system of record.
type RowStore interface {
	// OpenRows executes the read query with the given parameters and
	// returns a streaming reader scoped to the spec's tenant.
	OpenRows(ctx context.Context, spec *Spec, params Params) (RowReader, error)

	// WriteChunk executes the write query for every row inside one
	// transaction. Either every row lands or none does.
	WriteChunk(ctx context.Context, spec *Spec, rows []Row) error
}
