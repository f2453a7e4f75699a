package postgres

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

// OpenRows executes the spec's read query and returns a streaming reader.
// Parameters bind by name: a query placeholder @status takes the "status"
// parameter. The reader holds a pooled connection until Close.
func (s *Store) OpenRows(ctx context.Context, spec *pipeline.Spec, params pipeline.Params) (pipeline.RowReader, error) {
	rows, err := s.pool.Query(ctx, spec.ReadQuery, namedArgs(params))
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: open rows for %s: %w", spec.Name, err)
	}
	return &pgxRowReader{rows: rows}, nil
}

// WriteChunk executes the spec's write statement for every row inside
// one transaction. Either every row lands or none does.
func (s *Store) WriteChunk(ctx context.Context, spec *pipeline.Spec, rows []pipeline.Row) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beema/postgres: begin write chunk: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(spec.WriteQuery, rowArgs(row))
	}

	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return fmt.Errorf("beema/postgres: write chunk for %s: %w", spec.Name, execErr)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("beema/postgres: close batch for %s: %w", spec.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("beema/postgres: commit write chunk for %s: %w", spec.Name, err)
	}
	return nil
}

func namedArgs(params pipeline.Params) pgx.NamedArgs {
	args := make(pgx.NamedArgs, len(params))
	for name, p := range params {
		args[name] = p.Interface()
	}
	return args
}

func rowArgs(row pipeline.Row) pgx.NamedArgs {
	args := make(pgx.NamedArgs, len(row))
	for name, v := range row {
		args[name] = v.Interface()
	}
	return args
}

// pgxRowReader adapts pgx.Rows to pipeline.RowReader.
type pgxRowReader struct {
	rows pgx.Rows
}

func (r *pgxRowReader) Next(_ context.Context) (pipeline.Row, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("beema/postgres: iterate rows: %w", err)
		}
		return nil, io.EOF
	}

	values, err := r.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: read row values: %w", err)
	}

	fields := r.rows.FieldDescriptions()
	row := make(pipeline.Row, len(fields))
	for i, field := range fields {
		v, convErr := columnValue(values[i])
		if convErr != nil {
			return nil, fmt.Errorf("beema/postgres: column %s: %w", field.Name, convErr)
		}
		row[field.Name] = v
	}
	return row, nil
}

// columnValue narrows pgx driver types to the shapes value.FromInterface
// accepts before converting.
func columnValue(raw any) (value.Value, error) {
	switch t := raw.(type) {
	case time.Time:
		return value.String(t.UTC().Format(time.RFC3339Nano)), nil
	case int16:
		return value.Int(int64(t)), nil
	case int32:
		return value.Int(int64(t)), nil
	case float32:
		return value.Number(float64(t)), nil
	case []byte:
		return value.String(string(t)), nil
	default:
		return value.FromInterface(raw)
	}
}

func (r *pgxRowReader) Close() error {
	r.rows.Close()
	return nil
}
