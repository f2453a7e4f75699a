package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/pipeline"
)

// GetSpec loads a job spec by name.
func (s *Store) GetSpec(ctx context.Context, name string) (*pipeline.Spec, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT name, tenant_id, read_query, transform, write_query, export,
		       chunk_size, enabled, created_at, updated_at
		FROM beema_job_specs
		WHERE name = $1`,
		name,
	)
	spec, err := scanSpec(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("beema/postgres: get spec %s: %w", name, beema.ErrJobNotFound)
		}
		return nil, fmt.Errorf("beema/postgres: get spec %s: %w", name, err)
	}
	return spec, nil
}

// PutSpec creates or replaces a job spec by name.
func (s *Store) PutSpec(ctx context.Context, spec *pipeline.Spec) error {
	var export []byte
	if spec.Export != nil {
		var err error
		export, err = json.Marshal(spec.Export)
		if err != nil {
			return fmt.Errorf("beema/postgres: encode export spec: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO beema_job_specs (
			name, tenant_id, read_query, transform, write_query, export,
			chunk_size, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			read_query = EXCLUDED.read_query,
			transform = EXCLUDED.transform,
			write_query = EXCLUDED.write_query,
			export = EXCLUDED.export,
			chunk_size = EXCLUDED.chunk_size,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()`,
		spec.Name, spec.TenantID, spec.ReadQuery, spec.Transform,
		spec.WriteQuery, export, spec.ChunkSize, spec.Enabled,
		spec.CreatedAt, spec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("beema/postgres: put spec %s: %w", spec.Name, err)
	}
	return nil
}

// ListSpecs returns every job spec ordered by name.
func (s *Store) ListSpecs(ctx context.Context) ([]*pipeline.Spec, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, tenant_id, read_query, transform, write_query, export,
		       chunk_size, enabled, created_at, updated_at
		FROM beema_job_specs
		ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: list specs: %w", err)
	}
	defer rows.Close()

	var out []*pipeline.Spec
	for rows.Next() {
		spec, scanErr := scanSpec(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("beema/postgres: scan spec: %w", scanErr)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("beema/postgres: iterate specs: %w", err)
	}
	return out, nil
}

func scanSpec(row pgx.Row) (*pipeline.Spec, error) {
	var (
		export []byte
		spec   pipeline.Spec
	)
	err := row.Scan(
		&spec.Name, &spec.TenantID, &spec.ReadQuery, &spec.Transform,
		&spec.WriteQuery, &export, &spec.ChunkSize, &spec.Enabled,
		&spec.CreatedAt, &spec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(export) > 0 {
		var es pipeline.ExportSpec
		if err := json.Unmarshal(export, &es); err != nil {
			return nil, fmt.Errorf("decode export spec: %w", err)
		}
		spec.Export = &es
	}
	return &spec, nil
}
