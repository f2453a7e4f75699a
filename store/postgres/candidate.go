package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/value"
)

// ListCandidates returns every candidate (enabled or not) for the exact
// (context, objectType, marketContext) triple.
func (s *Store) ListCandidates(ctx context.Context, layoutContext, objectType, marketContext string) ([]*layout.Candidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, context, object_type, market_context, tenant_id, role,
		       schema, priority, version, enabled, created_at, updated_at
		FROM beema_layout_candidates
		WHERE context = $1 AND object_type = $2 AND market_context = $3
		ORDER BY name ASC`,
		layoutContext, objectType, marketContext,
	)
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: list candidates: %w", err)
	}
	defer rows.Close()

	var out []*layout.Candidate
	for rows.Next() {
		c, scanErr := scanCandidate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("beema/postgres: scan candidate: %w", scanErr)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("beema/postgres: iterate candidates: %w", err)
	}
	return out, nil
}

// PutCandidate creates or replaces a candidate by ID.
func (s *Store) PutCandidate(ctx context.Context, c *layout.Candidate) error {
	schema, err := json.Marshal(c.Schema)
	if err != nil {
		return fmt.Errorf("beema/postgres: encode candidate schema: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO beema_layout_candidates (
			id, name, context, object_type, market_context, tenant_id, role,
			schema, priority, version, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			context = EXCLUDED.context,
			object_type = EXCLUDED.object_type,
			market_context = EXCLUDED.market_context,
			tenant_id = EXCLUDED.tenant_id,
			role = EXCLUDED.role,
			schema = EXCLUDED.schema,
			priority = EXCLUDED.priority,
			version = EXCLUDED.version,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()`,
		c.ID.String(), c.Name, c.Context, c.ObjectType, c.MarketContext,
		c.TenantID, c.Role, schema, c.Priority, c.Version, c.Enabled,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("beema/postgres: put candidate: %w", err)
	}
	return nil
}

func scanCandidate(row pgx.Row) (*layout.Candidate, error) {
	var (
		rawID  string
		schema []byte
		c      layout.Candidate
	)
	err := row.Scan(
		&rawID, &c.Name, &c.Context, &c.ObjectType, &c.MarketContext,
		&c.TenantID, &c.Role, &schema, &c.Priority, &c.Version, &c.Enabled,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID, err = id.ParseLayoutID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse candidate id %q: %w", rawID, err)
	}
	c.Schema, err = value.ParseObject(schema)
	if err != nil {
		return nil, fmt.Errorf("decode candidate schema: %w", err)
	}
	return &c, nil
}
