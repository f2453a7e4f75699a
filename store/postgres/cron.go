package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/value"
)

const cronColumns = `id, name, schedule, job_name, tenant_id, params,
	last_run_at, next_run_at, enabled, created_at, updated_at`

// RegisterCron persists a new cron entry. Returns beema.ErrCronExists if
// the name already exists.
func (s *Store) RegisterCron(ctx context.Context, entry *cron.Entry) error {
	var params []byte
	if len(entry.Params) > 0 {
		var err error
		params, err = json.Marshal(entry.Params)
		if err != nil {
			return fmt.Errorf("beema/postgres: encode cron params: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO beema_cron_entries (
			id, name, schedule, job_name, tenant_id, params,
			last_run_at, next_run_at, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID.String(), entry.Name, entry.Schedule, entry.JobName,
		entry.TenantID, params, entry.LastRunAt, entry.NextRunAt,
		entry.Enabled, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return beema.ErrCronExists
		}
		return fmt.Errorf("beema/postgres: register cron: %w", err)
	}
	return nil
}

// GetCron retrieves a cron entry by ID.
func (s *Store) GetCron(ctx context.Context, entryID id.CronID) (*cron.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+cronColumns+` FROM beema_cron_entries WHERE id = $1`,
		entryID.String(),
	)
	entry, err := scanCronEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, beema.ErrCronNotFound
		}
		return nil, fmt.Errorf("beema/postgres: get cron: %w", err)
	}
	return entry, nil
}

// ListCrons returns all cron entries ordered by name.
func (s *Store) ListCrons(ctx context.Context) ([]*cron.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+cronColumns+` FROM beema_cron_entries ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: list crons: %w", err)
	}
	defer rows.Close()

	var entries []*cron.Entry
	for rows.Next() {
		entry, scanErr := scanCronEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("beema/postgres: scan cron: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("beema/postgres: iterate crons: %w", err)
	}
	return entries, nil
}

// UpdateCronLastRun records when a cron entry last fired.
func (s *Store) UpdateCronLastRun(ctx context.Context, entryID id.CronID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE beema_cron_entries
		SET last_run_at = $2, updated_at = NOW()
		WHERE id = $1`,
		entryID.String(), at,
	)
	if err != nil {
		return fmt.Errorf("beema/postgres: update cron last run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return beema.ErrCronNotFound
	}
	return nil
}

// UpdateCronEntry updates a cron entry.
func (s *Store) UpdateCronEntry(ctx context.Context, entry *cron.Entry) error {
	var params []byte
	if len(entry.Params) > 0 {
		var err error
		params, err = json.Marshal(entry.Params)
		if err != nil {
			return fmt.Errorf("beema/postgres: encode cron params: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE beema_cron_entries
		SET schedule = $2, job_name = $3, tenant_id = $4, params = $5,
		    last_run_at = $6, next_run_at = $7, enabled = $8, updated_at = NOW()
		WHERE id = $1`,
		entry.ID.String(), entry.Schedule, entry.JobName, entry.TenantID,
		params, entry.LastRunAt, entry.NextRunAt, entry.Enabled,
	)
	if err != nil {
		return fmt.Errorf("beema/postgres: update cron entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return beema.ErrCronNotFound
	}
	return nil
}

// DeleteCron removes a cron entry by ID.
func (s *Store) DeleteCron(ctx context.Context, entryID id.CronID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM beema_cron_entries WHERE id = $1`,
		entryID.String(),
	)
	if err != nil {
		return fmt.Errorf("beema/postgres: delete cron: %w", err)
	}
	return nil
}

func scanCronEntry(row pgx.Row) (*cron.Entry, error) {
	var (
		rawID  string
		params []byte
		e      cron.Entry
	)
	err := row.Scan(
		&rawID, &e.Name, &e.Schedule, &e.JobName, &e.TenantID, &params,
		&e.LastRunAt, &e.NextRunAt, &e.Enabled, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.ID, err = id.ParseCronID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse cron id %q: %w", rawID, err)
	}
	if len(params) > 0 {
		e.Params, err = value.ParseObject(params)
		if err != nil {
			return nil, fmt.Errorf("decode cron params: %w", err)
		}
	}
	return &e, nil
}
