package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/value"
	"github.com/prabhatkmr/beema-sub003/version"
)

const versionColumns = `
	id, tenant_id, entity_id, entity_type, status, payload,
	valid_from, valid_to, transaction_time, current, created_at, updated_at`

// InsertFirst persists the first version of an entity.
func (s *Store) InsertFirst(ctx context.Context, rec *version.Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("beema/postgres: encode payload: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO beema_versions (
			id, tenant_id, entity_id, entity_type, status, payload,
			valid_from, valid_to, transaction_time, current, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, TRUE, $9, $10)`,
		rec.ID.String(), rec.TenantID, rec.EntityID, rec.EntityType,
		rec.Status, payload, rec.ValidFrom, rec.TransactionTime,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		// The partial unique index rejects a second current row per key.
		if isDuplicateKey(err) {
			return beema.ErrVersionExists
		}
		return fmt.Errorf("beema/postgres: insert first version: %w", err)
	}

	rec.Current = true
	rec.ValidTo = nil
	return nil
}

// Supersede atomically closes the current row and inserts next as the
// new current row. The current row is locked FOR UPDATE for the duration
// of the transaction, so racing supersedes on the same key serialize.
// Repeatable read isolation makes a lost lock wait raise SQLSTATE 40001
// instead of silently re-evaluating against the winner's updated row, so
// every loser gets the retryable beema.ErrVersionConflict rather than a
// spurious not-found.
func (s *Store) Supersede(ctx context.Context, next *version.Record) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("beema/postgres: begin supersede: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var (
		currentID string
		validFrom time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, valid_from FROM beema_versions
		WHERE tenant_id = $1 AND entity_id = $2 AND current
		FOR UPDATE`,
		next.TenantID, next.EntityID,
	).Scan(&currentID, &validFrom)
	if err != nil {
		if isNoRows(err) {
			return beema.ErrVersionNotFound
		}
		if isSerialization(err) {
			return beema.ErrVersionConflict
		}
		return fmt.Errorf("beema/postgres: lock current version: %w", err)
	}

	// Valid time never goes backwards.
	if next.ValidFrom.Before(validFrom) {
		next.ValidFrom = validFrom
	}

	_, err = tx.Exec(ctx, `
		UPDATE beema_versions
		SET valid_to = $1, current = FALSE, updated_at = NOW()
		WHERE id = $2`,
		next.ValidFrom, currentID,
	)
	if err != nil {
		return fmt.Errorf("beema/postgres: close current version: %w", err)
	}

	payload, err := json.Marshal(next.Payload)
	if err != nil {
		return fmt.Errorf("beema/postgres: encode payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO beema_versions (
			id, tenant_id, entity_id, entity_type, status, payload,
			valid_from, valid_to, transaction_time, current, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, TRUE, $9, $10)`,
		next.ID.String(), next.TenantID, next.EntityID, next.EntityType,
		next.Status, payload, next.ValidFrom, next.TransactionTime,
		next.CreatedAt, next.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) || isSerialization(err) {
			return beema.ErrVersionConflict
		}
		return fmt.Errorf("beema/postgres: insert superseding version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerialization(err) {
			return beema.ErrVersionConflict
		}
		return fmt.Errorf("beema/postgres: commit supersede: %w", err)
	}

	next.Current = true
	next.ValidTo = nil
	return nil
}

// GetCurrent returns the current row for the key.
func (s *Store) GetCurrent(ctx context.Context, tenantID, entityID string) (*version.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT`+versionColumns+`
		FROM beema_versions
		WHERE tenant_id = $1 AND entity_id = $2 AND current`,
		tenantID, entityID,
	)
	rec, err := scanVersion(row)
	if err != nil {
		if isNoRows(err) {
			return nil, beema.ErrVersionNotFound
		}
		return nil, fmt.Errorf("beema/postgres: get current version: %w", err)
	}
	return rec, nil
}

// GetAsOf reconstructs the version effective at validAt as recorded by
// knownAt.
func (s *Store) GetAsOf(ctx context.Context, tenantID, entityID string, validAt, knownAt time.Time) (*version.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT`+versionColumns+`
		FROM beema_versions
		WHERE tenant_id = $1 AND entity_id = $2
		  AND valid_from <= $3
		  AND (valid_to IS NULL OR valid_to > $3)
		  AND transaction_time <= $4
		ORDER BY transaction_time DESC
		LIMIT 1`,
		tenantID, entityID, validAt, knownAt,
	)
	rec, err := scanVersion(row)
	if err != nil {
		if isNoRows(err) {
			return nil, beema.ErrVersionNotFound
		}
		return nil, fmt.Errorf("beema/postgres: get version as of: %w", err)
	}
	return rec, nil
}

// ListHistory returns every version of the entity in the given order.
func (s *Store) ListHistory(ctx context.Context, tenantID, entityID string, order version.HistoryOrder) ([]*version.Record, error) {
	orderBy := "valid_from ASC, transaction_time ASC"
	if order == version.OrderTransactionDesc {
		orderBy = "transaction_time DESC"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT`+versionColumns+`
		FROM beema_versions
		WHERE tenant_id = $1 AND entity_id = $2
		ORDER BY `+orderBy,
		tenantID, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: list history: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

// ListCurrent returns all current rows for a tenant, ordered by EntityID.
func (s *Store) ListCurrent(ctx context.Context, tenantID string) ([]*version.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+versionColumns+`
		FROM beema_versions
		WHERE tenant_id = $1 AND current
		ORDER BY entity_id ASC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("beema/postgres: list current versions: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

func scanVersion(row pgx.Row) (*version.Record, error) {
	var (
		rawID   string
		payload []byte
		rec     version.Record
	)
	err := row.Scan(
		&rawID, &rec.TenantID, &rec.EntityID, &rec.EntityType, &rec.Status, &payload,
		&rec.ValidFrom, &rec.ValidTo, &rec.TransactionTime, &rec.Current,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ID, err = id.ParseVersionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse version id %q: %w", rawID, err)
	}
	rec.Payload, err = value.ParseObject(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &rec, nil
}

func collectVersions(rows pgx.Rows) ([]*version.Record, error) {
	var out []*version.Record
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("beema/postgres: scan version: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("beema/postgres: iterate versions: %w", err)
	}
	return out, nil
}
