package bunstore

import (
	"context"
	"fmt"
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/id"
)

// RegisterCron persists a new cron entry. Returns beema.ErrCronExists if
// the name already exists.
func (s *Store) RegisterCron(ctx context.Context, entry *cron.Entry) error {
	m, err := toCronModel(entry)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return beema.ErrCronExists
		}
		return fmt.Errorf("beema/bun: register cron: %w", err)
	}
	return nil
}

// GetCron retrieves a cron entry by ID.
func (s *Store) GetCron(ctx context.Context, entryID id.CronID) (*cron.Entry, error) {
	m := new(cronEntryModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", entryID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, beema.ErrCronNotFound
		}
		return nil, fmt.Errorf("beema/bun: get cron: %w", err)
	}
	return fromCronModel(m)
}

// ListCrons returns all cron entries.
func (s *Store) ListCrons(ctx context.Context) ([]*cron.Entry, error) {
	var models []cronEntryModel
	err := s.db.NewSelect().Model(&models).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: list crons: %w", err)
	}

	entries := make([]*cron.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromCronModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateCronLastRun records when a cron entry last fired.
func (s *Store) UpdateCronLastRun(ctx context.Context, entryID id.CronID, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*cronEntryModel)(nil)).
		Set("last_run_at = ?", at).
		Set("updated_at = NOW()").
		Where("id = ?", entryID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("beema/bun: update cron last run: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return beema.ErrCronNotFound
	}
	return nil
}

// UpdateCronEntry updates a cron entry.
func (s *Store) UpdateCronEntry(ctx context.Context, entry *cron.Entry) error {
	m, err := toCronModel(entry)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().Model(m).
		Column("schedule", "job_name", "tenant_id", "params", "last_run_at", "next_run_at", "enabled").
		Set("updated_at = NOW()").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("beema/bun: update cron entry: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return beema.ErrCronNotFound
	}
	return nil
}

// DeleteCron removes a cron entry by ID.
func (s *Store) DeleteCron(ctx context.Context, entryID id.CronID) error {
	_, err := s.db.NewDelete().
		Model((*cronEntryModel)(nil)).
		Where("id = ?", entryID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("beema/bun: delete cron: %w", err)
	}
	return nil
}
