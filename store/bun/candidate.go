package bunstore

import (
	"context"
	"fmt"

	"github.com/prabhatkmr/beema-sub003/layout"
)

// ListCandidates returns every candidate (enabled or not) for the exact
// (context, objectType, marketContext) triple.
func (s *Store) ListCandidates(ctx context.Context, layoutContext, objectType, marketContext string) ([]*layout.Candidate, error) {
	var models []candidateModel
	err := s.db.NewSelect().Model(&models).
		Where("context = ?", layoutContext).
		Where("object_type = ?", objectType).
		Where("market_context = ?", marketContext).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: list candidates: %w", err)
	}

	candidates := make([]*layout.Candidate, 0, len(models))
	for i := range models {
		c, convErr := fromCandidateModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// PutCandidate creates or replaces a candidate by ID.
func (s *Store) PutCandidate(ctx context.Context, c *layout.Candidate) error {
	m, err := toCandidateModel(c)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("context = EXCLUDED.context").
		Set("object_type = EXCLUDED.object_type").
		Set("market_context = EXCLUDED.market_context").
		Set("tenant_id = EXCLUDED.tenant_id").
		Set("role = EXCLUDED.role").
		Set("schema = EXCLUDED.schema").
		Set("priority = EXCLUDED.priority").
		Set("version = EXCLUDED.version").
		Set("enabled = EXCLUDED.enabled").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("beema/bun: put candidate: %w", err)
	}
	return nil
}
