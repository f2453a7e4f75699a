package bunstore

import (
	"context"
	"fmt"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/pipeline"
)

// GetSpec returns the spec by job name.
func (s *Store) GetSpec(ctx context.Context, name string) (*pipeline.Spec, error) {
	m := new(specModel)
	err := s.db.NewSelect().Model(m).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, beema.ErrJobNotFound
		}
		return nil, fmt.Errorf("beema/bun: get spec: %w", err)
	}
	return fromSpecModel(m)
}

// PutSpec creates or replaces a spec by name.
func (s *Store) PutSpec(ctx context.Context, spec *pipeline.Spec) error {
	m, err := toSpecModel(spec)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("tenant_id = EXCLUDED.tenant_id").
		Set("read_query = EXCLUDED.read_query").
		Set("transform = EXCLUDED.transform").
		Set("write_query = EXCLUDED.write_query").
		Set("export = EXCLUDED.export").
		Set("chunk_size = EXCLUDED.chunk_size").
		Set("enabled = EXCLUDED.enabled").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("beema/bun: put spec: %w", err)
	}
	return nil
}

// ListSpecs returns every stored spec ordered by name.
func (s *Store) ListSpecs(ctx context.Context) ([]*pipeline.Spec, error) {
	var models []specModel
	err := s.db.NewSelect().Model(&models).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: list specs: %w", err)
	}

	specs := make([]*pipeline.Spec, 0, len(models))
	for i := range models {
		spec, convErr := fromSpecModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
