package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

// ── Layout candidate model ────────────────────────────────────────

type candidateModel struct {
	bun.BaseModel `bun:"table:beema_layout_candidates"`

	ID            string    `bun:"id,pk"`
	Name          string    `bun:"name,notnull"`
	Context       string    `bun:"context,notnull"`
	ObjectType    string    `bun:"object_type,notnull"`
	MarketContext string    `bun:"market_context,notnull"`
	TenantID      string    `bun:"tenant_id"`
	Role          string    `bun:"role"`
	Schema        []byte    `bun:"schema,notnull,type:jsonb"`
	Priority      int       `bun:"priority,notnull,default:0"`
	Version       int       `bun:"version,notnull,default:0"`
	Enabled       bool      `bun:"enabled,notnull,default:true"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toCandidateModel(c *layout.Candidate) (*candidateModel, error) {
	schema, err := json.Marshal(c.Schema)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: encode candidate schema: %w", err)
	}
	return &candidateModel{
		ID:            c.ID.String(),
		Name:          c.Name,
		Context:       c.Context,
		ObjectType:    c.ObjectType,
		MarketContext: c.MarketContext,
		TenantID:      c.TenantID,
		Role:          c.Role,
		Schema:        schema,
		Priority:      c.Priority,
		Version:       c.Version,
		Enabled:       c.Enabled,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}, nil
}

func fromCandidateModel(m *candidateModel) (*layout.Candidate, error) {
	parsedID, err := id.ParseLayoutID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: parse candidate id %q: %w", m.ID, err)
	}
	schema, err := value.ParseObject(m.Schema)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: decode candidate schema: %w", err)
	}

	return &layout.Candidate{
		Entity: beema.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            parsedID,
		Name:          m.Name,
		Context:       m.Context,
		ObjectType:    m.ObjectType,
		MarketContext: m.MarketContext,
		TenantID:      m.TenantID,
		Role:          m.Role,
		Schema:        schema,
		Priority:      m.Priority,
		Version:       m.Version,
		Enabled:       m.Enabled,
	}, nil
}

// ── Job spec model ────────────────────────────────────────────────

type specModel struct {
	bun.BaseModel `bun:"table:beema_job_specs"`

	Name       string    `bun:"name,pk"`
	TenantID   string    `bun:"tenant_id,notnull"`
	ReadQuery  string    `bun:"read_query,notnull"`
	Transform  string    `bun:"transform,notnull"`
	WriteQuery string    `bun:"write_query"`
	Export     []byte    `bun:"export,type:jsonb,nullzero"`
	ChunkSize  int       `bun:"chunk_size,notnull,default:0"`
	Enabled    bool      `bun:"enabled,notnull,default:true"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toSpecModel(spec *pipeline.Spec) (*specModel, error) {
	m := &specModel{
		Name:       spec.Name,
		TenantID:   spec.TenantID,
		ReadQuery:  spec.ReadQuery,
		Transform:  spec.Transform,
		WriteQuery: spec.WriteQuery,
		ChunkSize:  spec.ChunkSize,
		Enabled:    spec.Enabled,
		CreatedAt:  spec.CreatedAt,
		UpdatedAt:  spec.UpdatedAt,
	}
	if spec.Export != nil {
		export, err := json.Marshal(spec.Export)
		if err != nil {
			return nil, fmt.Errorf("beema/bun: encode export spec: %w", err)
		}
		m.Export = export
	}
	return m, nil
}

func fromSpecModel(m *specModel) (*pipeline.Spec, error) {
	spec := &pipeline.Spec{
		Entity: beema.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Name:       m.Name,
		TenantID:   m.TenantID,
		ReadQuery:  m.ReadQuery,
		Transform:  m.Transform,
		WriteQuery: m.WriteQuery,
		ChunkSize:  m.ChunkSize,
		Enabled:    m.Enabled,
	}
	if len(m.Export) > 0 {
		var export pipeline.ExportSpec
		if err := json.Unmarshal(m.Export, &export); err != nil {
			return nil, fmt.Errorf("beema/bun: decode export spec: %w", err)
		}
		spec.Export = &export
	}
	return spec, nil
}

// ── Cron entry model ─────────────────────────────────────────────

type cronEntryModel struct {
	bun.BaseModel `bun:"table:beema_cron_entries"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name,notnull,unique"`
	Schedule  string     `bun:"schedule,notnull"`
	JobName   string     `bun:"job_name,notnull"`
	TenantID  string     `bun:"tenant_id"`
	Params    []byte     `bun:"params,type:jsonb,nullzero"`
	LastRunAt *time.Time `bun:"last_run_at"`
	NextRunAt *time.Time `bun:"next_run_at"`
	Enabled   bool       `bun:"enabled,notnull,default:true"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toCronModel(e *cron.Entry) (*cronEntryModel, error) {
	m := &cronEntryModel{
		ID:        e.ID.String(),
		Name:      e.Name,
		Schedule:  e.Schedule,
		JobName:   e.JobName,
		TenantID:  e.TenantID,
		LastRunAt: e.LastRunAt,
		NextRunAt: e.NextRunAt,
		Enabled:   e.Enabled,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if len(e.Params) > 0 {
		params, err := json.Marshal(e.Params)
		if err != nil {
			return nil, fmt.Errorf("beema/bun: encode cron params: %w", err)
		}
		m.Params = params
	}
	return m, nil
}

func fromCronModel(m *cronEntryModel) (*cron.Entry, error) {
	parsedID, err := id.ParseCronID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("beema/bun: parse cron id %q: %w", m.ID, err)
	}

	e := &cron.Entry{
		Entity: beema.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        parsedID,
		Name:      m.Name,
		Schedule:  m.Schedule,
		JobName:   m.JobName,
		TenantID:  m.TenantID,
		LastRunAt: m.LastRunAt,
		NextRunAt: m.NextRunAt,
		Enabled:   m.Enabled,
	}
	if len(m.Params) > 0 {
		params, err := value.ParseObject(m.Params)
		if err != nil {
			return nil, fmt.Errorf("beema/bun: decode cron params: %w", err)
		}
		e.Params = params
	}
	return e, nil
}
