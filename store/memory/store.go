package memory

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

// Ensure Store implements store.Store at compile time.
// We verify each subsystem interface individually.
var (
	_ version.Store         = (*Store)(nil)
	_ layout.CandidateStore = (*Store)(nil)
	_ pipeline.SpecStore    = (*Store)(nil)
	_ pipeline.RowStore     = (*Store)(nil)
	_ cron.Store            = (*Store)(nil)
)

// versionKey identifies one entity's version chain.
type versionKey struct {
	tenantID string
	entityID string
}

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	versions   map[versionKey][]*version.Record
	candidates map[string]*layout.Candidate
	specs      map[string]*pipeline.Spec
	crons      map[id.CronID]*cron.Entry

	// sourceRows are the rows OpenRows streams, keyed by job name.
	// Seed them with SeedRows before triggering a run.
	sourceRows map[string][]pipeline.Row

	// writtenChunks records every committed write chunk, keyed by job
	// name, in commit order.
	writtenChunks map[string][][]pipeline.Row
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		versions:      make(map[versionKey][]*version.Record),
		candidates:    make(map[string]*layout.Candidate),
		specs:         make(map[string]*pipeline.Spec),
		crons:         make(map[id.CronID]*cron.Entry),
		sourceRows:    make(map[string][]pipeline.Row),
		writtenChunks: make(map[string][][]pipeline.Row),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Version Store
// ──────────────────────────────────────────────────

// InsertFirst persists the first version of an entity.
func (m *Store) InsertFirst(_ context.Context, rec *version.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := versionKey{tenantID: rec.TenantID, entityID: rec.EntityID}
	for _, existing := range m.versions[key] {
		if existing.Current {
			return beema.ErrVersionExists
		}
	}

	stored := rec.Clone()
	stored.Current = true
	stored.ValidTo = nil
	m.versions[key] = append(m.versions[key], stored)
	*rec = *stored.Clone()
	return nil
}

// Supersede atomically closes the current row and inserts next as the new
// current row. The store lock makes the close-and-insert indivisible;
// racing callers serialize, and the one whose snapshot is stale fails
// with beema.ErrVersionConflict.
func (m *Store) Supersede(_ context.Context, next *version.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := versionKey{tenantID: next.TenantID, entityID: next.EntityID}
	var current *version.Record
	for _, existing := range m.versions[key] {
		if existing.Current {
			current = existing
			break
		}
	}
	if current == nil {
		return beema.ErrVersionNotFound
	}

	// The caller derived next from a snapshot of the current row. If the
	// chain has moved past that snapshot, the write is stale.
	if next.TransactionTime.Before(current.TransactionTime) {
		return beema.ErrVersionConflict
	}

	stored := next.Clone()
	// Valid time never goes backwards.
	if stored.ValidFrom.Before(current.ValidFrom) {
		stored.ValidFrom = current.ValidFrom
	}

	closeAt := stored.ValidFrom
	current.ValidTo = &closeAt
	current.Current = false

	stored.Current = true
	stored.ValidTo = nil
	m.versions[key] = append(m.versions[key], stored)
	*next = *stored.Clone()
	return nil
}

// GetCurrent returns the current row for the key.
func (m *Store) GetCurrent(_ context.Context, tenantID, entityID string) (*version.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.versions[versionKey{tenantID: tenantID, entityID: entityID}] {
		if rec.Current {
			return rec.Clone(), nil
		}
	}
	return nil, beema.ErrVersionNotFound
}

// GetAsOf reconstructs the version effective at validAt as recorded by
// knownAt.
func (m *Store) GetAsOf(_ context.Context, tenantID, entityID string, validAt, knownAt time.Time) (*version.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *version.Record
	for _, rec := range m.versions[versionKey{tenantID: tenantID, entityID: entityID}] {
		if rec.TransactionTime.After(knownAt) {
			continue
		}
		if !rec.ContainsValid(validAt) {
			continue
		}
		if best == nil || rec.TransactionTime.After(best.TransactionTime) {
			best = rec
		}
	}
	if best == nil {
		return nil, beema.ErrVersionNotFound
	}
	return best.Clone(), nil
}

// ListHistory returns every version of the entity in the given order.
func (m *Store) ListHistory(_ context.Context, tenantID, entityID string, order version.HistoryOrder) ([]*version.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain := m.versions[versionKey{tenantID: tenantID, entityID: entityID}]
	out := make([]*version.Record, 0, len(chain))
	for _, rec := range chain {
		out = append(out, rec.Clone())
	}

	switch order {
	case version.OrderTransactionDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].TransactionTime.After(out[j].TransactionTime)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].ValidFrom.Equal(out[j].ValidFrom) {
				return out[i].ValidFrom.Before(out[j].ValidFrom)
			}
			return out[i].TransactionTime.Before(out[j].TransactionTime)
		})
	}
	return out, nil
}

// ListCurrent returns all current rows for a tenant, ordered by EntityID.
func (m *Store) ListCurrent(_ context.Context, tenantID string) ([]*version.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*version.Record
	for key, chain := range m.versions {
		if key.tenantID != tenantID {
			continue
		}
		for _, rec := range chain {
			if rec.Current {
				out = append(out, rec.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// ──────────────────────────────────────────────────
// Layout Candidate Store
// ──────────────────────────────────────────────────

// ListCandidates returns every candidate for the exact triple.
func (m *Store) ListCandidates(_ context.Context, layoutContext, objectType, marketContext string) ([]*layout.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*layout.Candidate
	for _, c := range m.candidates {
		if c.Context == layoutContext && c.ObjectType == objectType && c.MarketContext == marketContext {
			out = append(out, cloneCandidate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PutCandidate creates or replaces a candidate by ID.
func (m *Store) PutCandidate(_ context.Context, c *layout.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[c.ID.String()] = cloneCandidate(c)
	return nil
}

func cloneCandidate(c *layout.Candidate) *layout.Candidate {
	cp := *c
	cp.Schema = c.Schema.Clone()
	return &cp
}

// ──────────────────────────────────────────────────
// Pipeline Spec Store
// ──────────────────────────────────────────────────

// GetSpec returns the spec by job name.
func (m *Store) GetSpec(_ context.Context, name string) (*pipeline.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	spec, ok := m.specs[name]
	if !ok {
		return nil, beema.ErrJobNotFound
	}
	cp := *spec
	return &cp, nil
}

// PutSpec creates or replaces a spec by name.
func (m *Store) PutSpec(_ context.Context, spec *pipeline.Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *spec
	m.specs[spec.Name] = &cp
	return nil
}

// ListSpecs returns every stored spec ordered by name.
func (m *Store) ListSpecs(_ context.Context) ([]*pipeline.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*pipeline.Spec, 0, len(m.specs))
	for _, spec := range m.specs {
		cp := *spec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ──────────────────────────────────────────────────
// Pipeline Row Store
// ──────────────────────────────────────────────────

// SeedRows sets the rows OpenRows will stream for a job name.
func (m *Store) SeedRows(jobName string, rows []pipeline.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceRows[jobName] = rows
}

// WrittenChunks returns the chunks committed for a job name, in commit
// order.
func (m *Store) WrittenChunks(jobName string) [][]pipeline.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writtenChunks[jobName]
}

// OpenRows returns a streaming reader over the seeded rows.
func (m *Store) OpenRows(_ context.Context, spec *pipeline.Spec, _ pipeline.Params) (pipeline.RowReader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &sliceReader{rows: m.sourceRows[spec.Name]}, nil
}

// WriteChunk commits every row at once; the store lock is the transaction.
func (m *Store) WriteChunk(_ context.Context, spec *pipeline.Spec, rows []pipeline.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunk := make([]pipeline.Row, len(rows))
	for i, row := range rows {
		chunk[i] = row.Clone()
	}
	m.writtenChunks[spec.Name] = append(m.writtenChunks[spec.Name], chunk)
	return nil
}

type sliceReader struct {
	rows []pipeline.Row
	pos  int
}

func (r *sliceReader) Next(_ context.Context) (pipeline.Row, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos].Clone()
	r.pos++
	return row, nil
}

func (r *sliceReader) Close() error { return nil }

// ──────────────────────────────────────────────────
// Cron Store
// ──────────────────────────────────────────────────

// RegisterCron persists a new cron entry.
func (m *Store) RegisterCron(_ context.Context, entry *cron.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.crons {
		if existing.Name == entry.Name {
			return beema.ErrCronExists
		}
	}
	m.crons[entry.ID] = cloneCron(entry)
	return nil
}

// GetCron retrieves a cron entry by ID.
func (m *Store) GetCron(_ context.Context, entryID id.CronID) (*cron.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.crons[entryID]
	if !ok {
		return nil, beema.ErrCronNotFound
	}
	return cloneCron(entry), nil
}

// ListCrons returns all cron entries.
func (m *Store) ListCrons(_ context.Context) ([]*cron.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*cron.Entry, 0, len(m.crons))
	for _, entry := range m.crons {
		out = append(out, cloneCron(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateCronLastRun records when a cron entry last fired.
func (m *Store) UpdateCronLastRun(_ context.Context, entryID id.CronID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.crons[entryID]
	if !ok {
		return beema.ErrCronNotFound
	}
	entry.LastRunAt = &at
	return nil
}

// UpdateCronEntry updates a cron entry.
func (m *Store) UpdateCronEntry(_ context.Context, entry *cron.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.crons[entry.ID]; !ok {
		return beema.ErrCronNotFound
	}
	m.crons[entry.ID] = cloneCron(entry)
	return nil
}

// DeleteCron removes a cron entry by ID.
func (m *Store) DeleteCron(_ context.Context, entryID id.CronID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.crons, entryID)
	return nil
}

func cloneCron(entry *cron.Entry) *cron.Entry {
	cp := *entry
	cp.Params = entry.Params.Clone()
	if entry.LastRunAt != nil {
		t := *entry.LastRunAt
		cp.LastRunAt = &t
	}
	if entry.NextRunAt != nil {
		t := *entry.NextRunAt
		cp.NextRunAt = &t
	}
	return &cp
}
