package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	audithook "github.com/prabhatkmr/beema-sub003/audit_hook"
	"github.com/prabhatkmr/beema-sub003/blob"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/limit"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/store/memory"
	"github.com/prabhatkmr/beema-sub003/value"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()

	st := memory.New()
	p, err := beema.New(
		beema.WithStore(st),
		beema.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := Build(p, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, st
}

func seedSyncJob(t *testing.T, st *memory.Store, rows int) {
	t.Helper()

	spec := &pipeline.Spec{
		Entity:     beema.NewEntity(),
		Name:       "nightly-status-sync",
		TenantID:   "acme",
		ReadQuery:  "select * from policies where status = :status",
		Transform:  "close-status",
		WriteQuery: "update policies set status = :status",
		ChunkSize:  10,
		Enabled:    true,
	}
	if err := st.PutSpec(context.Background(), spec); err != nil {
		t.Fatal(err)
	}

	seeded := make([]pipeline.Row, rows)
	for i := range seeded {
		seeded[i] = pipeline.Row{
			"seq":    value.Number(float64(i)),
			"status": value.String("open"),
		}
	}
	st.SeedRows("nightly-status-sync", seeded)
}

func TestBuildRequiresStore(t *testing.T) {
	t.Parallel()

	p, err := beema.New(beema.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(p); !errors.Is(err, beema.ErrNoStore) {
		t.Errorf("err = %v, want ErrNoStore", err)
	}
}

func TestTriggerRunsJob(t *testing.T) {
	t.Parallel()

	eng, st := newTestEngine(t)
	seedSyncJob(t, st, 25)

	eng.RegisterTransformFunc("close-status", func(_ context.Context, row value.Object) (value.Object, error) {
		out := row.Clone()
		out["status"] = value.String("closed")
		return out, nil
	})

	summary, err := eng.Trigger(context.Background(), "nightly-status-sync", nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Status != pipeline.StatusCompleted {
		t.Errorf("status = %q", summary.Status)
	}
	if summary.ReadCount != 25 || summary.WriteCount != 25 || summary.SkipCount != 0 {
		t.Errorf("summary = %+v", summary)
	}

	chunks := st.WrittenChunks("nightly-status-sync")
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if v, _ := chunks[0][0]["status"].String(); v != "closed" {
		t.Errorf("transformed status = %q", v)
	}
}

func TestTriggerUnknownJob(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	_, err := eng.Trigger(context.Background(), "nope", nil)
	if !errors.Is(err, beema.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestTriggerLuaTransform(t *testing.T) {
	t.Parallel()

	eng, st := newTestEngine(t)
	spec := &pipeline.Spec{
		Entity:     beema.NewEntity(),
		Name:       "lua-sync",
		TenantID:   "acme",
		ReadQuery:  "select * from policies",
		Transform:  `lua: row.status = "closed"; return row`,
		WriteQuery: "update policies set status = :status",
		Enabled:    true,
	}
	if err := st.PutSpec(context.Background(), spec); err != nil {
		t.Fatal(err)
	}
	st.SeedRows("lua-sync", []pipeline.Row{{"status": value.String("open")}})

	summary, err := eng.Trigger(context.Background(), "lua-sync", nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.WriteCount != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	chunks := st.WrittenChunks("lua-sync")
	if v, _ := chunks[0][0]["status"].String(); v != "closed" {
		t.Errorf("status = %q", v)
	}
}

func TestTriggerExportJobFlushesArtifacts(t *testing.T) {
	t.Parallel()

	blobs := blob.NewMemory()
	eng, st := newTestEngine(t, WithBlobStore(blobs))

	spec := &pipeline.Spec{
		Entity:    beema.NewEntity(),
		Name:      "policy-export",
		TenantID:  "acme",
		ReadQuery: "select * from policies",
		Transform: "identity",
		Export:    &pipeline.ExportSpec{Prefix: "exports/policies"},
		ChunkSize: 2,
		Enabled:   true,
	}
	if err := st.PutSpec(context.Background(), spec); err != nil {
		t.Fatal(err)
	}
	st.SeedRows("policy-export", []pipeline.Row{
		{"broker": value.String("marsh"), "premium": value.Number(120.5)},
		{"broker": value.String("aon"), "premium": value.Number(98)},
		{"broker": value.String("wtw"), "premium": value.Number(240)},
	})
	eng.RegisterTransformFunc("identity", func(_ context.Context, row value.Object) (value.Object, error) {
		return row, nil
	})

	summary, err := eng.Trigger(context.Background(), "policy-export", nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.WriteCount != 3 {
		t.Fatalf("summary = %+v", summary)
	}

	infos, err := blobs.List(context.Background(), "exports/policies/")
	if err != nil {
		t.Fatal(err)
	}
	// One workbook per chunk: 2 rows + 1 row.
	if len(infos) != 2 {
		t.Errorf("artifacts = %d, want 2", len(infos))
	}
}

func TestTriggerTenantLimit(t *testing.T) {
	t.Parallel()

	eng, st := newTestEngine(t, WithTenantLimit(limit.Config{
		TenantID:      "acme",
		MaxConcurrent: 1,
	}))
	seedSyncJob(t, st, 5)

	release := make(chan struct{})
	started := make(chan struct{})
	eng.RegisterTransformFunc("close-status", func(_ context.Context, row value.Object) (value.Object, error) {
		select {
		case started <- struct{}{}:
			<-release
		default:
		}
		return row, nil
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := eng.Trigger(context.Background(), "nightly-status-sync", nil)
		errCh <- err
	}()
	<-started

	// The tenant's single slot is held by the in-flight run.
	_, err := eng.Trigger(context.Background(), "nightly-status-sync", nil)
	if !errors.Is(err, beema.ErrLimitExceeded) {
		t.Errorf("err = %v, want ErrLimitExceeded", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}

	// Slot released after completion.
	if eng.Limiter().ActiveCount("acme") != 0 {
		t.Error("slot not released")
	}
}

func TestResolveLayout(t *testing.T) {
	t.Parallel()

	eng, st := newTestEngine(t)

	err := st.PutCandidate(context.Background(), &layout.Candidate{
		Entity:        beema.NewEntity(),
		ID:            id.NewLayoutID(),
		Name:          "policy-detail-de",
		Context:       "detail",
		ObjectType:    "policy",
		MarketContext: "de",
		Schema:        value.Object{"type": value.String("grid")},
		Enabled:       true,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := eng.ResolveLayout(context.Background(), layout.Request{
		Context:       "detail",
		ObjectType:    "policy",
		MarketContext: "de",
		TenantID:      "acme",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Metadata.LayoutName != "policy-detail-de" {
		t.Errorf("layout = %q", res.Metadata.LayoutName)
	}

	// No candidates for the triple: deterministic default, never an error.
	res, err = eng.ResolveLayout(context.Background(), layout.Request{
		Context:    "detail",
		ObjectType: "claim",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Metadata.Default || res.Metadata.LayoutName != layout.DefaultLayoutName {
		t.Errorf("resolution = %+v", res.Metadata)
	}
}

// countingCache records gets and puts.
type countingCache struct {
	entries map[string]*layout.Resolution
	gets    int
	puts    int
}

func (c *countingCache) GetResolution(_ context.Context, key string) (*layout.Resolution, bool, error) {
	c.gets++
	res, ok := c.entries[key]
	return res, ok, nil
}

func (c *countingCache) PutResolution(_ context.Context, key string, res *layout.Resolution, _ time.Duration) error {
	c.puts++
	c.entries[key] = res
	return nil
}

func TestResolveLayoutCacheAside(t *testing.T) {
	t.Parallel()

	cache := &countingCache{entries: make(map[string]*layout.Resolution)}
	eng, _ := newTestEngine(t, WithLayoutCache(cache))

	req := layout.Request{Context: "detail", ObjectType: "policy", MarketContext: "de"}
	first, err := eng.ResolveLayout(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.ResolveLayout(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if cache.puts != 1 || cache.gets != 2 {
		t.Errorf("cache gets = %d, puts = %d", cache.gets, cache.puts)
	}
	if first.Metadata.LayoutName != second.Metadata.LayoutName {
		t.Error("cached resolution differs")
	}
}

func TestVersionsService(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	svc := eng.Versions("policy")
	if svc != eng.Versions("policy") {
		t.Error("service not cached per entity type")
	}

	if _, err := svc.Create(ctx, "acme", "pol-1", "draft", value.Object{"premium": value.Number(100)}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.NewVersion(ctx, "acme", "pol-1", "active", value.Object{"premium": value.Number(110)}); err != nil {
		t.Fatal(err)
	}

	current, err := svc.Current(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatal(err)
	}
	if current.Status != "active" {
		t.Errorf("status = %q", current.Status)
	}
}

func TestRegisterCron(t *testing.T) {
	t.Parallel()

	eng, st := newTestEngine(t)
	ctx := context.Background()

	def := &cron.Definition{
		Name:     "nightly",
		Schedule: "0 2 * * *",
		JobName:  "nightly-status-sync",
		TenantID: "acme",
		Params:   value.Object{"status": value.String("open")},
	}
	if err := eng.RegisterCron(ctx, def); err != nil {
		t.Fatal(err)
	}

	entries, err := st.ListCrons(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].NextRunAt == nil || !entries[0].NextRunAt.After(time.Now().UTC().Add(-time.Minute)) {
		t.Errorf("NextRunAt = %v", entries[0].NextRunAt)
	}

	// Re-registration is idempotent.
	if err := eng.RegisterCron(ctx, def); err != nil {
		t.Errorf("re-register: %v", err)
	}

	// Garbage schedules are rejected before touching the store.
	bad := &cron.Definition{Name: "bad", Schedule: "not a schedule", JobName: "x"}
	if err := eng.RegisterCron(ctx, bad); err == nil {
		t.Error("expected schedule parse error")
	}
}

func TestTriggerFailedRunSurfacesError(t *testing.T) {
	t.Parallel()

	eng, st := newTestEngine(t)
	seedSyncJob(t, st, 5)
	eng.RegisterTransformFunc("close-status", func(_ context.Context, row value.Object) (value.Object, error) {
		return nil, fmt.Errorf("mapping table missing")
	})

	summary, err := eng.Trigger(context.Background(), "nightly-status-sync", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if summary.Status != pipeline.StatusFailed {
		t.Errorf("status = %q", summary.Status)
	}
	if len(st.WrittenChunks("nightly-status-sync")) != 0 {
		t.Error("failed run committed rows")
	}
}

func TestTriggerEmitsAuditTrail(t *testing.T) {
	t.Parallel()

	var events []*audithook.AuditEvent
	trail := audithook.New(audithook.RecorderFunc(
		func(_ context.Context, evt *audithook.AuditEvent) error {
			events = append(events, evt)
			return nil
		},
	))

	eng, st := newTestEngine(t, WithExtension(trail))
	seedSyncJob(t, st, 15)
	eng.RegisterTransformFunc("close-status", func(_ context.Context, row value.Object) (value.Object, error) {
		return row, nil
	})

	if _, err := eng.Trigger(context.Background(), "nightly-status-sync", nil); err != nil {
		t.Fatal(err)
	}

	byAction := make(map[string]int, len(events))
	for _, evt := range events {
		byAction[evt.Action]++
	}
	if byAction[audithook.ActionRunStarted] != 1 {
		t.Errorf("run.started = %d, want 1", byAction[audithook.ActionRunStarted])
	}
	if byAction[audithook.ActionRunCompleted] != 1 {
		t.Errorf("run.completed = %d, want 1", byAction[audithook.ActionRunCompleted])
	}
	// 15 rows at chunk size 10 commit in two chunks.
	if byAction[audithook.ActionChunkCommitted] != 2 {
		t.Errorf("chunks = %d, want 2", byAction[audithook.ActionChunkCommitted])
	}
}
