//go:build integration

package bunstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/cron"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	bunstore "github.com/prabhatkmr/beema-sub003/store/bun"
	"github.com/prabhatkmr/beema-sub003/value"
)

// setupTestStore creates a Postgres container and returns a connected Bun Store.
func setupTestStore(t *testing.T) *bunstore.Store {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("beema_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	store := bunstore.New(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestStore_Ping(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	// Second run applies nothing and succeeds.
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestCandidateStore_PutAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c := &layout.Candidate{
		Entity:        beema.NewEntity(),
		ID:            id.NewLayoutID(),
		Name:          "policy-detail-de",
		Context:       "detail",
		ObjectType:    "policy",
		MarketContext: "de",
		TenantID:      "acme",
		Schema:        value.Object{"type": value.String("grid")},
		Priority:      2,
		Version:       1,
		Enabled:       true,
	}
	if err := store.PutCandidate(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListCandidates(ctx, "detail", "policy", "de")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Name != "policy-detail-de" || got[0].TenantID != "acme" || got[0].Priority != 2 {
		t.Errorf("candidate = %+v", got[0])
	}
	if !got[0].Schema.Equal(c.Schema) {
		t.Errorf("schema = %v", got[0].Schema)
	}

	// Other triples stay invisible.
	other, err := store.ListCandidates(ctx, "detail", "claim", "de")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("len = %d, want 0", len(other))
	}

	// Put with the same ID replaces.
	c.Priority = 9
	if err := store.PutCandidate(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err = store.ListCandidates(ctx, "detail", "policy", "de")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Priority != 9 {
		t.Errorf("after replace: %+v", got)
	}
}

func TestSpecStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSpec(ctx, "missing"); !errors.Is(err, beema.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}

	spec := &pipeline.Spec{
		Entity:    beema.NewEntity(),
		Name:      "policy-export",
		TenantID:  "acme",
		ReadQuery: "select * from policies",
		Transform: "identity",
		Export:    &pipeline.ExportSpec{Prefix: "exports/policies", SheetName: "Policies"},
		ChunkSize: 500,
		Enabled:   true,
	}
	if err := store.PutSpec(ctx, spec); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetSpec(ctx, "policy-export")
	if err != nil {
		t.Fatal(err)
	}
	if got.Export == nil || got.Export.Prefix != "exports/policies" || got.Export.SheetName != "Policies" {
		t.Errorf("export = %+v", got.Export)
	}
	if got.ChunkSize != 500 {
		t.Errorf("chunk size = %d", got.ChunkSize)
	}

	specs, err := store.ListSpecs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 {
		t.Errorf("len = %d, want 1", len(specs))
	}
}

func TestCronStore_Lifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	next := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	entry := &cron.Entry{
		Entity:    beema.NewEntity(),
		ID:        id.NewCronID(),
		Name:      "nightly",
		Schedule:  "0 2 * * *",
		JobName:   "nightly-status-sync",
		TenantID:  "acme",
		Params:    value.Object{"status": value.String("open")},
		NextRunAt: &next,
		Enabled:   true,
	}
	if err := store.RegisterCron(ctx, entry); err != nil {
		t.Fatal(err)
	}

	dup := *entry
	dup.ID = id.NewCronID()
	if err := store.RegisterCron(ctx, &dup); !errors.Is(err, beema.ErrCronExists) {
		t.Errorf("err = %v, want ErrCronExists", err)
	}

	got, err := store.GetCron(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(next) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, next)
	}
	if v, _ := got.Params["status"].String(); v != "open" {
		t.Errorf("params = %v", got.Params)
	}

	at := time.Now().UTC().Truncate(time.Microsecond)
	if err := store.UpdateCronLastRun(ctx, entry.ID, at); err != nil {
		t.Fatal(err)
	}

	entry.Enabled = false
	if err := store.UpdateCronEntry(ctx, entry); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetCron(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled {
		t.Error("entry still enabled")
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(at) {
		t.Errorf("LastRunAt = %v", got.LastRunAt)
	}

	if err := store.DeleteCron(ctx, entry.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetCron(ctx, entry.ID); !errors.Is(err, beema.ErrCronNotFound) {
		t.Errorf("err = %v, want ErrCronNotFound", err)
	}
}
