package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/blob"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

func TestDeriveSchema(t *testing.T) {
	t.Parallel()

	s := DeriveSchema(value.Object{
		"premium": value.Number(120),
		"active":  value.Bool(true),
		"broker":  value.String("marsh"),
	})
	if s == nil {
		t.Fatal("nil schema")
	}

	want := []Column{
		{Name: "active", Kind: value.KindBool},
		{Name: "broker", Kind: value.KindString},
		{Name: "premium", Kind: value.KindNumber},
	}
	if len(s.Columns) != len(want) {
		t.Fatalf("columns = %v", s.Columns)
	}
	for i, col := range want {
		if s.Columns[i] != col {
			t.Errorf("column %d = %v, want %v", i, s.Columns[i], col)
		}
	}

	if DeriveSchema(value.Object{}) != nil {
		t.Error("empty record should not derive a schema")
	}
}

func TestSchemaValidate(t *testing.T) {
	t.Parallel()

	s := DeriveSchema(value.Object{
		"broker":  value.String("marsh"),
		"premium": value.Number(120),
	})

	tests := []struct {
		name    string
		row     value.Object
		wantErr bool
	}{
		{"conforming", value.Object{"broker": value.String("aon"), "premium": value.Number(80)}, false},
		{"missing column ok", value.Object{"broker": value.String("aon")}, false},
		{"null ok", value.Object{"broker": value.Null(), "premium": value.Number(1)}, false},
		{"kind change", value.Object{"broker": value.String("aon"), "premium": value.String("120")}, true},
		{"extra column", value.Object{"broker": value.String("aon"), "region": value.String("emea")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.row)
			if tt.wantErr && !errors.Is(err, beema.ErrSchemaMismatch) {
				t.Fatalf("err = %v, want ErrSchemaMismatch", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func exportSpec() *pipeline.Spec {
	return &pipeline.Spec{
		Name:      "policy-export",
		TenantID:  "acme",
		ReadQuery: "SELECT payload FROM rows",
		Transform: "identity",
		Export:    &pipeline.ExportSpec{Prefix: "exports/policies", SheetName: "Policies"},
		Enabled:   true,
	}
}

func newWriter(t *testing.T, store blob.Store) (*Writer, *pipeline.Run) {
	t.Helper()
	spec := exportSpec()
	run := pipeline.NewRun(spec)
	sink, err := NewSinkFactory(store)(run, spec)
	if err != nil {
		t.Fatalf("sink factory: %v", err)
	}
	return sink.(*Writer), run
}

func policyRow(broker string, premium float64) pipeline.Row {
	return pipeline.Row{
		"broker":  value.String(broker),
		"premium": value.Number(premium),
	}
}

func TestWriterFlushesArtifactPerChunk(t *testing.T) {
	t.Parallel()

	store := blob.NewMemory()
	w, run := newWriter(t, store)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, 0, []pipeline.Row{policyRow("marsh", 120), policyRow("aon", 95)}); err != nil {
		t.Fatalf("chunk 0: %v", err)
	}
	if err := w.WriteChunk(ctx, 1, []pipeline.Row{policyRow("wtw", 60)}); err != nil {
		t.Fatalf("chunk 1: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	infos, err := store.List(ctx, "exports/policies/"+run.ID.String()+"/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(infos))
	}
	if !strings.Contains(infos[0].Key, "/chunk-0000-") || !strings.HasSuffix(infos[0].Key, ".xlsx") {
		t.Errorf("key = %q", infos[0].Key)
	}
	if !strings.Contains(infos[1].Key, "/chunk-0001-") {
		t.Errorf("key = %q", infos[1].Key)
	}

	keys := w.Artifacts()
	if len(keys) != 2 || keys[0] != infos[0].Key {
		t.Errorf("Artifacts() = %v", keys)
	}
}

func TestWriterArtifactContents(t *testing.T) {
	t.Parallel()

	store := blob.NewMemory()
	w, _ := newWriter(t, store)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, 0, []pipeline.Row{policyRow("marsh", 120.5)}); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}

	data, err := store.Get(ctx, w.Artifacts()[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Policies")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if fmt.Sprint(rows[0]) != fmt.Sprint([]string{"broker", "premium"}) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "marsh" || rows[1][1] != "120.5" {
		t.Errorf("data row = %v", rows[1])
	}
}

func TestWriterSchemaMismatchFailsChunk(t *testing.T) {
	t.Parallel()

	store := blob.NewMemory()
	w, _ := newWriter(t, store)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, 0, []pipeline.Row{policyRow("marsh", 120)}); err != nil {
		t.Fatalf("chunk 0: %v", err)
	}

	bad := pipeline.Row{"broker": value.String("aon"), "premium": value.String("oops")}
	err := w.WriteChunk(ctx, 1, []pipeline.Row{bad})
	if !errors.Is(err, beema.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}

	// Chunk 0's artifact survives; chunk 1 produced none.
	if len(w.Artifacts()) != 1 {
		t.Errorf("Artifacts = %v", w.Artifacts())
	}
}

func TestWriterSchemaFromFirstNonEmptyRecord(t *testing.T) {
	t.Parallel()

	store := blob.NewMemory()
	w, _ := newWriter(t, store)
	ctx := context.Background()

	// All-empty chunk derives nothing and flushes nothing.
	if err := w.WriteChunk(ctx, 0, []pipeline.Row{{}, {}}); err != nil {
		t.Fatalf("empty chunk: %v", err)
	}
	if w.Schema() != nil || len(w.Artifacts()) != 0 {
		t.Fatal("empty chunk derived a schema or flushed")
	}

	if err := w.WriteChunk(ctx, 1, []pipeline.Row{policyRow("marsh", 1)}); err != nil {
		t.Fatalf("chunk 1: %v", err)
	}
	if w.Schema() == nil {
		t.Fatal("schema not derived from first non-empty record")
	}
	if got := w.Schema().Names(); fmt.Sprint(got) != fmt.Sprint([]string{"broker", "premium"}) {
		t.Errorf("schema = %v", got)
	}
}

type failingStore struct{ blob.Store }

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("gateway unavailable")
}

func TestWriterUploadFailureSingleAttempt(t *testing.T) {
	t.Parallel()

	w, _ := newWriter(t, failingStore{})
	err := w.WriteChunk(context.Background(), 0, []pipeline.Row{policyRow("marsh", 1)})
	if err == nil {
		t.Fatal("expected upload failure")
	}
	if len(w.Artifacts()) != 0 {
		t.Error("failed upload recorded an artifact")
	}
}

type countingEmitter struct{ flushed int }

func (e *countingEmitter) EmitArtifactFlushed(context.Context, *pipeline.Run, string, int) {
	e.flushed++
}

func TestWriterEmitsArtifactEvents(t *testing.T) {
	t.Parallel()

	emitter := &countingEmitter{}
	spec := exportSpec()
	run := pipeline.NewRun(spec)
	sink, err := NewSinkFactory(blob.NewMemory(), WithEmitter(emitter))(run, spec)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := range 3 {
		if err := sink.WriteChunk(ctx, i, []pipeline.Row{policyRow("marsh", float64(i))}); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
	}
	if emitter.flushed != 3 {
		t.Errorf("flushed events = %d, want 3", emitter.flushed)
	}
}
