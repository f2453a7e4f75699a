package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/prabhatkmr/beema-sub003/blob"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

const defaultSheetName = "Export"

// Emitter is notified after each artifact lands in blob storage.
// ext.Registry satisfies this.
type Emitter interface {
	EmitArtifactFlushed(ctx context.Context, run *pipeline.Run, key string, rows int)
}

type noopEmitter struct{}

func (noopEmitter) EmitArtifactFlushed(context.Context, *pipeline.Run, string, int) {}

// WriterOption configures the sink factory.
type WriterOption func(*writerConfig)

type writerConfig struct {
	emitter Emitter
	logger  *slog.Logger
}

// WithEmitter sets the artifact event emitter.
func WithEmitter(e Emitter) WriterOption {
	return func(c *writerConfig) { c.emitter = e }
}

// WithLogger sets the writer logger.
func WithLogger(l *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = l }
}

// NewSinkFactory returns the pipeline sink factory for export specs.
// Each run gets its own Writer keyed under the spec's prefix.
func NewSinkFactory(store blob.Store, opts ...WriterOption) pipeline.SinkFactory {
	cfg := writerConfig{emitter: noopEmitter{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(run *pipeline.Run, spec *pipeline.Spec) (pipeline.ChunkSink, error) {
		if spec.Export == nil {
			return nil, fmt.Errorf("beema/export: spec %s has no export settings", spec.Name)
		}
		sheet := spec.Export.SheetName
		if sheet == "" {
			sheet = defaultSheetName
		}
		return &Writer{
			store:   store,
			run:     run,
			prefix:  spec.Export.Prefix,
			sheet:   sheet,
			emitter: cfg.emitter,
			logger:  cfg.logger,
		}, nil
	}
}

// Writer encodes each chunk as a standalone XLSX workbook and flushes
// it to blob storage. One artifact per chunk; a failed flush fails the
// chunk and already flushed artifacts stay put.
//
// The flush is a single attempt. Callers own retry policy at the run
// level, where the chunk can be regenerated from source.
type Writer struct {
	store   blob.Store
	run     *pipeline.Run
	prefix  string
	sheet   string
	emitter Emitter
	logger  *slog.Logger

	schema    *Schema
	artifacts []string
}

var _ pipeline.ChunkSink = (*Writer)(nil)

// Artifacts lists the keys flushed so far, in chunk order.
func (w *Writer) Artifacts() []string {
	out := make([]string, len(w.artifacts))
	copy(out, w.artifacts)
	return out
}

// Schema returns the derived schema, or nil before the first
// non-empty record.
func (w *Writer) Schema() *Schema { return w.schema }

// WriteChunk validates the chunk against the derived schema, encodes it,
// and uploads the workbook.
func (w *Writer) WriteChunk(ctx context.Context, chunkIndex int, rows []pipeline.Row) error {
	for _, row := range rows {
		if w.schema == nil {
			w.schema = DeriveSchema(row)
			continue
		}
		if err := w.schema.Validate(row); err != nil {
			return err
		}
	}
	if w.schema == nil {
		// Every record in the chunk was empty; nothing to encode.
		return nil
	}

	data, err := w.encode(rows)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/%s/chunk-%04d-%s.xlsx", w.prefix, w.run.ID, chunkIndex, uuid.NewString())
	if err := w.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("beema/export: flush chunk %d: %w", chunkIndex, err)
	}
	w.artifacts = append(w.artifacts, key)
	w.emitter.EmitArtifactFlushed(ctx, w.run, key, len(rows))
	w.logger.Debug("artifact flushed",
		slog.String("run_id", w.run.ID.String()),
		slog.String("key", key),
		slog.Int("rows", len(rows)))
	return nil
}

// Close is a no-op: every chunk is already durable when it returns.
func (w *Writer) Close(context.Context) error { return nil }

func (w *Writer) encode(rows []pipeline.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return nil, fmt.Errorf("beema/export: sheet: %w", err)
	}

	for i, name := range w.schema.Names() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("beema/export: header cell: %w", err)
		}
		if err := f.SetCellValue(w.sheet, cell, name); err != nil {
			return nil, fmt.Errorf("beema/export: header: %w", err)
		}
	}

	for r, row := range rows {
		for c, col := range w.schema.Columns {
			v, ok := row.Get(col.Name)
			if !ok || v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("beema/export: cell: %w", err)
			}
			if err := f.SetCellValue(w.sheet, cell, cellValue(v)); err != nil {
				return nil, fmt.Errorf("beema/export: cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("beema/export: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue maps a row value to what excelize writes into the cell.
// Arrays and objects export as compact JSON.
func cellValue(v value.Value) any {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.Bool()
		return b
	case value.KindNumber:
		n, _ := v.Number()
		return n
	case value.KindString:
		s, _ := v.String()
		return s
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
