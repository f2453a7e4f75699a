package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	beema "github.com/prabhatkmr/beema-sub003"
)

// ChunkSink receives complete chunks. The store-backed sink runs the write
// query in one transaction per chunk; the export sink encodes the chunk
// and flushes it to blob storage.
type ChunkSink interface {
	// WriteChunk persists one chunk atomically. chunkIndex is 0-based.
	WriteChunk(ctx context.Context, chunkIndex int, rows []Row) error

	// Close finalizes the sink after the last chunk. It is called only on
	// success; an aborted run leaves the sink as the last committed chunk
	// left it.
	Close(ctx context.Context) error
}

// SinkFactory builds the sink for one run. The export variant needs the
// run identity to name its artifacts.
type SinkFactory func(run *Run, spec *Spec) (ChunkSink, error)

// Emitter emits run lifecycle events. ext.Registry satisfies this.
type Emitter interface {
	EmitChunkCommitted(ctx context.Context, run *Run, chunkIndex, rows int)
}

type noopEmitter struct{}

func (noopEmitter) EmitChunkCommitted(context.Context, *Run, int, int) {}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDefaultChunkSize sets the chunk size for specs that leave it unset.
func WithDefaultChunkSize(n int) RunnerOption {
	return func(r *Runner) { r.defaultChunkSize = n }
}

// WithExportSink sets the factory for the columnar-export sink variant.
func WithExportSink(f SinkFactory) RunnerOption {
	return func(r *Runner) { r.exportSink = f }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) RunnerOption {
	return func(r *Runner) { r.emitter = e }
}

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// Runner executes job specs: read, transform per row, write per chunk.
//
// A run is serial within itself: chunk N+1 never starts before chunk N
// commits. Distinct runs over disjoint tenant data may execute
// concurrently without coordination. Cancellation is cooperative and
// checkpointed at chunk boundaries only: once a chunk has started it
// commits or aborts whole.
type Runner struct {
	rows     RowStore
	resolver Resolver

	defaultChunkSize int
	exportSink       SinkFactory
	emitter          Emitter
	logger           *slog.Logger
}

// NewRunner creates a Runner over the given row store and transform
// resolver.
func NewRunner(rows RowStore, resolver Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		rows:             rows,
		resolver:         resolver,
		defaultChunkSize: 100,
		emitter:          noopEmitter{},
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs the spec and stamps the outcome onto run.
// Prior committed chunks are never rolled back by a later failure.
func (r *Runner) Execute(ctx context.Context, run *Run, spec *Spec, params Params) (Summary, error) {
	summary, err := r.execute(ctx, run, spec, params)
	run.Finish(summary, err)
	return summary, err
}

func (r *Runner) execute(ctx context.Context, run *Run, spec *Spec, params Params) (Summary, error) {
	if err := spec.Validate(); err != nil {
		return Summary{Status: StatusFailed}, err
	}
	if !spec.Enabled {
		return Summary{Status: StatusFailed}, fmt.Errorf("%w: %s", beema.ErrJobDisabled, spec.Name)
	}

	transform, err := r.resolver.ResolveTransform(spec.Transform)
	if err != nil {
		return Summary{Status: StatusFailed}, err
	}

	sink, err := r.sinkFor(run, spec)
	if err != nil {
		return Summary{Status: StatusFailed}, err
	}

	reader, err := r.rows.OpenRows(ctx, spec, spec.Defaults.Merge(params))
	if err != nil {
		return Summary{Status: StatusFailed}, fmt.Errorf("%w: open rows for %s: %w", beema.ErrStore, spec.Name, err)
	}
	defer reader.Close()

	chunkSize := spec.ChunkSize
	if chunkSize == 0 {
		chunkSize = r.defaultChunkSize
	}

	summary := Summary{Status: StatusRunning}
	chunk := make([]Row, 0, chunkSize)
	chunkIndex := 0
	eof := false

	for !eof {
		// Cancellation is only observed here, between chunks.
		if err := ctx.Err(); err != nil {
			summary.Status = StatusCancelled
			return summary, err
		}

		chunk = chunk[:0]
		for len(chunk) < chunkSize {
			row, err := reader.Next(ctx)
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				summary.Status = StatusFailed
				return summary, fmt.Errorf("%w: read row for %s: %w", beema.ErrStore, spec.Name, err)
			}

			summary.ReadCount++
			out, err := transform.Apply(ctx, row.Clone())
			if err != nil {
				// A bad row fails the whole chunk; nothing is skipped.
				summary.Status = StatusFailed
				return summary, fmt.Errorf("transform row %d of %s: %w", summary.ReadCount, spec.Name, err)
			}
			chunk = append(chunk, out)
		}

		if len(chunk) == 0 {
			break
		}

		if err := sink.WriteChunk(ctx, chunkIndex, chunk); err != nil {
			summary.Status = StatusFailed
			return summary, fmt.Errorf("write chunk %d of %s: %w", chunkIndex, spec.Name, err)
		}
		summary.WriteCount += len(chunk)
		r.emitter.EmitChunkCommitted(ctx, run, chunkIndex, len(chunk))
		r.logger.Debug("chunk committed",
			slog.String("job", spec.Name),
			slog.Int("chunk", chunkIndex),
			slog.Int("rows", len(chunk)),
		)
		chunkIndex++
	}

	if err := sink.Close(ctx); err != nil {
		summary.Status = StatusFailed
		return summary, fmt.Errorf("finalize sink for %s: %w", spec.Name, err)
	}

	summary.Status = StatusCompleted
	return summary, nil
}

// sinkFor picks the write-query sink or the export sink per the spec.
func (r *Runner) sinkFor(run *Run, spec *Spec) (ChunkSink, error) {
	if spec.Export != nil {
		if r.exportSink == nil {
			return nil, fmt.Errorf("%w: job %q requires an export sink", beema.ErrInvalidSpec, spec.Name)
		}
		return r.exportSink(run, spec)
	}
	return &storeSink{rows: r.rows, spec: spec}, nil
}

// storeSink writes chunks through the row store's write query.
type storeSink struct {
	rows RowStore
	spec *Spec
}

func (s *storeSink) WriteChunk(ctx context.Context, _ int, rows []Row) error {
	return s.rows.WriteChunk(ctx, s.spec, rows)
}

func (s *storeSink) Close(context.Context) error { return nil }
