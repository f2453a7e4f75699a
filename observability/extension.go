package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/prabhatkmr/beema-sub003/ext"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/prabhatkmr/beema-sub003/observability"

// Compile-time interface checks.
var (
	_ ext.Extension         = (*MetricsExtension)(nil)
	_ ext.VersionCreated    = (*MetricsExtension)(nil)
	_ ext.VersionSuperseded = (*MetricsExtension)(nil)
	_ ext.VersionConflict   = (*MetricsExtension)(nil)
	_ ext.RunStarted        = (*MetricsExtension)(nil)
	_ ext.RunCompleted      = (*MetricsExtension)(nil)
	_ ext.RunFailed         = (*MetricsExtension)(nil)
	_ ext.ChunkCommitted    = (*MetricsExtension)(nil)
	_ ext.ArtifactFlushed   = (*MetricsExtension)(nil)
	_ ext.LayoutResolved    = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters via OTel.
// Register it as a Beema extension to automatically track version
// creation, supersede conflicts, run outcomes, chunk commits, artifact
// flushes, and layout resolutions.
type MetricsExtension struct {
	versionCreated    metric.Int64Counter
	versionSuperseded metric.Int64Counter
	versionConflict   metric.Int64Counter
	runStarted        metric.Int64Counter
	runCompleted      metric.Int64Counter
	runFailed         metric.Int64Counter
	chunkCommitted    metric.Int64Counter
	artifactFlushed   metric.Int64Counter
	layoutResolved    metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider. Without one configured, all instruments are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Use this variant to inject a test MeterProvider.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		_ = err // noop fallback guaranteed by OTel API contract
		return c
	}
	return &MetricsExtension{
		versionCreated:    counter("beema.version.created", "Entities given their first version"),
		versionSuperseded: counter("beema.version.superseded", "Versions closed out by a newer one"),
		versionConflict:   counter("beema.version.conflicts", "Supersede races lost and retried"),
		runStarted:        counter("beema.run.started", "Runs started"),
		runCompleted:      counter("beema.run.completed", "Runs completed successfully"),
		runFailed:         counter("beema.run.failed", "Runs failed or cancelled"),
		chunkCommitted:    counter("beema.chunk.committed", "Chunks committed durably"),
		artifactFlushed:   counter("beema.artifact.flushed", "Export artifacts flushed to blob storage"),
		layoutResolved:    counter("beema.layout.resolved", "Layout resolutions served"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Version lifecycle hooks ─────────────────────────

// OnVersionCreated implements ext.VersionCreated.
func (m *MetricsExtension) OnVersionCreated(ctx context.Context, rec *version.Record) error {
	m.versionCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity_type", rec.EntityType)))
	return nil
}

// OnVersionSuperseded implements ext.VersionSuperseded.
func (m *MetricsExtension) OnVersionSuperseded(ctx context.Context, rec *version.Record) error {
	m.versionSuperseded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity_type", rec.EntityType)))
	return nil
}

// OnVersionConflict implements ext.VersionConflict.
func (m *MetricsExtension) OnVersionConflict(ctx context.Context, tenantID, _ string, _ int) error {
	m.versionConflict.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant_id", tenantID)))
	return nil
}

// ── Run lifecycle hooks ─────────────────────────────

// OnRunStarted implements ext.RunStarted.
func (m *MetricsExtension) OnRunStarted(ctx context.Context, run *pipeline.Run) error {
	m.runStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", run.JobName)))
	return nil
}

// OnRunCompleted implements ext.RunCompleted.
func (m *MetricsExtension) OnRunCompleted(ctx context.Context, run *pipeline.Run, _ time.Duration) error {
	m.runCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", run.JobName)))
	return nil
}

// OnRunFailed implements ext.RunFailed.
func (m *MetricsExtension) OnRunFailed(ctx context.Context, run *pipeline.Run, _ error) error {
	m.runFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", run.JobName),
		attribute.String("status", string(run.Status))))
	return nil
}

// OnChunkCommitted implements ext.ChunkCommitted.
func (m *MetricsExtension) OnChunkCommitted(ctx context.Context, run *pipeline.Run, _, _ int) error {
	m.chunkCommitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", run.JobName)))
	return nil
}

// OnArtifactFlushed implements ext.ArtifactFlushed.
func (m *MetricsExtension) OnArtifactFlushed(ctx context.Context, run *pipeline.Run, _ string, _ int) error {
	m.artifactFlushed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", run.JobName)))
	return nil
}

// ── Layout lifecycle hooks ──────────────────────────

// OnLayoutResolved implements ext.LayoutResolved.
func (m *MetricsExtension) OnLayoutResolved(ctx context.Context, req layout.Request, res layout.Resolution) error {
	m.layoutResolved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("context", req.Context),
		attribute.Bool("default", res.Metadata.Default)))
	return nil
}
