package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/observability"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

func setup(t *testing.T) (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64]", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestLifecycleCounters(t *testing.T) {
	ext, reader := setup(t)
	ctx := context.Background()

	rec := &version.Record{TenantID: "acme", EntityID: "pol-1", EntityType: "policy"}
	run := &pipeline.Run{JobName: "nightly-sync"}

	_ = ext.OnVersionCreated(ctx, rec)
	_ = ext.OnVersionSuperseded(ctx, rec)
	_ = ext.OnVersionSuperseded(ctx, rec)
	_ = ext.OnVersionConflict(ctx, "acme", "pol-1", 1)
	_ = ext.OnRunStarted(ctx, run)
	_ = ext.OnRunCompleted(ctx, run, time.Second)
	_ = ext.OnRunFailed(ctx, run, errors.New("boom"))
	_ = ext.OnChunkCommitted(ctx, run, 0, 100)
	_ = ext.OnChunkCommitted(ctx, run, 1, 50)
	_ = ext.OnArtifactFlushed(ctx, run, "exports/x/chunk-0000.xlsx", 100)
	_ = ext.OnLayoutResolved(ctx, layout.Request{Context: "quote"}, layout.Resolution{})

	checks := map[string]int64{
		"beema.version.created":    1,
		"beema.version.superseded": 2,
		"beema.version.conflicts":  1,
		"beema.run.started":        1,
		"beema.run.completed":      1,
		"beema.run.failed":         1,
		"beema.chunk.committed":    2,
		"beema.artifact.flushed":   1,
		"beema.layout.resolved":    1,
	}
	for name, want := range checks {
		if got := counterValue(t, reader, name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestExtensionName(t *testing.T) {
	ext, _ := setup(t)
	if ext.Name() != "observability-metrics" {
		t.Errorf("Name = %q", ext.Name())
	}
}

func TestNoProviderIsNoop(t *testing.T) {
	// Without a global MeterProvider the instruments are noops and the
	// hooks must still succeed.
	ext := observability.NewMetricsExtension()
	if err := ext.OnRunStarted(context.Background(), &pipeline.Run{}); err != nil {
		t.Fatalf("OnRunStarted: %v", err)
	}
}
