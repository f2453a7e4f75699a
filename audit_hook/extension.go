package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prabhatkmr/beema-sub003/ext"
	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

// Compile-time interface checks.
var (
	_ ext.Extension         = (*Extension)(nil)
	_ ext.VersionCreated    = (*Extension)(nil)
	_ ext.VersionSuperseded = (*Extension)(nil)
	_ ext.VersionConflict   = (*Extension)(nil)
	_ ext.RunStarted        = (*Extension)(nil)
	_ ext.RunCompleted      = (*Extension)(nil)
	_ ext.RunFailed         = (*Extension)(nil)
	_ ext.ChunkCommitted    = (*Extension)(nil)
	_ ext.ArtifactFlushed   = (*Extension)(nil)
	_ ext.LayoutResolved    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so that this package does not depend on any particular
// trail store — callers inject the concrete backend at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges beema lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Version lifecycle hooks ─────────────────────────

// OnVersionCreated implements ext.VersionCreated.
func (e *Extension) OnVersionCreated(ctx context.Context, rec *version.Record) error {
	return e.record(ctx, ActionVersionCreated, SeverityInfo, OutcomeSuccess,
		ResourceVersion, rec.ID.String(), CategoryVersion, nil,
		"tenant_id", rec.TenantID,
		"entity_id", rec.EntityID,
		"entity_type", rec.EntityType,
		"status", rec.Status,
	)
}

// OnVersionSuperseded implements ext.VersionSuperseded.
func (e *Extension) OnVersionSuperseded(ctx context.Context, rec *version.Record) error {
	return e.record(ctx, ActionVersionSuperseded, SeverityInfo, OutcomeSuccess,
		ResourceVersion, rec.ID.String(), CategoryVersion, nil,
		"tenant_id", rec.TenantID,
		"entity_id", rec.EntityID,
		"entity_type", rec.EntityType,
		"status", rec.Status,
		"valid_from", rec.ValidFrom.Format(time.RFC3339),
	)
}

// OnVersionConflict implements ext.VersionConflict.
func (e *Extension) OnVersionConflict(ctx context.Context, tenantID, entityID string, attempt int) error {
	return e.record(ctx, ActionVersionConflict, SeverityWarning, OutcomeFailure,
		ResourceVersion, entityID, CategoryVersion, nil,
		"tenant_id", tenantID,
		"attempt", attempt,
	)
}

// ── Run lifecycle hooks ─────────────────────────────

// OnRunStarted implements ext.RunStarted.
func (e *Extension) OnRunStarted(ctx context.Context, run *pipeline.Run) error {
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess,
		ResourceRun, run.ID.String(), CategoryRun, nil,
		"job_name", run.JobName,
		"tenant_id", run.TenantID,
	)
}

// OnRunCompleted implements ext.RunCompleted.
func (e *Extension) OnRunCompleted(ctx context.Context, run *pipeline.Run, elapsed time.Duration) error {
	return e.record(ctx, ActionRunCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRun, run.ID.String(), CategoryRun, nil,
		"job_name", run.JobName,
		"tenant_id", run.TenantID,
		"read_count", run.Summary.ReadCount,
		"write_count", run.Summary.WriteCount,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnRunFailed implements ext.RunFailed.
func (e *Extension) OnRunFailed(ctx context.Context, run *pipeline.Run, runErr error) error {
	return e.record(ctx, ActionRunFailed, SeverityCritical, OutcomeFailure,
		ResourceRun, run.ID.String(), CategoryRun, runErr,
		"job_name", run.JobName,
		"tenant_id", run.TenantID,
		"read_count", run.Summary.ReadCount,
		"write_count", run.Summary.WriteCount,
	)
}

// OnChunkCommitted implements ext.ChunkCommitted.
func (e *Extension) OnChunkCommitted(ctx context.Context, run *pipeline.Run, chunkIndex, rows int) error {
	return e.record(ctx, ActionChunkCommitted, SeverityInfo, OutcomeSuccess,
		ResourceRun, run.ID.String(), CategoryRun, nil,
		"job_name", run.JobName,
		"chunk_index", chunkIndex,
		"rows", rows,
	)
}

// OnArtifactFlushed implements ext.ArtifactFlushed.
func (e *Extension) OnArtifactFlushed(ctx context.Context, run *pipeline.Run, key string, rows int) error {
	return e.record(ctx, ActionArtifactFlushed, SeverityInfo, OutcomeSuccess,
		ResourceRun, run.ID.String(), CategoryRun, nil,
		"job_name", run.JobName,
		"artifact_key", key,
		"rows", rows,
	)
}

// ── Layout lifecycle hooks ──────────────────────────

// OnLayoutResolved implements ext.LayoutResolved.
func (e *Extension) OnLayoutResolved(ctx context.Context, req layout.Request, res layout.Resolution) error {
	severity := SeverityInfo
	if res.Metadata.Default {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionLayoutResolved, severity, OutcomeSuccess,
		ResourceLayout, res.Metadata.LayoutName, CategoryLayout, nil,
		"context", req.Context,
		"object_type", req.ObjectType,
		"market_context", req.MarketContext,
		"tenant_id", req.TenantID,
		"role", req.Role,
		"default", res.Metadata.Default,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
