package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type versionCreatedEntry struct {
	name string
	hook VersionCreated
}

type versionSupersededEntry struct {
	name string
	hook VersionSuperseded
}

type versionConflictEntry struct {
	name string
	hook VersionConflict
}

type runStartedEntry struct {
	name string
	hook RunStarted
}

type runCompletedEntry struct {
	name string
	hook RunCompleted
}

type runFailedEntry struct {
	name string
	hook RunFailed
}

type chunkCommittedEntry struct {
	name string
	hook ChunkCommitted
}

type artifactFlushedEntry struct {
	name string
	hook ArtifactFlushed
}

type layoutResolvedEntry struct {
	name string
	hook LayoutResolved
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	versionCreated    []versionCreatedEntry
	versionSuperseded []versionSupersededEntry
	versionConflict   []versionConflictEntry
	runStarted        []runStartedEntry
	runCompleted      []runCompletedEntry
	runFailed         []runFailedEntry
	chunkCommitted    []chunkCommittedEntry
	artifactFlushed   []artifactFlushedEntry
	layoutResolved    []layoutResolvedEntry
	shutdown          []shutdownEntry
}

var (
	_ version.Emitter = (*Registry)(nil)
	_ pipeline.Emitter = (*Registry)(nil)
)

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(VersionCreated); ok {
		r.versionCreated = append(r.versionCreated, versionCreatedEntry{name, h})
	}
	if h, ok := e.(VersionSuperseded); ok {
		r.versionSuperseded = append(r.versionSuperseded, versionSupersededEntry{name, h})
	}
	if h, ok := e.(VersionConflict); ok {
		r.versionConflict = append(r.versionConflict, versionConflictEntry{name, h})
	}
	if h, ok := e.(RunStarted); ok {
		r.runStarted = append(r.runStarted, runStartedEntry{name, h})
	}
	if h, ok := e.(RunCompleted); ok {
		r.runCompleted = append(r.runCompleted, runCompletedEntry{name, h})
	}
	if h, ok := e.(RunFailed); ok {
		r.runFailed = append(r.runFailed, runFailedEntry{name, h})
	}
	if h, ok := e.(ChunkCommitted); ok {
		r.chunkCommitted = append(r.chunkCommitted, chunkCommittedEntry{name, h})
	}
	if h, ok := e.(ArtifactFlushed); ok {
		r.artifactFlushed = append(r.artifactFlushed, artifactFlushedEntry{name, h})
	}
	if h, ok := e.(LayoutResolved); ok {
		r.layoutResolved = append(r.layoutResolved, layoutResolvedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Version event emitters
// ──────────────────────────────────────────────────

// EmitVersionCreated notifies all extensions that implement VersionCreated.
func (r *Registry) EmitVersionCreated(ctx context.Context, rec *version.Record) {
	for _, e := range r.versionCreated {
		if err := e.hook.OnVersionCreated(ctx, rec); err != nil {
			r.logHookError("OnVersionCreated", e.name, err)
		}
	}
}

// EmitVersionSuperseded notifies all extensions that implement VersionSuperseded.
func (r *Registry) EmitVersionSuperseded(ctx context.Context, rec *version.Record) {
	for _, e := range r.versionSuperseded {
		if err := e.hook.OnVersionSuperseded(ctx, rec); err != nil {
			r.logHookError("OnVersionSuperseded", e.name, err)
		}
	}
}

// EmitVersionConflict notifies all extensions that implement VersionConflict.
func (r *Registry) EmitVersionConflict(ctx context.Context, tenantID, entityID string, attempt int) {
	for _, e := range r.versionConflict {
		if err := e.hook.OnVersionConflict(ctx, tenantID, entityID, attempt); err != nil {
			r.logHookError("OnVersionConflict", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Run event emitters
// ──────────────────────────────────────────────────

// EmitRunStarted notifies all extensions that implement RunStarted.
func (r *Registry) EmitRunStarted(ctx context.Context, run *pipeline.Run) {
	for _, e := range r.runStarted {
		if err := e.hook.OnRunStarted(ctx, run); err != nil {
			r.logHookError("OnRunStarted", e.name, err)
		}
	}
}

// EmitRunCompleted notifies all extensions that implement RunCompleted.
func (r *Registry) EmitRunCompleted(ctx context.Context, run *pipeline.Run, elapsed time.Duration) {
	for _, e := range r.runCompleted {
		if err := e.hook.OnRunCompleted(ctx, run, elapsed); err != nil {
			r.logHookError("OnRunCompleted", e.name, err)
		}
	}
}

// EmitRunFailed notifies all extensions that implement RunFailed.
func (r *Registry) EmitRunFailed(ctx context.Context, run *pipeline.Run, runErr error) {
	for _, e := range r.runFailed {
		if err := e.hook.OnRunFailed(ctx, run, runErr); err != nil {
			r.logHookError("OnRunFailed", e.name, err)
		}
	}
}

// EmitChunkCommitted notifies all extensions that implement ChunkCommitted.
func (r *Registry) EmitChunkCommitted(ctx context.Context, run *pipeline.Run, chunkIndex, rows int) {
	for _, e := range r.chunkCommitted {
		if err := e.hook.OnChunkCommitted(ctx, run, chunkIndex, rows); err != nil {
			r.logHookError("OnChunkCommitted", e.name, err)
		}
	}
}

// EmitArtifactFlushed notifies all extensions that implement ArtifactFlushed.
func (r *Registry) EmitArtifactFlushed(ctx context.Context, run *pipeline.Run, key string, rows int) {
	for _, e := range r.artifactFlushed {
		if err := e.hook.OnArtifactFlushed(ctx, run, key, rows); err != nil {
			r.logHookError("OnArtifactFlushed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitLayoutResolved notifies all extensions that implement LayoutResolved.
func (r *Registry) EmitLayoutResolved(ctx context.Context, req layout.Request, res layout.Resolution) {
	for _, e := range r.layoutResolved {
		if err := e.hook.OnLayoutResolved(ctx, req, res); err != nil {
			r.logHookError("OnLayoutResolved", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block callers.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
