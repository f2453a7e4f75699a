package ext

import (
	"context"
	"time"

	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/version"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Version lifecycle hooks
// ──────────────────────────────────────────────────

// VersionCreated is called after the first version of an entity is stored.
type VersionCreated interface {
	OnVersionCreated(ctx context.Context, rec *version.Record) error
}

// VersionSuperseded is called after a new version closes out the prior one.
type VersionSuperseded interface {
	OnVersionSuperseded(ctx context.Context, rec *version.Record) error
}

// VersionConflict is called on each lost supersede race, before the retry.
type VersionConflict interface {
	OnVersionConflict(ctx context.Context, tenantID, entityID string, attempt int) error
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// RunStarted is called when a job run begins executing.
type RunStarted interface {
	OnRunStarted(ctx context.Context, run *pipeline.Run) error
}

// RunCompleted is called after a run finishes successfully.
type RunCompleted interface {
	OnRunCompleted(ctx context.Context, run *pipeline.Run, elapsed time.Duration) error
}

// RunFailed is called when a run fails or is cancelled.
type RunFailed interface {
	OnRunFailed(ctx context.Context, run *pipeline.Run, err error) error
}

// ChunkCommitted is called after each chunk commits or flushes.
type ChunkCommitted interface {
	OnChunkCommitted(ctx context.Context, run *pipeline.Run, chunkIndex, rows int) error
}

// ArtifactFlushed is called after an export chunk lands in blob storage.
type ArtifactFlushed interface {
	OnArtifactFlushed(ctx context.Context, run *pipeline.Run, key string, rows int) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// LayoutResolved is called after each layout resolution, including
// default fallbacks.
type LayoutResolved interface {
	OnLayoutResolved(ctx context.Context, req layout.Request, res layout.Resolution) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
