// Package ext defines the extension system for Beema.
//
// Extensions are notified of lifecycle events and can react to them —
// recording metrics, emitting webhooks, writing audit logs, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnRunCompleted(ctx context.Context, run *pipeline.Run, elapsed time.Duration) error {
//	    log.Printf("run %s completed in %s", run.ID, elapsed)
//	    return nil
//	}
//
// # Version Lifecycle Hooks
//
//   - [VersionCreated] — first version of an entity was stored
//   - [VersionSuperseded] — a new version closed out the prior one
//   - [VersionConflict] — a supersede lost a race and will be retried
//
// # Run Lifecycle Hooks
//
//   - [RunStarted] — a job run began executing
//   - [RunCompleted] — a run finished successfully
//   - [RunFailed] — a run failed or was cancelled
//   - [ChunkCommitted] — a chunk committed or flushed durably
//   - [ArtifactFlushed] — an export artifact landed in blob storage
//
// # Other Hooks
//
//   - [LayoutResolved] — a layout request was resolved
//   - [Shutdown] — the platform is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
