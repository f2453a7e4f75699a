package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionVersionCreated    = "version.created"
	ActionVersionSuperseded = "version.superseded"
	ActionVersionConflict   = "version.conflict"
	ActionRunStarted        = "run.started"
	ActionRunCompleted      = "run.completed"
	ActionRunFailed         = "run.failed"
	ActionChunkCommitted    = "run.chunk_committed"
	ActionArtifactFlushed   = "run.artifact_flushed"
	ActionLayoutResolved    = "layout.resolved"
)

// Audit event categories group related actions.
const (
	CategoryVersion = "beema.version"
	CategoryRun     = "beema.run"
	CategoryLayout  = "beema.layout"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceVersion = "version_record"
	ResourceRun     = "run"
	ResourceLayout  = "layout"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionVersionCreated,
		ActionVersionSuperseded,
		ActionVersionConflict,
		ActionRunStarted,
		ActionRunCompleted,
		ActionRunFailed,
		ActionChunkCommitted,
		ActionArtifactFlushed,
		ActionLayoutResolved,
	}
}
