// Package audithook is a beema extension that bridges lifecycle events
// to an immutable audit trail backend.
//
// Every version, run, and layout lifecycle hook emits a structured audit
// event through the [Recorder] interface. The extension assigns
// appropriate severity levels (info for normal operations, warning for
// lost supersede races, critical for failed runs) and rich metadata
// (tenant, entity key, row counts, errors).
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return trail.Append(ctx, evt.Action, evt.Resource, evt.ResourceID, evt.Metadata)
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionVersionSuperseded,
//	        audithook.ActionRunFailed,
//	    ),
//	)
package audithook
