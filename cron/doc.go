// Package cron provides scheduled triggering of batch jobs.
//
// Cron entries are persisted in the store and evaluated by a single
// in-process [Scheduler]. Running multiple scheduler instances against
// the same store is not supported.
//
// # Entry
//
// An [Entry] represents a recurring job trigger:
//   - Schedule: standard cron expression (e.g., "0 2 * * *") or a
//     descriptor like "@every 30m"
//   - JobName: the job spec to trigger when due
//   - TenantID: the tenant the run executes under
//   - Params: static parameters merged into every triggered run
//   - Enabled: whether the entry fires
//
// # Scheduler
//
// The [Scheduler] evaluates due entries on every tick and triggers them
// concurrently. A failed trigger is logged and retried on the entry's
// next due time; it never stops the scheduler or other entries.
package cron
