// Package version implements bitemporal entity versioning: every business
// entity (agreement, submission, policy) is stored as an append-only chain
// of version rows carrying both valid time (when the fact was true) and
// transaction time (when the system learned it).
//
// A [Record] is one version row. The [Store] contract defines the atomic
// persistence operations; [Service] layers payload validation and bounded
// conflict retry on top. At any instant at most one row per
// (tenant, entity) key is current and open — the store backends enforce
// this, the service never works around it.
package version
