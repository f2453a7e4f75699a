// Package pipeline executes configuration-driven batch jobs: a
// parameterized read query, a pure per-row transform, and a parameterized
// write (or columnar export), processed in chunks with one transaction per
// chunk and strict no-skip semantics.
//
// A [Spec] describes a job entirely through stored configuration. The
// [Runner] streams rows from a [RowStore], applies the resolved
// [Transform] to each row, and hands complete chunks to a sink — either
// the write query or an export writer. A chunk commits whole or not at
// all; a failed chunk aborts the job and leaves previously committed
// chunks in place.
package pipeline
