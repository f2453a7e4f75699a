package version

import (
	"context"
	"time"
)

// HistoryOrder selects the audit-trail ordering of ListHistory.
//
// The platform deliberately supports two orderings: the canonical audit
// order (valid-time ascending) and newest-knowledge-first (transaction-time
// descending). Each consumer picks one and sticks to it; there is no
// universal order.
type HistoryOrder int

const (
	// OrderValidFromAsc is the canonical audit order: validFrom ascending,
	// transactionTime ascending as the secondary key.
	OrderValidFromAsc HistoryOrder = iota

	// OrderTransactionDesc lists versions by transactionTime descending —
	// what the system learned most recently comes first.
	OrderTransactionDesc
)

// Store defines the persistence contract for bitemporal version rows.
//
// Implementations must enforce: at most one row per (tenant, entity) key
// with Current=true and ValidTo=nil; closed rows are immutable; rows are
// never physically deleted.
type Store interface {
	// InsertFirst persists the first version of an entity. Fails with
	// beema.ErrVersionExists when a current row already exists for the
	// (tenant, entity) key.
	InsertFirst(ctx context.Context, rec *Record) error

	// Supersede atomically closes the current row of next's (tenant,
	// entity) key (ValidTo = next.ValidFrom, Current = false) and inserts
	// next as the new current row. The close-and-insert is indivisible:
	// concurrent callers racing on the same key serialize, and exactly one
	// succeeds per logical step — the loser fails with
	// beema.ErrVersionConflict (retryable).
	//
	// When no current row exists the call fails with
	// beema.ErrVersionNotFound. Implementations clamp next.ValidFrom up to
	// the prior row's ValidFrom so valid time never goes backwards.
	Supersede(ctx context.Context, next *Record) error

	// GetCurrent returns the current row for the key, or
	// beema.ErrVersionNotFound.
	GetCurrent(ctx context.Context, tenantID, entityID string) (*Record, error)

	// GetAsOf reconstructs the version that was effective at validAt as
	// recorded by knownAt: among rows whose valid-time window contains
	// validAt, the one with the latest TransactionTime <= knownAt.
	// Returns beema.ErrVersionNotFound when no such row exists.
	GetAsOf(ctx context.Context, tenantID, entityID string, validAt, knownAt time.Time) (*Record, error)

	// ListHistory returns every version of the entity in the given order.
	ListHistory(ctx context.Context, tenantID, entityID string, order HistoryOrder) ([]*Record, error)

	// ListCurrent returns all current rows for a tenant, ordered by
	// EntityID. Used for bulk export.
	ListCurrent(ctx context.Context, tenantID string) ([]*Record, error)
}
