// Package blob stores export artifacts by key.
//
// A key is a slash-separated path such as
// "exports/run_abc/chunk-0003-9f1c.xlsx". Backends are content-agnostic;
// the export writer decides the layout.
package blob

import (
	"context"
	"time"
)

// Info describes a stored artifact.
type Info struct {
	Key       string
	Size      int64
	CreatedAt time.Time
}

// Store is the artifact backend. Put is a single attempt; callers that
// want retry own the policy themselves.
type Store interface {
	// Put stores data under key, replacing any previous artifact.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the artifact bytes, or ErrArtifactNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns infos for every key with the given prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
}
