// Package layout selects a UI layout definition from a candidate set.
//
// Resolution is a pure function: the same request against the same
// candidate set always yields the same result, which makes resolved
// layouts safe to cache ahead of time. There is no failure mode — when
// nothing matches, a deterministic default layout is returned instead.
package layout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Candidate is one configured layout definition.
type Candidate struct {
	beema.Entity

	ID            id.LayoutID  `json:"id"`
	Name          string       `json:"name"`
	Context       string       `json:"context"`
	ObjectType    string       `json:"object_type"`
	MarketContext string       `json:"market_context"`

	// TenantID and Role are match constraints; empty means wildcard
	// (the candidate applies to any tenant / any role).
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`

	Schema   value.Object `json:"schema"`
	Priority int          `json:"priority"`
	Version  int          `json:"version"`
	Enabled  bool         `json:"enabled"`
}

// Request identifies the layout being asked for.
type Request struct {
	Context       string `json:"context"`
	ObjectType    string `json:"object_type"`
	MarketContext string `json:"market_context"`
	TenantID      string `json:"tenant_id,omitempty"`
	Role          string `json:"role,omitempty"`
}

// CacheKey returns a stable digest of the request, suitable as a cache key.
func (r Request) CacheKey() string {
	h := sha256.New()
	for _, part := range []string{r.Context, r.ObjectType, r.MarketContext, r.TenantID, r.Role} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "layout:" + hex.EncodeToString(h.Sum(nil))
}

// Metadata echoes the identity of the resolved layout.
type Metadata struct {
	LayoutName string `json:"layout_name"`
	Context    string `json:"context"`
	ObjectType string `json:"object_type"`

	// Default is true when no candidate was eligible and the fallback
	// layout was returned.
	Default bool `json:"default"`
}

// Resolution is the outcome of resolving a request.
type Resolution struct {
	Schema   value.Object `json:"schema"`
	Metadata Metadata     `json:"metadata"`
}

// CandidateStore loads the configured candidate set.
type CandidateStore interface {
	// ListCandidates returns every candidate (enabled or not) for the
	// exact (context, objectType, marketContext) triple.
	ListCandidates(ctx context.Context, layoutContext, objectType, marketContext string) ([]*Candidate, error)

	// PutCandidate creates or replaces a candidate by ID.
	PutCandidate(ctx context.Context, c *Candidate) error
}

// Cache stores resolved layouts keyed by Request.CacheKey. Resolution is
// referentially transparent, so cached entries only go stale when the
// candidate set changes; TTL bounds that window.
type Cache interface {
	GetResolution(ctx context.Context, key string) (*Resolution, bool, error)
	PutResolution(ctx context.Context, key string, res *Resolution, ttl time.Duration) error
}
