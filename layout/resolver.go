package layout

import (
	"github.com/prabhatkmr/beema-sub003/value"
)

// DefaultLayoutName tags the fallback layout returned when no candidate
// is eligible.
const DefaultLayoutName = "default"

// Resolve picks the best candidate for the request. It is side-effect-free
// and deterministic: equal inputs always produce equal output.
//
// Eligibility: a candidate must be enabled, match context, objectType and
// marketContext exactly, and match tenant and role either exactly or by
// wildcard (unset constraint).
//
// Ranking among eligible candidates, in order:
//  1. Exact tenant match beats a tenant wildcard, regardless of priority.
//  2. Exact role match beats a role wildcard.
//  3. Lower Priority wins.
//  4. Higher Version wins.
//
// A final name comparison breaks any remaining tie so the result never
// depends on input order. No eligible candidate yields the default layout,
// never an error.
func Resolve(req Request, candidates []*Candidate) Resolution {
	var best *Candidate
	for _, c := range candidates {
		if !eligible(req, c) {
			continue
		}
		if best == nil || outranks(req, c, best) {
			best = c
		}
	}

	if best == nil {
		return DefaultResolution(req)
	}

	return Resolution{
		Schema: best.Schema.Clone(),
		Metadata: Metadata{
			LayoutName: best.Name,
			Context:    best.Context,
			ObjectType: best.ObjectType,
		},
	}
}

// DefaultResolution returns the deterministic fallback layout for a request.
func DefaultResolution(req Request) Resolution {
	return Resolution{
		Schema: value.Object{
			"type": value.String("auto"),
		},
		Metadata: Metadata{
			LayoutName: DefaultLayoutName,
			Context:    req.Context,
			ObjectType: req.ObjectType,
			Default:    true,
		},
	}
}

func eligible(req Request, c *Candidate) bool {
	if !c.Enabled {
		return false
	}
	if c.Context != req.Context || c.ObjectType != req.ObjectType || c.MarketContext != req.MarketContext {
		return false
	}
	if c.TenantID != "" && c.TenantID != req.TenantID {
		return false
	}
	if c.Role != "" && c.Role != req.Role {
		return false
	}
	return true
}

// outranks reports whether a beats b for the request. Both must be eligible.
func outranks(req Request, a, b *Candidate) bool {
	// Tenant-exact beats tenant-wildcard regardless of priority.
	aTenant := a.TenantID == req.TenantID && a.TenantID != ""
	bTenant := b.TenantID == req.TenantID && b.TenantID != ""
	if aTenant != bTenant {
		return aTenant
	}

	aRole := a.Role == req.Role && a.Role != ""
	bRole := b.Role == req.Role && b.Role != ""
	if aRole != bRole {
		return aRole
	}

	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Version != b.Version {
		return a.Version > b.Version
	}

	// Last-resort determinism tie-break.
	return a.Name < b.Name
}
