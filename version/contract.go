package version

import (
	"fmt"
	"slices"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Contract declares the required shape of an entity type's payload.
// Entity services register one contract per entity type; the Service
// rejects payloads that violate it before anything reaches the store.
type Contract struct {
	// EntityType names the entity this contract covers, e.g. "submission".
	EntityType string

	// Required lists dotted payload paths that must resolve to a
	// non-null value.
	Required []string

	// Statuses lists the allowed status values. Empty means any status.
	Statuses []string
}

// Validate checks status and payload against the contract.
// Violations are reported as beema.ErrValidation.
func (c *Contract) Validate(status string, payload value.Object) error {
	if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, status) {
		return fmt.Errorf("%w: status %q not allowed for %s", beema.ErrValidation, status, c.EntityType)
	}
	for _, path := range c.Required {
		v, ok := payload.Get(path)
		if !ok || v.IsNull() {
			return fmt.Errorf("%w: %s requires field %q", beema.ErrValidation, c.EntityType, path)
		}
	}
	return nil
}
