package version

import (
	"time"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/id"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Record is one bitemporal version row of a business entity.
//
// The persisted key is (TenantID, EntityID, ValidFrom, TransactionTime),
// unique. Current is a derived, maintained flag — the open row is the one
// with Current=true and ValidTo=nil, and backends keep it consistent with
// the temporal columns.
type Record struct {
	beema.Entity

	ID         id.VersionID `json:"id"`
	TenantID   string       `json:"tenant_id"`
	EntityID   string       `json:"entity_id"`
	EntityType string       `json:"entity_type"`
	Status     string       `json:"status"`
	Payload    value.Object `json:"payload"`

	// ValidFrom/ValidTo bound the valid-time window. A nil ValidTo means
	// the window is still open.
	ValidFrom time.Time  `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`

	// TransactionTime is when the system recorded this version.
	TransactionTime time.Time `json:"transaction_time"`

	// Current marks the row presently in effect for its (tenant, entity) key.
	Current bool `json:"current"`
}

// Open reports whether the record's valid-time window is still open.
func (r *Record) Open() bool { return r.ValidTo == nil }

// Clone returns a deep copy, including the payload tree.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Payload = r.Payload.Clone()
	if r.ValidTo != nil {
		t := *r.ValidTo
		cp.ValidTo = &t
	}
	return &cp
}

// ContainsValid reports whether the valid-time window contains t:
// ValidFrom <= t < ValidTo, with a nil ValidTo treated as unbounded.
func (r *Record) ContainsValid(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || t.Before(*r.ValidTo)
}
