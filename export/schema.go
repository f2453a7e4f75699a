// Package export encodes pipeline chunks as XLSX artifacts.
//
// The column layout is not configured: it is derived from the first
// non-empty record the run produces, then enforced for every record
// after it. A record that disagrees with the derived schema fails its
// whole chunk with ErrSchemaMismatch.
package export

import (
	"fmt"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Column is one derived column: a top-level row key and the value kind
// seen for it in the schema record.
type Column struct {
	Name string
	Kind value.Kind
}

// Schema is the column layout for one run's artifacts. Columns are
// sorted by name so the layout is independent of map iteration order.
type Schema struct {
	Columns []Column
}

// DeriveSchema builds the schema from the first record. It returns nil
// for an empty record so the caller can defer to a later one.
func DeriveSchema(row value.Object) *Schema {
	if len(row) == 0 {
		return nil
	}
	s := &Schema{Columns: make([]Column, 0, len(row))}
	for _, name := range row.Keys() {
		v, _ := row.Get(name)
		s.Columns = append(s.Columns, Column{Name: name, Kind: v.Kind()})
	}
	return s
}

// Validate checks a record against the derived layout. Missing columns
// export as blank cells; null values are always accepted. Extra columns
// and kind changes are mismatches.
func (s *Schema) Validate(row value.Object) error {
	kinds := make(map[string]value.Kind, len(s.Columns))
	for _, col := range s.Columns {
		kinds[col.Name] = col.Kind
	}
	for _, name := range row.Keys() {
		want, ok := kinds[name]
		if !ok {
			return fmt.Errorf("beema/export: unexpected column %q: %w", name, beema.ErrSchemaMismatch)
		}
		v, _ := row.Get(name)
		if v.IsNull() {
			continue
		}
		if v.Kind() != want {
			return fmt.Errorf("beema/export: column %q is %s, schema says %s: %w",
				name, v.Kind(), want, beema.ErrSchemaMismatch)
		}
	}
	return nil
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}
