package pipeline

import (
	"fmt"

	beema "github.com/prabhatkmr/beema-sub003"
)

// ExportSpec selects the columnar-export writer variant and configures
// where its artifacts land.
type ExportSpec struct {
	// Prefix is the blob key prefix for this job's artifacts.
	Prefix string `json:"prefix"`

	// SheetName names the worksheet inside each exported workbook.
	// Defaults to "export".
	SheetName string `json:"sheet_name,omitempty"`
}

// Spec is a stored batch job definition. Everything the Runner needs is
// configuration: the queries, the transform reference, the chunk size,
// and the tenant the job is scoped to.
type Spec struct {
	beema.Entity

	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`

	// ReadQuery is the parameterized query producing the input rows.
	ReadQuery string `json:"read_query"`

	// Transform references the per-row transform: a registered transform
	// name, or an inline "lua:" script.
	Transform string `json:"transform"`

	// WriteQuery is the parameterized statement executed per transformed
	// row. Empty when Export is set.
	WriteQuery string `json:"write_query,omitempty"`

	// Export, when set, replaces the write stage with the columnar-export
	// writer.
	Export *ExportSpec `json:"export,omitempty"`

	// ChunkSize bounds the rows per transactional unit. Zero means the
	// runner default.
	ChunkSize int `json:"chunk_size,omitempty"`

	// Defaults are parameter values merged under trigger-time parameters.
	Defaults Params `json:"-"`

	Enabled bool `json:"enabled"`
}

// Validate reports a malformed spec as beema.ErrInvalidSpec.
func (s *Spec) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: missing name", beema.ErrInvalidSpec)
	case s.TenantID == "":
		return fmt.Errorf("%w: job %q has no tenant scope", beema.ErrInvalidSpec, s.Name)
	case s.ReadQuery == "":
		return fmt.Errorf("%w: job %q has no read query", beema.ErrInvalidSpec, s.Name)
	case s.Transform == "":
		return fmt.Errorf("%w: job %q has no transform", beema.ErrInvalidSpec, s.Name)
	case s.WriteQuery == "" && s.Export == nil:
		return fmt.Errorf("%w: job %q has neither write query nor export", beema.ErrInvalidSpec, s.Name)
	case s.WriteQuery != "" && s.Export != nil:
		return fmt.Errorf("%w: job %q has both write query and export", beema.ErrInvalidSpec, s.Name)
	case s.ChunkSize < 0:
		return fmt.Errorf("%w: job %q has negative chunk size", beema.ErrInvalidSpec, s.Name)
	}
	return nil
}
