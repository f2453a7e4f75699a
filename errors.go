package beema

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("beema: no store configured")
	ErrStoreClosed = errors.New("beema: store closed")
	ErrStore       = errors.New("beema: storage failure")

	// Not found errors.
	ErrVersionNotFound   = errors.New("beema: no current version")
	ErrJobNotFound       = errors.New("beema: job spec not found")
	ErrCronNotFound      = errors.New("beema: cron entry not found")
	ErrCandidateNotFound = errors.New("beema: layout candidate not found")
	ErrArtifactNotFound  = errors.New("beema: artifact not found")

	// Conflict errors.
	ErrVersionExists   = errors.New("beema: current version already exists")
	ErrVersionConflict = errors.New("beema: concurrent version race")
	ErrCronExists      = errors.New("beema: cron entry name already registered")

	// Validation errors.
	ErrValidation     = errors.New("beema: payload validation failed")
	ErrSchemaMismatch = errors.New("beema: export schema mismatch")

	// Config errors.
	ErrJobDisabled = errors.New("beema: job spec disabled")
	ErrInvalidSpec = errors.New("beema: malformed job spec")

	// Admission errors.
	ErrLimitExceeded = errors.New("beema: tenant run limit exceeded")
)

// IsRetryable reports whether err is a transient conflict that may succeed
// when retried against the re-derived current row.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
