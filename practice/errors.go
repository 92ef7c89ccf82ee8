/*
errors.go - Centralized error taxonomy for the practice engine

PURPOSE:
  All error categories in one place so the services and the HTTP boundary
  agree on classification:

    VALIDATION  Bad input shape, unsupported import version, or an attempt
                to mutate a system-default template. Never touches the store.
    NOT_FOUND   A single-row lookup missed where the row was required.
    STORE       The underlying persistence call failed.

  Partial degradation inside the dashboard aggregator is NOT an error here:
  a failed sub-computation falls back to its zero value and is recorded on
  the snapshot itself (see dashboard.SectionFailure).

PROPAGATION:
  Store failures inside a dashboard sub-computation are swallowed locally.
  Store failures inside template operations always propagate; suggestion
  list correctness matters more than degrading gracefully there.

USAGE:
  if practice.IsValidation(err) { ... 400 ... }
  if practice.IsNotFound(err)   { ... 404 ... }

SEE ALSO:
  - dashboard/aggregator.go: degradation policy
  - api/handlers.go: error-to-status mapping
*/
package practice

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all input/contract violations.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a required single row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStore is the root of persistence failures (network, timeout,
	// constraint violation).
	ErrStore = errors.New("store operation failed")

	// ErrDuplicate marks a uniqueness-constraint violation. Always wrapped in
	// a StoreError; callers that treat "already there" as success (seeding,
	// import collision handling) check for it with IsDuplicate.
	ErrDuplicate = errors.New("duplicate key")

	// ErrSystemTemplate is returned when a caller tries to delete or edit a
	// system-default template row.
	ErrSystemTemplate = errors.New("system templates are immutable")

	// ErrUnsupportedVersion is returned when an import payload carries a
	// version tag this build does not understand. No partial import happens.
	ErrUnsupportedVersion = errors.New("unsupported export version")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError wraps a failed persistence call with the operation and the
// collection it targeted.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap exposes both the ErrStore classification and the wrapped cause, so
// errors.Is can see sentinels like ErrDuplicate through a StoreError.
func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err is a client-input problem. System-template
// mutations and version mismatches classify as validation: the request was
// well-formed but violates the contract, and retrying will not help.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrSystemTemplate) ||
		errors.Is(err, ErrUnsupportedVersion)
}

// IsNotFound reports whether err indicates a missing required row.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStore reports whether err came from the persistence layer.
func IsStore(err error) bool { return errors.Is(err, ErrStore) }

// IsDuplicate reports whether err is a uniqueness-constraint violation.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
