/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability.
  The eligibility engine itself never returns errors; these belong to the
  stores, the payroll issuer and the API boundary.

ERROR CATEGORIES:
  1. Validation errors - Malformed tasks or periods rejected at the store boundary
  2. Issuance errors - Duplicate receipts for a collaborator and month
  3. Store errors - Missing records

USAGE:
    if errors.Is(err, generic.ErrAlreadyIssued) {
        // receipt for this month exists, nothing to do
    }

SEE ALSO:
  - store.go: Uses these errors
  - payroll/issuer.go: Wraps these errors with context
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned by receipt stores when a receipt
	// with the same idempotency key already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrAlreadyIssued is returned when payroll for a collaborator and month
	// was issued before. The existing receipt is returned alongside it.
	ErrAlreadyIssued = errors.New("receipt already issued for period")

	// ErrInvalidTask is returned when a task breaks its invariants.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidPeriod is returned when a month cannot be parsed.
	ErrInvalidPeriod = errors.New("invalid period")

	ErrTaskNotFound         = errors.New("task not found")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	ErrReceiptNotFound      = errors.New("receipt not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTaskError describes which invariant a task broke.
type InvalidTaskError struct {
	TaskID TaskID
	Reason string
}

func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task %q: %s", e.TaskID, e.Reason)
}

func (e *InvalidTaskError) Unwrap() error {
	return ErrInvalidTask
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTask) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsConflict returns true if the write collided with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyIssued) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrCollaboratorNotFound) ||
		errors.Is(err, ErrReceiptNotFound)
}
