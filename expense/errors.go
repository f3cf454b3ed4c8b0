/*
errors.go - Error taxonomy for the expense ledger

PURPOSE:
  All ledger error types in one place. Each structured error unwraps to a
  sentinel so callers can branch with errors.Is and still pull details out
  with errors.As.

ERROR CATEGORIES:
  1. Validation errors - rejected before any write (client's fault)
  2. Lookup errors - the expense or version does not exist
  3. Concurrency errors - a revision raced another one
  4. Store errors - timeouts, partial writes, malformed persisted records

USAGE:
    view, err := writer.CreateExpense(ctx, in)
    var partial *expense.PartialWriteError
    if errors.As(err, &partial) {
        view, err = writer.CompleteExpense(ctx, partial.ExpenseID, in)
    }

SEE ALSO:
  - split/errors.go: InvalidSplitError, ErrEmptyParticipants
  - docstore/errors.go: store-level sentinels
  - api/handlers.go: maps these errors to HTTP status codes
*/
package expense

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/expense-ledger/split"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a summary or transaction version does not exist.
	ErrNotFound = errors.New("expense not found")

	// ErrStoreTimeout is returned when the store did not answer before the read deadline.
	ErrStoreTimeout = errors.New("store timeout")

	// ErrVersionConflict is returned when another revision already took the version.
	ErrVersionConflict = errors.New("version conflict")

	// ErrMalformedRecord is returned when a persisted document cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrPartialWrite is returned when the summary was written but its first
	// transaction was not.
	ErrPartialWrite = errors.New("partial write")

	// ErrInvalidRecord is returned when a summary or transaction breaks an invariant.
	ErrInvalidRecord = errors.New("invalid expense record")

	// ErrInvalidTransition is returned for status changes other than pending -> settled.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrIncompleteExpense is returned when revising an expense that has no version 1.
	ErrIncompleteExpense = errors.New("expense has no transaction")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	ExpenseID string
	Version   int // 0 when the summary itself is missing
}

func (e *NotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("expense %s version %d not found", e.ExpenseID, e.Version)
	}
	return fmt.Sprintf("expense %s not found", e.ExpenseID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreTimeoutError reports which read ran out of time.
type StoreTimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *StoreTimeoutError) Error() string {
	return fmt.Sprintf("%s: store did not respond within %s", e.Op, e.Timeout)
}

func (e *StoreTimeoutError) Unwrap() error { return ErrStoreTimeout }

// VersionConflictError is surfaced, never auto-merged.
type VersionConflictError struct {
	ExpenseID string
	Version   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("expense %s: version %d was written concurrently", e.ExpenseID, e.Version)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// MalformedRecordError points at the document and field that failed to decode.
type MalformedRecordError struct {
	Collection string
	ID         string
	Field      string
	Reason     string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s/%s: field %q: %s", e.Collection, e.ID, e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// PartialWriteError carries the identity of the summary that was created so
// the caller can retry the transaction write.
type PartialWriteError struct {
	ExpenseID string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("expense %s created without transaction: %v", e.ExpenseID, e.Err)
}

// Unwrap exposes both the sentinel and the store failure.
func (e *PartialWriteError) Unwrap() []error { return []error{ErrPartialWrite, e.Err} }

// ValidationError describes a broken record invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

func invalidField(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsClientError reports whether err was caused by bad input.
func IsClientError(err error) bool {
	return errors.Is(err, split.ErrInvalidSplit) ||
		errors.Is(err, split.ErrEmptyParticipants) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrIncompleteExpense)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether repeating the call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreTimeout) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrPartialWrite)
}
