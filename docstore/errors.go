package docstore

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an update targets a missing document.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when a create targets an identity that is taken.
	// The ledger relies on it as a compare-and-swap on version identities.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrInvalidQuery is returned for queries outside the supported capability set.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidPath is returned for malformed collection paths or identities.
	ErrInvalidPath = errors.New("invalid path")
)

// IsConflict returns true if the error is an identity collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
