package split

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSplit is returned when split inputs fail method-specific validation.
	ErrInvalidSplit = errors.New("invalid split")

	// ErrEmptyParticipants is returned when a split has no participants.
	ErrEmptyParticipants = errors.New("no participants to split among")
)

// InvalidSplitError explains why a split was rejected.
type InvalidSplitError struct {
	Method Method
	Reason string
}

func (e *InvalidSplitError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("invalid split: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s split: %s", e.Method, e.Reason)
}

func (e *InvalidSplitError) Unwrap() error {
	return ErrInvalidSplit
}

func invalid(method Method, format string, args ...any) error {
	return &InvalidSplitError{Method: method, Reason: fmt.Sprintf(format, args...)}
}
