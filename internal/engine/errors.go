package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed parameters or inconsistent batches.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingData is returned when the ranker is asked about an id it has no
	// quality entry for. It indicates a programming error in the caller.
	ErrMissingData = errors.New("missing data")
)

// DimensionMismatchError reports an item whose embedding dimension differs
// from the first item in the batch. It unwraps to ErrInvalidInput.
type DimensionMismatchError struct {
	ID       string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch for %q: expected %d, got %d", e.ID, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrInvalidInput }

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
