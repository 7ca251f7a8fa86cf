// Package vecerr defines the error taxonomy shared by the index core and the
// serving layer. Callers classify failures with errors.Is / errors.As; the
// HTTP layer owns the mapping to status codes.
package vecerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not match
	// the configured dimension of the store or index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidArgument is returned for malformed parameters (k <= 0,
	// k above the configured cap, m <= 0, and similar).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when an id lookup falls outside the store
	// bounds. A well-formed graph never surfaces this to callers.
	ErrNotFound = errors.New("not found")

	// ErrIndexUnavailable is returned when no index has been loaded yet, or
	// a load is still in progress.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrCorruptArtifact is returned when a persisted index fails structural
	// validation during load.
	ErrCorruptArtifact = errors.New("corrupt index artifact")
)

// DimensionError carries the expected and actual vector lengths. It unwraps
// to ErrDimensionMismatch.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }
