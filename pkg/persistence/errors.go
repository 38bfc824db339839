package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrBuildNotFound indicates a line build was not found by the given identifier.
	ErrBuildNotFound = errors.New("line build not found")

	// ErrBuildAlreadyExists indicates a line build with the same identifier already exists.
	ErrBuildAlreadyExists = errors.New("line build already exists")

	// ErrVersionConflict indicates the stored build moved past the expected version.
	ErrVersionConflict = errors.New("line build version conflict")
)

// BuildError wraps line build errors with additional context.
type BuildError struct {
	Op      string // Operation being performed (e.g., "Get", "Update")
	BuildID string // Line build ID
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *BuildError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for line build %s: %s (%v)", e.Op, e.BuildID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for line build %s: %v", e.Op, e.BuildID, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for line build errors.
func (e *BuildError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewBuildError creates a new line build error with context.
func NewBuildError(op, buildID string, err error) *BuildError {
	return &BuildError{
		Op:      op,
		BuildID: buildID,
		Err:     err,
	}
}

// IsBuildNotFound checks if an error indicates a line build was not found.
func IsBuildNotFound(err error) bool {
	return errors.Is(err, ErrBuildNotFound)
}

// IsVersionConflict checks if an error indicates a lost compare-and-swap.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
