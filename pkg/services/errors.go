// Package services applies edits and lifecycle transitions to line builds.
// Every operation returns a new build value and never mutates its input.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/lineforge/pkg/graph"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidWorkUnit  = errors.New("invalid work unit")
	ErrInvalidLineBuild = errors.New("invalid line build")
	ErrBuildNil         = errors.New("line build cannot be nil")

	// Lookup Errors (404 Not Found).
	ErrWorkUnitNotFound = errors.New("work unit not found")

	// Business Logic Conflicts (409 Conflict).
	ErrBuildNotDraft     = errors.New("line build is not a draft")
	ErrBuildNotActive    = errors.New("line build is not active")
	ErrBuildAlreadyDraft = errors.New("line build is already a draft")
	ErrDuplicateWorkUnit = errors.New("work unit id already exists")
	ErrPromotionBlocked  = errors.New("promotion blocked by validation")
	ErrStaleVersion      = errors.New("line build was modified concurrently")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWorkUnit) ||
		errors.Is(err, ErrInvalidLineBuild) ||
		errors.Is(err, ErrBuildNil) ||
		graph.IsGraphError(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkUnitNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrBuildNotDraft) ||
		errors.Is(err, ErrBuildNotActive) ||
		errors.Is(err, ErrBuildAlreadyDraft) ||
		errors.Is(err, ErrDuplicateWorkUnit) ||
		errors.Is(err, ErrPromotionBlocked) ||
		errors.Is(err, ErrStaleVersion)
}

func newError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// graphError wraps a guard rejection; the guard's message is the user-facing reason.
func graphError(op string, err error) *ServiceError {
	var ge *graph.GraphError
	if errors.As(err, &ge) {
		return newError(op, "graph_"+string(ge.Kind), ge.Error(), err)
	}

	return newError(op, "graph_error", err.Error(), err)
}
