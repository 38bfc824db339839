package graph

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an edge change was rejected.
type ErrorKind string

const (
	KindSelfReference     ErrorKind = "self_reference"
	KindUnknownDependency ErrorKind = "unknown_dependency"
	KindCycle             ErrorKind = "cycle"
)

var (
	// ErrSelfReference is matched by errors.Is for self-referencing dependency lists.
	ErrSelfReference = errors.New("work unit cannot depend on itself")
	// ErrUnknownDependency is matched by errors.Is when a dependency id is not in the build.
	ErrUnknownDependency = errors.New("dependency does not exist")
	// ErrCycle is matched by errors.Is when a dependency would close a cycle.
	ErrCycle = errors.New("dependency would create a cycle")
)

// GraphError rejects a dependency change. Error() is meant to be shown to the
// person editing the build as-is.
type GraphError struct {
	Kind         ErrorKind
	UnitID       string
	DependencyID string
}

func (e *GraphError) Error() string {
	switch e.Kind {
	case KindSelfReference:
		return fmt.Sprintf("work unit %q cannot depend on itself", e.UnitID)
	case KindUnknownDependency:
		return fmt.Sprintf("work unit %q depends on unknown work unit %q", e.UnitID, e.DependencyID)
	case KindCycle:
		return fmt.Sprintf("making %q depend on %q would create a circular dependency", e.UnitID, e.DependencyID)
	default:
		return fmt.Sprintf("invalid dependency for work unit %q", e.UnitID)
	}
}

func (e *GraphError) Unwrap() error {
	switch e.Kind {
	case KindSelfReference:
		return ErrSelfReference
	case KindUnknownDependency:
		return ErrUnknownDependency
	case KindCycle:
		return ErrCycle
	default:
		return nil
	}
}

// IsGraphError reports whether err is a rejected dependency change.
func IsGraphError(err error) bool {
	var graphErr *GraphError

	return errors.As(err, &graphErr)
}
