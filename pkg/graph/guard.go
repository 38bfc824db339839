// Package graph keeps the work-unit dependency graph of a line build acyclic.
// Every mutation that changes edges goes through ValidateNewEdge before the
// caller swaps in the updated build.
package graph

import (
	"slices"

	"github.com/dukex/lineforge/pkg/models"
)

// HasPath reports whether to is reachable from from by following dependsOn
// edges. The walk keeps a visited set so it terminates on malformed input and
// runs in O(V+E).
func HasPath(build *models.LineBuild, from, to string) bool {
	if build == nil {
		return false
	}

	deps := adjacency(build)
	visited := make(map[string]bool, len(deps))
	stack := slices.Clone(deps[from])

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == to {
			return true
		}

		if visited[current] {
			continue
		}

		visited[current] = true

		stack = append(stack, deps[current]...)
	}

	return false
}

// ValidateNewEdge checks that candidateDeps may become the dependency list of
// unitID. It has no side effects; the caller applies the replacement.
func ValidateNewEdge(build *models.LineBuild, unitID string, candidateDeps []string) error {
	if slices.Contains(candidateDeps, unitID) {
		return &GraphError{Kind: KindSelfReference, UnitID: unitID, DependencyID: unitID}
	}

	for _, dep := range candidateDeps {
		if build == nil || !build.HasWorkUnit(dep) {
			return &GraphError{Kind: KindUnknownDependency, UnitID: unitID, DependencyID: dep}
		}
	}

	// Reachability from the candidate back to the unit closes a cycle once
	// the candidate becomes a predecessor.
	for _, dep := range candidateDeps {
		if HasPath(build, dep, unitID) {
			return &GraphError{Kind: KindCycle, UnitID: unitID, DependencyID: dep}
		}
	}

	return nil
}

// CascadeRemoval returns a copy of build in which no work unit depends on
// removedID. It never fails and is a no-op for ids nobody depends on.
func CascadeRemoval(build *models.LineBuild, removedID string) *models.LineBuild {
	out := build.Clone()

	for i := range out.WorkUnits {
		out.WorkUnits[i].DependsOn = slices.DeleteFunc(out.WorkUnits[i].DependsOn, func(id string) bool {
			return id == removedID
		})
	}

	return out
}

// FindCycle returns the ids of one dependency cycle in build, or nil. It is
// used to vet whole builds loaded from documents, which never went through
// ValidateNewEdge.
func FindCycle(build *models.LineBuild) []string {
	deps := adjacency(build)
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		visiting[id] = true
		path = append(path, id)

		for _, dep := range deps[id] {
			if visiting[dep] {
				start := slices.Index(path, dep)

				return append(slices.Clone(path[start:]), dep)
			}

			if !visited[dep] {
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]

		delete(visiting, id)

		visited[id] = true

		return nil
	}

	for _, w := range build.WorkUnits {
		if !visited[w.ID] {
			if cycle := visit(w.ID); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

func adjacency(build *models.LineBuild) map[string][]string {
	deps := make(map[string][]string, len(build.WorkUnits))
	for _, w := range build.WorkUnits {
		deps[w.ID] = append(deps[w.ID], w.DependsOn...)
	}

	return deps
}
