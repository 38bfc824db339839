package graph

import (
	"errors"
	"testing"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(id string, deps ...string) models.WorkUnit {
	return models.WorkUnit{
		ID:        id,
		Tags:      models.WorkUnitTags{Action: models.ActionPrep},
		DependsOn: deps,
	}
}

// chain: a <- b <- c, d standalone.
func chainBuild() *models.LineBuild {
	return &models.LineBuild{
		ID:     "build-1",
		ItemID: "item-1",
		Status: models.BuildStatusDraft,
		WorkUnits: []models.WorkUnit{
			unit("a"),
			unit("b", "a"),
			unit("c", "b"),
			unit("d"),
		},
	}
}

func TestHasPath(t *testing.T) {
	build := chainBuild()

	tests := []struct {
		name     string
		from, to string
		expected bool
	}{
		{name: "direct edge", from: "b", to: "a", expected: true},
		{name: "transitive edge", from: "c", to: "a", expected: true},
		{name: "reverse direction", from: "a", to: "c", expected: false},
		{name: "unrelated units", from: "d", to: "a", expected: false},
		{name: "not reflexive", from: "b", to: "b", expected: false},
		{name: "unknown source", from: "zz", to: "a", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasPath(build, tt.from, tt.to))
		})
	}
}

func TestHasPath_Transitive(t *testing.T) {
	build := chainBuild()
	ids := []string{"a", "b", "c", "d"}

	for _, a := range ids {
		for _, b := range ids {
			for _, c := range ids {
				if HasPath(build, a, b) && HasPath(build, b, c) {
					assert.True(t, HasPath(build, a, c), "%s->%s->%s", a, b, c)
				}
			}
		}
	}
}

func TestHasPath_TerminatesOnMalformedGraph(t *testing.T) {
	build := &models.LineBuild{
		WorkUnits: []models.WorkUnit{
			unit("a", "b"),
			unit("b", "a"),
			unit("c", "c", "ghost"),
		},
	}

	assert.True(t, HasPath(build, "a", "b"))
	assert.True(t, HasPath(build, "a", "a"))
	assert.False(t, HasPath(build, "a", "c"))
	assert.False(t, HasPath(build, "c", "a"))
	assert.False(t, HasPath(nil, "a", "b"))
}

func TestValidateNewEdge(t *testing.T) {
	tests := []struct {
		name         string
		unitID       string
		deps         []string
		expectedKind ErrorKind
		expectedIs   error
	}{
		{name: "valid new edge", unitID: "d", deps: []string{"c"}},
		{name: "valid replacement", unitID: "c", deps: []string{"a", "d"}},
		{name: "empty list", unitID: "b", deps: nil},
		{name: "self reference", unitID: "b", deps: []string{"a", "b"}, expectedKind: KindSelfReference, expectedIs: ErrSelfReference},
		{name: "unknown dependency", unitID: "b", deps: []string{"ghost"}, expectedKind: KindUnknownDependency, expectedIs: ErrUnknownDependency},
		{name: "direct cycle", unitID: "a", deps: []string{"b"}, expectedKind: KindCycle, expectedIs: ErrCycle},
		{name: "transitive cycle", unitID: "a", deps: []string{"d", "c"}, expectedKind: KindCycle, expectedIs: ErrCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewEdge(chainBuild(), tt.unitID, tt.deps)
			if tt.expectedIs == nil {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expectedIs)
			assert.True(t, IsGraphError(err))

			var graphErr *GraphError
			require.True(t, errors.As(err, &graphErr))
			assert.Equal(t, tt.expectedKind, graphErr.Kind)
			assert.Equal(t, tt.unitID, graphErr.UnitID)
		})
	}
}

func TestValidateNewEdge_NilBuild(t *testing.T) {
	require.NoError(t, ValidateNewEdge(nil, "a", nil))

	err := ValidateNewEdge(nil, "a", []string{"b"})
	assert.ErrorIs(t, err, ErrUnknownDependency)

	var graphErr *GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, "b", graphErr.DependencyID)
}

func TestValidateNewEdge_ReportsOffendingDependency(t *testing.T) {
	err := ValidateNewEdge(chainBuild(), "a", []string{"d", "c"})

	var graphErr *GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, "c", graphErr.DependencyID)
	assert.Equal(t, `making "a" depend on "c" would create a circular dependency`, err.Error())
}

func TestValidateNewEdge_AcceptedEdgesKeepGraphAcyclic(t *testing.T) {
	build := chainBuild()
	ids := []string{"a", "b", "c", "d"}

	for _, unitID := range ids {
		for _, dep := range ids {
			candidate := build.Clone()
			idx := candidate.IndexOf(unitID)
			deps := append(candidate.WorkUnits[idx].DependsOn, dep)

			if err := ValidateNewEdge(candidate, unitID, deps); err != nil {
				continue
			}

			candidate.WorkUnits[idx].DependsOn = deps

			assert.Nil(t, FindCycle(candidate), "%s -> %s", unitID, dep)

			for _, id := range ids {
				assert.False(t, HasPath(candidate, id, id), "self loop on %s", id)
			}
		}
	}
}

func TestCascadeRemoval(t *testing.T) {
	build := &models.LineBuild{
		WorkUnits: []models.WorkUnit{
			unit("a"),
			unit("b", "a"),
			unit("c", "a", "b"),
		},
	}

	out := CascadeRemoval(build, "a")

	assert.Empty(t, out.WorkUnits[1].DependsOn)
	assert.Equal(t, []string{"b"}, out.WorkUnits[2].DependsOn)
	assert.Equal(t, []string{"a", "b"}, build.WorkUnits[2].DependsOn, "input build must not be mutated")

	again := CascadeRemoval(out, "a")
	assert.Equal(t, out.WorkUnits, again.WorkUnits)
}

func TestFindCycle(t *testing.T) {
	assert.Nil(t, FindCycle(chainBuild()))

	cyclic := &models.LineBuild{
		WorkUnits: []models.WorkUnit{
			unit("a", "c"),
			unit("b", "a"),
			unit("c", "b"),
		},
	}

	cycle := FindCycle(cyclic)
	require.NotEmpty(t, cycle)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.Len(t, cycle, 4)
}
