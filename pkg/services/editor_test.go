package services

import (
	"testing"
	"time"

	"github.com/dukex/lineforge/pkg/graph"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	chef     = models.Actor{Name: "chef"}
)

func newTestEditor() *Editor {
	return NewEditor(nil).WithClock(func() time.Time { return fixedNow })
}

func prep(id string, deps ...string) models.WorkUnit {
	return models.WorkUnit{ID: id, Tags: models.WorkUnitTags{Action: models.ActionPrep}, DependsOn: deps}
}

// a <- b <- c
func draftBuild() *models.LineBuild {
	return &models.LineBuild{
		ID:        "b-1",
		ItemID:    "item-1",
		Status:    models.BuildStatusDraft,
		Version:   4,
		WorkUnits: []models.WorkUnit{prep("a"), prep("b", "a"), prep("c", "b")},
	}
}

func assertCommitted(t *testing.T, before, after *models.LineBuild, action string) {
	t.Helper()

	assert.Equal(t, before.Version+1, after.Version)
	assert.Equal(t, fixedNow, after.UpdatedAt)
	require.Len(t, after.ChangeLog, len(before.ChangeLog)+1)

	entry := after.ChangeLog[len(after.ChangeLog)-1]
	assert.Equal(t, action, entry.Action)
	assert.Equal(t, chef, entry.Actor)
	assert.Equal(t, fixedNow, entry.Timestamp)
	assert.NotEmpty(t, entry.ID)
}

func TestEditor_AddWorkUnit(t *testing.T) {
	build := draftBuild()

	next, err := newTestEditor().AddWorkUnit(build, prep("d", "c", "a", "c"), chef)
	require.NoError(t, err)

	assertCommitted(t, build, next, ActionAddWorkUnit)
	require.Len(t, next.WorkUnits, 4)
	assert.Equal(t, []string{"c", "a"}, next.WorkUnits[3].DependsOn)
	assert.Len(t, build.WorkUnits, 3, "input must not change")
	assert.Equal(t, 4, build.Version)
}

func TestEditor_AddWorkUnitGeneratesID(t *testing.T) {
	next, err := newTestEditor().AddWorkUnit(draftBuild(), models.WorkUnit{Tags: models.WorkUnitTags{Action: models.ActionPlate}}, chef)
	require.NoError(t, err)
	assert.NotEmpty(t, next.WorkUnits[3].ID)
}

func TestEditor_AddWorkUnitErrors(t *testing.T) {
	active := draftBuild()
	active.Status = models.BuildStatusActive

	tests := []struct {
		name     string
		build    *models.LineBuild
		unit     models.WorkUnit
		expected error
	}{
		{name: "not draft", build: active, unit: prep("d"), expected: ErrBuildNotDraft},
		{name: "nil build", build: nil, unit: prep("d"), expected: ErrBuildNil},
		{name: "duplicate id", build: draftBuild(), unit: prep("b"), expected: ErrDuplicateWorkUnit},
		{name: "invalid action", build: draftBuild(), unit: models.WorkUnit{ID: "d", Tags: models.WorkUnitTags{Action: "BAKE"}}, expected: ErrInvalidWorkUnit},
		{name: "invalid duration unit", build: draftBuild(), unit: models.WorkUnit{ID: "d", Tags: models.WorkUnitTags{
			Action: models.ActionHeat, Duration: &models.Duration{Value: 1, Unit: "hour"},
		}}, expected: ErrInvalidWorkUnit},
		{name: "self reference", build: draftBuild(), unit: prep("d", "d"), expected: graph.ErrSelfReference},
		{name: "unknown dependency", build: draftBuild(), unit: prep("d", "ghost"), expected: graph.ErrUnknownDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEditor().AddWorkUnit(tt.build, tt.unit, chef)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)

			var serviceErr *ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, "add_work_unit", serviceErr.Op)
		})
	}
}

func TestEditor_SetDependencies(t *testing.T) {
	tests := []struct {
		name     string
		unitID   string
		deps     []string
		expected error
	}{
		{name: "replace", unitID: "c", deps: []string{"a"}},
		{name: "clear", unitID: "b", deps: nil},
		{name: "cycle", unitID: "a", deps: []string{"c"}, expected: graph.ErrCycle},
		{name: "self", unitID: "a", deps: []string{"a"}, expected: graph.ErrSelfReference},
		{name: "unknown unit", unitID: "zz", deps: []string{"a"}, expected: ErrWorkUnitNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := draftBuild()

			next, err := newTestEditor().SetDependencies(build, tt.unitID, tt.deps, chef)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
				assert.Nil(t, next)

				return
			}

			require.NoError(t, err)
			assertCommitted(t, build, next, ActionSetDependencies)

			unit, ok := next.WorkUnit(tt.unitID)
			require.True(t, ok)
			assert.Equal(t, tt.deps, unit.DependsOn)
			assert.Nil(t, graph.FindCycle(next))
		})
	}
}

func TestEditor_CycleMessageIsUserFacing(t *testing.T) {
	_, err := newTestEditor().SetDependencies(draftBuild(), "a", []string{"c"}, chef)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "graph_cycle", serviceErr.Code)
	assert.Equal(t, `making "a" depend on "c" would create a circular dependency`, serviceErr.Message)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsConflictError(err))
}

func TestEditor_EditWorkUnit(t *testing.T) {
	build := draftBuild()
	notes := "dice small"
	tags := models.WorkUnitTags{Action: models.ActionHeat, Equipment: "griddle"}

	next, err := newTestEditor().EditWorkUnit(build, "b", WorkUnitPatch{Tags: &tags, Notes: &notes}, chef)
	require.NoError(t, err)

	assertCommitted(t, build, next, ActionEditWorkUnit)

	unit, _ := next.WorkUnit("b")
	assert.Equal(t, "dice small", unit.Notes)
	assert.Equal(t, models.ActionHeat, unit.Tags.Action)
	assert.Equal(t, []string{"a"}, unit.DependsOn, "dependencies untouched")
	assert.Equal(t, []string{"tags", "notes"}, next.ChangeLog[0].Details["fields"])

	original, _ := build.WorkUnit("b")
	assert.Equal(t, models.ActionPrep, original.Tags.Action)
}

func TestEditor_EditWorkUnitErrors(t *testing.T) {
	cyclic := []string{"c"}
	badTags := models.WorkUnitTags{}

	_, err := newTestEditor().EditWorkUnit(draftBuild(), "a", WorkUnitPatch{DependsOn: &cyclic}, chef)
	assert.ErrorIs(t, err, graph.ErrCycle)

	_, err = newTestEditor().EditWorkUnit(draftBuild(), "a", WorkUnitPatch{Tags: &badTags}, chef)
	assert.ErrorIs(t, err, ErrInvalidWorkUnit)

	_, err = newTestEditor().EditWorkUnit(draftBuild(), "nope", WorkUnitPatch{}, chef)
	assert.ErrorIs(t, err, ErrWorkUnitNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestEditor_RemoveWorkUnitCascades(t *testing.T) {
	build := draftBuild()

	next, err := newTestEditor().RemoveWorkUnit(build, "b", chef)
	require.NoError(t, err)

	assertCommitted(t, build, next, ActionRemoveWorkUnit)
	require.Len(t, next.WorkUnits, 2)

	c, ok := next.WorkUnit("c")
	require.True(t, ok)
	assert.Empty(t, c.DependsOn)
	assert.Equal(t, []string{"c"}, next.ChangeLog[0].Details["dependents"])

	_, err = newTestEditor().RemoveWorkUnit(next, "b", chef)
	assert.ErrorIs(t, err, ErrWorkUnitNotFound)
}

func TestEditor_NewBuild(t *testing.T) {
	doc := &models.LineBuild{
		ItemID:    "item-1",
		Status:    models.BuildStatusActive,
		Version:   9,
		WorkUnits: []models.WorkUnit{prep("a"), prep("b", "a", "a")},
	}

	build, err := newTestEditor().NewBuild(doc, chef)
	require.NoError(t, err)

	assert.NotEmpty(t, build.ID)
	assert.Equal(t, models.BuildStatusDraft, build.Status)
	assert.Equal(t, 1, build.Version)
	assert.Equal(t, fixedNow, build.CreatedAt)
	assert.Equal(t, []string{"a"}, build.WorkUnits[1].DependsOn)
	require.Len(t, build.ChangeLog, 1)
	assert.Equal(t, ActionCreateBuild, build.ChangeLog[0].Action)
}

func TestEditor_NewBuildRejectsBadGraphs(t *testing.T) {
	tests := []struct {
		name     string
		units    []models.WorkUnit
		expected error
	}{
		{name: "cycle", units: []models.WorkUnit{prep("a", "c"), prep("b", "a"), prep("c", "b")}, expected: graph.ErrCycle},
		{name: "self loop", units: []models.WorkUnit{prep("a", "a")}, expected: graph.ErrSelfReference},
		{name: "dangling", units: []models.WorkUnit{prep("a", "x")}, expected: graph.ErrUnknownDependency},
		{name: "duplicate ids", units: []models.WorkUnit{prep("a"), prep("a")}, expected: ErrDuplicateWorkUnit},
		{name: "bad unit", units: []models.WorkUnit{{ID: "a"}}, expected: ErrInvalidLineBuild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEditor().NewBuild(&models.LineBuild{ItemID: "item-1", WorkUnits: tt.units}, chef)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	_, err := newTestEditor().NewBuild(&models.LineBuild{}, chef)
	assert.ErrorIs(t, err, ErrInvalidLineBuild, "item id is required")
}
