package services

import (
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/lineforge/pkg/graph"
	"github.com/dukex/lineforge/pkg/metrics"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Changelog actions recorded by the services.
const (
	ActionCreateBuild     = "create_build"
	ActionAddWorkUnit     = "add_work_unit"
	ActionEditWorkUnit    = "edit_work_unit"
	ActionRemoveWorkUnit  = "remove_work_unit"
	ActionSetDependencies = "set_dependencies"
	ActionPromote         = "promote"
	ActionArchive         = "archive"
	ActionCreateDraft     = "create_draft"
)

// WorkUnitPatch lists the fields an edit replaces. Nil fields are kept.
type WorkUnitPatch struct {
	Tags      *models.WorkUnitTags `json:"tags,omitempty"`
	Notes     *string              `json:"notes,omitempty"`
	DependsOn *[]string            `json:"dependsOn,omitempty"`
}

// Editor applies graph mutations to draft builds. Each successful mutation
// is checked by the dependency guard, bumps the version and appends one
// changelog entry.
type Editor struct {
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

// NewEditor creates a new line build editor.
func NewEditor(logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Editor{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		logger:   logger.With("module", "build_editor"),
	}
}

// WithClock returns a copy of the editor using now for timestamps.
func (e *Editor) WithClock(now func() time.Time) *Editor {
	out := *e
	out.now = now

	return &out
}

// NewBuild checks a complete build document and returns it as a version 1
// draft. Missing build and unit ids are generated.
func (e *Editor) NewBuild(build *models.LineBuild, actor models.Actor) (*models.LineBuild, error) {
	const op = "new_build"

	if build == nil {
		return nil, newError(op, "build_nil", "", ErrBuildNil)
	}

	next := build.Clone()
	if next.ID == "" {
		next.ID = uuid.NewString()
	}

	next.Status = models.BuildStatusDraft
	next.Version = 0
	next.ChangeLog = nil

	seen := make(map[string]bool, len(next.WorkUnits))

	for i := range next.WorkUnits {
		unit := &next.WorkUnits[i]
		if unit.ID == "" {
			unit.ID = uuid.NewString()
		}

		if seen[unit.ID] {
			return nil, newError(op, "duplicate_work_unit", "work unit id "+unit.ID+" is used twice", ErrDuplicateWorkUnit)
		}

		seen[unit.ID] = true
		unit.DependsOn = dedupe(unit.DependsOn)
	}

	if err := e.validate.Struct(next); err != nil {
		return nil, newError(op, "invalid_line_build", err.Error(), ErrInvalidLineBuild)
	}

	for _, unit := range next.WorkUnits {
		if err := graph.ValidateNewEdge(next, unit.ID, unit.DependsOn); err != nil {
			return nil, e.rejected(op, err)
		}
	}

	now := e.now()
	next.CreatedAt = now

	return commit(next, now, actor, ActionCreateBuild, map[string]any{
		"itemId":    next.ItemID,
		"workUnits": len(next.WorkUnits),
	}), nil
}

// AddWorkUnit appends unit to a draft build.
func (e *Editor) AddWorkUnit(build *models.LineBuild, unit models.WorkUnit, actor models.Actor) (*models.LineBuild, error) {
	const op = "add_work_unit"

	if err := requireDraft(op, build); err != nil {
		return nil, err
	}

	unit = unit.Clone()
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}

	unit.DependsOn = dedupe(unit.DependsOn)

	if build.HasWorkUnit(unit.ID) {
		return nil, newError(op, "duplicate_work_unit", "work unit "+unit.ID+" already exists", ErrDuplicateWorkUnit)
	}

	if err := e.checkUnit(op, unit); err != nil {
		return nil, err
	}

	if err := graph.ValidateNewEdge(build, unit.ID, unit.DependsOn); err != nil {
		return nil, e.rejected(op, err)
	}

	next := build.Clone()
	next.WorkUnits = append(next.WorkUnits, unit)

	return commit(next, e.now(), actor, ActionAddWorkUnit, map[string]any{
		"workUnitId": unit.ID,
		"action":     string(unit.Tags.Action),
		"dependsOn":  slices.Clone(unit.DependsOn),
	}), nil
}

// EditWorkUnit replaces the patched fields of a unit. The id never changes.
func (e *Editor) EditWorkUnit(build *models.LineBuild, unitID string, patch WorkUnitPatch, actor models.Actor) (*models.LineBuild, error) {
	const op = "edit_work_unit"

	if err := requireDraft(op, build); err != nil {
		return nil, err
	}

	idx := build.IndexOf(unitID)
	if idx < 0 {
		return nil, notFound(op, unitID)
	}

	unit := build.WorkUnits[idx].Clone()

	var changed []string

	if patch.Tags != nil {
		unit.Tags = patch.Tags.Clone()

		changed = append(changed, "tags")
	}

	if patch.Notes != nil {
		unit.Notes = *patch.Notes

		changed = append(changed, "notes")
	}

	if patch.DependsOn != nil {
		unit.DependsOn = dedupe(*patch.DependsOn)

		if err := graph.ValidateNewEdge(build, unitID, unit.DependsOn); err != nil {
			return nil, e.rejected(op, err)
		}

		changed = append(changed, "dependsOn")
	}

	if err := e.checkUnit(op, unit); err != nil {
		return nil, err
	}

	next := build.Clone()
	next.WorkUnits[idx] = unit

	return commit(next, e.now(), actor, ActionEditWorkUnit, map[string]any{
		"workUnitId": unitID,
		"fields":     changed,
	}), nil
}

// SetDependencies replaces the predecessor list of a unit.
func (e *Editor) SetDependencies(build *models.LineBuild, unitID string, deps []string, actor models.Actor) (*models.LineBuild, error) {
	const op = "set_dependencies"

	if err := requireDraft(op, build); err != nil {
		return nil, err
	}

	idx := build.IndexOf(unitID)
	if idx < 0 {
		return nil, notFound(op, unitID)
	}

	deps = dedupe(deps)

	if err := graph.ValidateNewEdge(build, unitID, deps); err != nil {
		return nil, e.rejected(op, err)
	}

	next := build.Clone()
	previous := next.WorkUnits[idx].DependsOn
	next.WorkUnits[idx].DependsOn = deps

	return commit(next, e.now(), actor, ActionSetDependencies, map[string]any{
		"workUnitId": unitID,
		"previous":   previous,
		"dependsOn":  slices.Clone(deps),
	}), nil
}

// RemoveWorkUnit deletes a unit and drops it from every other unit's
// predecessor list.
func (e *Editor) RemoveWorkUnit(build *models.LineBuild, unitID string, actor models.Actor) (*models.LineBuild, error) {
	const op = "remove_work_unit"

	if err := requireDraft(op, build); err != nil {
		return nil, err
	}

	if !build.HasWorkUnit(unitID) {
		return nil, notFound(op, unitID)
	}

	dependents := build.Dependents(unitID)

	next := graph.CascadeRemoval(build, unitID)
	next.WorkUnits = slices.DeleteFunc(next.WorkUnits, func(w models.WorkUnit) bool { return w.ID == unitID })

	return commit(next, e.now(), actor, ActionRemoveWorkUnit, map[string]any{
		"workUnitId": unitID,
		"dependents": dependents,
	}), nil
}

func (e *Editor) checkUnit(op string, unit models.WorkUnit) error {
	if err := e.validate.Struct(unit); err != nil {
		return newError(op, "invalid_work_unit", err.Error(), ErrInvalidWorkUnit)
	}

	return nil
}

func (e *Editor) rejected(op string, err error) error {
	var kind string

	var ge *graph.GraphError
	if errors.As(err, &ge) {
		kind = string(ge.Kind)
	}

	metrics.IncGraphRejection(kind)
	e.logger.Info("Dependency change rejected", "op", op, "reason", err.Error())

	return graphError(op, err)
}

// commit bumps the version and records the change.
func commit(next *models.LineBuild, now time.Time, actor models.Actor, action string, details map[string]any) *models.LineBuild {
	next.Version++
	next.UpdatedAt = now
	next.ChangeLog = append(next.ChangeLog, models.ChangeLogEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Actor:     actor,
		Action:    action,
		Details:   details,
	})

	return next
}

func requireDraft(op string, build *models.LineBuild) error {
	if build == nil {
		return newError(op, "build_nil", "", ErrBuildNil)
	}

	if !build.IsDraft() {
		return newError(op, "build_not_draft", "line build "+build.ID+" is "+string(build.Status), ErrBuildNotDraft)
	}

	return nil
}

func notFound(op, unitID string) error {
	return newError(op, "work_unit_not_found", "work unit "+unitID+" not found", ErrWorkUnitNotFound)
}

// dedupe drops repeated ids, keeping first occurrences.
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}

	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}
