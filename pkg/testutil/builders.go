// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/lineforge/pkg/models"
)

// NewWorkUnit creates a PREP work unit that can be overridden.
func NewWorkUnit(id string, overrides ...func(*models.WorkUnit)) models.WorkUnit {
	unit := models.WorkUnit{
		ID: id,
		Tags: models.WorkUnitTags{
			Action: models.ActionPrep,
			Target: models.Target{Name: "Test target"},
		},
	}

	for _, override := range overrides {
		override(&unit)
	}

	return unit
}

// DependsOn sets the unit's predecessors.
func DependsOn(ids ...string) func(*models.WorkUnit) {
	return func(u *models.WorkUnit) {
		u.DependsOn = ids
	}
}

// WithAction sets the unit's action kind.
func WithAction(action models.ActionKind) func(*models.WorkUnit) {
	return func(u *models.WorkUnit) {
		u.Tags.Action = action
	}
}

// WithEquipment sets the unit's equipment and duration in minutes.
func WithEquipment(equipment string, minutes float64) func(*models.WorkUnit) {
	return func(u *models.WorkUnit) {
		u.Tags.Equipment = equipment
		u.Tags.Duration = &models.Duration{Value: minutes, Unit: models.DurationMinutes, Activity: models.DurationPassive}
	}
}

// NewLineBuild creates a version 1 draft holding units.
func NewLineBuild(id string, units ...models.WorkUnit) *models.LineBuild {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	return &models.LineBuild{
		ID:        id,
		ItemID:    "item-" + id,
		Name:      "Test build " + id,
		Status:    models.BuildStatusDraft,
		Version:   1,
		WorkUnits: units,
		CreatedAt: created,
		UpdatedAt: created,
	}
}
