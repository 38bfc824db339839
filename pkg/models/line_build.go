// Package models defines the line build graph, validation rules and validation results.
package models

import (
	"slices"
	"time"
)

// BuildStatus represents the lifecycle state of a line build.
type BuildStatus string

const (
	BuildStatusDraft    BuildStatus = "draft"    // Editable, not yet released
	BuildStatusActive   BuildStatus = "active"   // Released, immutable
	BuildStatusArchived BuildStatus = "archived" // Historical, immutable
)

// Actor identifies who performed a change.
type Actor struct {
	Name          string `json:"name"`
	AgentAssisted bool   `json:"agentAssisted"`
}

// ChangeLogEntry is one append-only audit record on a line build.
type ChangeLogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     Actor          `json:"actor"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}

// LineBuild is the editable container of work units for one catalog item.
// WorkUnits keeps authoring order, not dependency order.
type LineBuild struct {
	ID        string           `json:"id"     validate:"required"`
	ItemID    string           `json:"itemId" validate:"required"`
	Name      string           `json:"name,omitempty"`
	Status    BuildStatus      `json:"status" validate:"required,oneof=draft active archived"`
	Version   int              `json:"version"`
	WorkUnits []WorkUnit       `json:"workUnits" validate:"dive"`
	ChangeLog []ChangeLogEntry `json:"changeLog,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// IsDraft reports whether the build may still be edited.
func (b *LineBuild) IsDraft() bool {
	return b.Status == BuildStatusDraft
}

// WorkUnit returns the unit with the given id.
func (b *LineBuild) WorkUnit(id string) (WorkUnit, bool) {
	idx := b.IndexOf(id)
	if idx < 0 {
		return WorkUnit{}, false
	}

	return b.WorkUnits[idx], true
}

// IndexOf returns the authoring position of the unit, or -1.
func (b *LineBuild) IndexOf(id string) int {
	return slices.IndexFunc(b.WorkUnits, func(w WorkUnit) bool { return w.ID == id })
}

// HasWorkUnit reports whether a unit with the id exists in the build.
func (b *LineBuild) HasWorkUnit(id string) bool {
	return b.IndexOf(id) >= 0
}

// Dependents returns the ids of units that list id as a predecessor, in build order.
func (b *LineBuild) Dependents(id string) []string {
	var out []string

	for _, w := range b.WorkUnits {
		if w.DependsOnID(id) {
			out = append(out, w.ID)
		}
	}

	return out
}

// Clone returns a deep copy of the build. Mutations always operate on a clone
// and hand the caller a whole new value to swap in.
func (b *LineBuild) Clone() *LineBuild {
	out := *b

	out.WorkUnits = make([]WorkUnit, len(b.WorkUnits))
	for i, w := range b.WorkUnits {
		out.WorkUnits[i] = w.Clone()
	}

	out.ChangeLog = slices.Clone(b.ChangeLog)

	return &out
}

// CatalogLookup maps a catalog item id to its display name.
type CatalogLookup func(itemID string) string

// StaticCatalog is a map-backed CatalogLookup source.
type StaticCatalog map[string]string

// Lookup returns the display name for the item, falling back to the id itself.
func (c StaticCatalog) Lookup(itemID string) string {
	if name, ok := c[itemID]; ok && name != "" {
		return name
	}

	return itemID
}
