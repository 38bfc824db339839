package models

import "slices"

// ActionKind is the kind of kitchen operation a work unit performs.
type ActionKind string

const (
	ActionPrep         ActionKind = "PREP"
	ActionHeat         ActionKind = "HEAT"
	ActionTransfer     ActionKind = "TRANSFER"
	ActionAssemble     ActionKind = "ASSEMBLE"
	ActionPortion      ActionKind = "PORTION"
	ActionPlate        ActionKind = "PLATE"
	ActionFinish       ActionKind = "FINISH"
	ActionQualityCheck ActionKind = "QUALITY_CHECK"
)

// ActionKinds lists every supported action kind in declaration order.
var ActionKinds = []ActionKind{
	ActionPrep,
	ActionHeat,
	ActionTransfer,
	ActionAssemble,
	ActionPortion,
	ActionPlate,
	ActionFinish,
	ActionQualityCheck,
}

// Valid reports whether the action kind is one of the supported kinds.
func (a ActionKind) Valid() bool {
	return slices.Contains(ActionKinds, a)
}

// DurationUnit is the unit a work unit duration is expressed in.
type DurationUnit string

const (
	DurationSeconds DurationUnit = "sec"
	DurationMinutes DurationUnit = "min"
)

// DurationActivity tells whether a cook needs to attend the step while it runs.
type DurationActivity string

const (
	DurationActive  DurationActivity = "active"
	DurationPassive DurationActivity = "passive"
)

// Duration is the optional time a work unit takes.
type Duration struct {
	Value    float64          `json:"value"              validate:"gte=0"`
	Unit     DurationUnit     `json:"unit"               validate:"required,oneof=sec min"`
	Activity DurationActivity `json:"activity,omitempty" validate:"omitempty,oneof=active passive"`
}

// Seconds converts the duration to seconds.
func (d Duration) Seconds() float64 {
	if d.Unit == DurationMinutes {
		return d.Value * 60
	}

	return d.Value
}

// Target is what a work unit acts on: a free-text name, a catalog reference, or both.
type Target struct {
	Name  string `json:"name,omitempty"`
	BomID string `json:"bomId,omitempty"`
}

// WorkUnitTags carries the typed metadata of a work unit.
type WorkUnitTags struct {
	Action          ActionKind `json:"action"                    validate:"required,oneof=PREP HEAT TRANSFER ASSEMBLE PORTION PLATE FINISH QUALITY_CHECK"`
	Target          Target     `json:"target"`
	Equipment       string     `json:"equipment,omitempty"`
	Duration        *Duration  `json:"duration,omitempty"`
	Phase           string     `json:"phase,omitempty"`
	Station         string     `json:"station,omitempty"`
	TimingMode      string     `json:"timingMode,omitempty"`
	PrepType        string     `json:"prepType,omitempty"`
	StorageLocation string     `json:"storageLocation,omitempty"`
	Flags           []string   `json:"flags,omitempty"`
}

// WorkUnit is one executable step of a line build. DependsOn holds the ids of
// the units that must complete before this one; it never contains the unit's
// own id and never closes a cycle.
type WorkUnit struct {
	ID        string       `json:"id"                  validate:"required"`
	Tags      WorkUnitTags `json:"tags"`
	DependsOn []string     `json:"dependsOn,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

// Clone returns a deep copy so callers can build an updated unit without
// touching the one held by a shared LineBuild.
func (w WorkUnit) Clone() WorkUnit {
	out := w
	out.DependsOn = slices.Clone(w.DependsOn)
	out.Tags = w.Tags.Clone()

	return out
}

// Clone returns a deep copy of the tags.
func (t WorkUnitTags) Clone() WorkUnitTags {
	out := t
	out.Flags = slices.Clone(t.Flags)

	if t.Duration != nil {
		d := *t.Duration
		out.Duration = &d
	}

	return out
}

// DependsOnID reports whether id is a direct predecessor of the unit.
func (w WorkUnit) DependsOnID(id string) bool {
	return slices.Contains(w.DependsOn, id)
}
