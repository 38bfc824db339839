package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// RuleKind distinguishes the two validation rule variants.
type RuleKind string

const (
	RuleKindStructured RuleKind = "structured"
	RuleKindSemantic   RuleKind = "semantic"
)

// Operator is a structured condition operator.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorIn          Operator = "in"
	OperatorNotEmpty    Operator = "notEmpty"
	OperatorGreaterThan Operator = "greaterThan"
	OperatorLessThan    Operator = "lessThan"
)

// Operators lists every supported structured operator.
var Operators = []Operator{
	OperatorEquals,
	OperatorIn,
	OperatorNotEmpty,
	OperatorGreaterThan,
	OperatorLessThan,
}

// SemanticDomain selects the required-field checks a semantic rule runs
// before the reasoning service is called.
type SemanticDomain string

const (
	SemanticDomainGeneral   SemanticDomain = "general"
	SemanticDomainEquipment SemanticDomain = "equipment"
	SemanticDomainCookTime  SemanticDomain = "cook_time"
)

var (
	// ErrRuleInvalid is the root of every malformed rule definition error.
	ErrRuleInvalid = errors.New("invalid validation rule")
)

// Applicability is either every action kind or an explicit set of them.
// It is encoded as the string "all" or as an array of action kinds.
type Applicability struct {
	All     bool
	Actions []ActionKind
}

// AppliesToAll returns an applicability that matches every action kind.
func AppliesToAll() Applicability {
	return Applicability{All: true}
}

// AppliesTo returns an applicability limited to the given action kinds.
func AppliesTo(actions ...ActionKind) Applicability {
	return Applicability{Actions: actions}
}

// Includes reports whether the action kind falls under the applicability.
func (a Applicability) Includes(action ActionKind) bool {
	return a.All || slices.Contains(a.Actions, action)
}

func (a Applicability) MarshalJSON() ([]byte, error) {
	if a.All {
		return json.Marshal("all")
	}

	actions := a.Actions
	if actions == nil {
		actions = []ActionKind{}
	}

	return json.Marshal(actions)
}

func (a *Applicability) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "all" {
			return fmt.Errorf("%w: appliesTo must be \"all\" or a list of actions, got %q", ErrRuleInvalid, s)
		}

		*a = AppliesToAll()

		return nil
	}

	var actions []ActionKind
	if err := json.Unmarshal(data, &actions); err != nil {
		return fmt.Errorf("%w: appliesTo: %w", ErrRuleInvalid, err)
	}

	*a = AppliesTo(actions...)

	return nil
}

// Condition is the field/operator/value test of a structured rule. Field is a
// dot-separated path into the JSON form of a WorkUnit, e.g. "tags.action".
type Condition struct {
	Field    string   `json:"field"           validate:"required"`
	Operator Operator `json:"operator"        validate:"required"`
	Value    any      `json:"value,omitempty"`
}

// StructuredRule is the locally evaluated variant.
type StructuredRule struct {
	Condition      Condition `json:"condition"`
	FailureMessage string    `json:"failureMessage,omitempty"`
}

// SemanticRule is the variant evaluated by the reasoning service.
type SemanticRule struct {
	Prompt         string         `json:"prompt"`
	Guidance       string         `json:"guidance,omitempty"`
	Domain         SemanticDomain `json:"domain,omitempty"`
	RequiredFields []string       `json:"requiredFields,omitempty"`
}

// ValidationRule is a tagged union over StructuredRule and SemanticRule.
// Exactly one of the variant pointers is set and it matches Type.
type ValidationRule struct {
	ID          string        `json:"id"                    validate:"required"`
	Name        string        `json:"name"                  validate:"required"`
	Description string        `json:"description,omitempty"`
	Type        RuleKind      `json:"type"                  validate:"required,oneof=structured semantic"`
	Enabled     bool          `json:"enabled"`
	AppliesTo   Applicability `json:"appliesTo"`

	*StructuredRule
	*SemanticRule
}

// NewStructuredRule builds an enabled structured rule.
func NewStructuredRule(id, name string, appliesTo Applicability, cond Condition, failureMessage string) ValidationRule {
	return ValidationRule{
		ID:        id,
		Name:      name,
		Type:      RuleKindStructured,
		Enabled:   true,
		AppliesTo: appliesTo,
		StructuredRule: &StructuredRule{
			Condition:      cond,
			FailureMessage: failureMessage,
		},
	}
}

// NewSemanticRule builds an enabled semantic rule.
func NewSemanticRule(id, name string, appliesTo Applicability, semantic SemanticRule) ValidationRule {
	return ValidationRule{
		ID:           id,
		Name:         name,
		Type:         RuleKindSemantic,
		Enabled:      true,
		AppliesTo:    appliesTo,
		SemanticRule: &semantic,
	}
}

// Applies reports whether the rule is enabled and covers the unit's action kind.
func (r ValidationRule) Applies(unit WorkUnit) bool {
	return r.Enabled && r.AppliesTo.Includes(unit.Tags.Action)
}

// Check verifies the variant payload matches the declared kind.
func (r ValidationRule) Check() error {
	switch r.Type {
	case RuleKindStructured:
		if r.StructuredRule == nil {
			return fmt.Errorf("%w: rule %q: structured rule has no condition", ErrRuleInvalid, r.ID)
		}

		if r.Condition.Field == "" {
			return fmt.Errorf("%w: rule %q: condition field is required", ErrRuleInvalid, r.ID)
		}

		if !slices.Contains(Operators, r.Condition.Operator) {
			return fmt.Errorf("%w: rule %q: unsupported operator %q", ErrRuleInvalid, r.ID, r.Condition.Operator)
		}
	case RuleKindSemantic:
		if r.SemanticRule == nil || r.Prompt == "" {
			return fmt.Errorf("%w: rule %q: semantic rule has no prompt", ErrRuleInvalid, r.ID)
		}

		switch r.Domain {
		case "", SemanticDomainGeneral, SemanticDomainEquipment, SemanticDomainCookTime:
		default:
			return fmt.Errorf("%w: rule %q: unknown semantic domain %q", ErrRuleInvalid, r.ID, r.Domain)
		}
	default:
		return fmt.Errorf("%w: rule %q: unknown rule type %q", ErrRuleInvalid, r.ID, r.Type)
	}

	return nil
}

// UnmarshalJSON decodes a rule document; an absent "enabled" means enabled.
func (r *ValidationRule) UnmarshalJSON(data []byte) error {
	type plain ValidationRule

	decoded := plain{Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	switch decoded.Type {
	case RuleKindStructured:
		decoded.SemanticRule = nil
	case RuleKindSemantic:
		decoded.StructuredRule = nil
	}

	*r = ValidationRule(decoded)

	return nil
}
