package models

import "time"

// ValidationResult is the outcome of evaluating one rule against one work unit.
// Failures is empty exactly when Pass is true.
type ValidationResult struct {
	RuleID     string    `json:"ruleId"`
	RuleName   string    `json:"ruleName"`
	RuleType   RuleKind  `json:"ruleType"`
	WorkUnitID string    `json:"workUnitId"`
	Pass       bool      `json:"pass"`
	Failures   []string  `json:"failures"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewPass returns a passing result for the rule and unit.
func NewPass(rule ValidationRule, unitID string, now time.Time) ValidationResult {
	return ValidationResult{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		RuleType:   rule.Type,
		WorkUnitID: unitID,
		Pass:       true,
		Failures:   []string{},
		Timestamp:  now,
	}
}

// NewFailure returns a failing result carrying the given messages.
func NewFailure(rule ValidationRule, unitID string, now time.Time, failures ...string) ValidationResult {
	res := NewPass(rule, unitID, now)
	res.Pass = false
	res.Failures = failures

	return res
}

// BuildValidationStatus is the build-level verdict that gates promotion.
type BuildValidationStatus struct {
	BuildID               string             `json:"buildId"`
	ItemID                string             `json:"itemId"`
	IsDraft               bool               `json:"isDraft"`
	HasStructuredFailures bool               `json:"hasStructuredFailures"`
	HasSemanticFailures   bool               `json:"hasSemanticFailures"`
	FailureCount          int                `json:"failureCount"`
	LastChecked           time.Time          `json:"lastChecked"`
	Results               []ValidationResult `json:"results"`
}
