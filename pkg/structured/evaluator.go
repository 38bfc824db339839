// Package structured evaluates field/operator/value rules against work units.
// Evaluation is pure and never fails: every branch yields a ValidationResult.
package structured

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/template"
)

// Evaluator evaluates structured rules. The zero value is ready to use.
type Evaluator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewEvaluator creates a structured rule evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// WithClock returns a copy of the evaluator that stamps results using now.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	out := *e
	out.now = now

	return &out
}

var defaultEvaluator = &Evaluator{}

// Evaluate applies rule to unit using the default evaluator.
func Evaluate(rule models.ValidationRule, unit models.WorkUnit, build *models.LineBuild) models.ValidationResult {
	return defaultEvaluator.Evaluate(rule, unit, build)
}

// EvaluateBuild evaluates every enabled structured rule against every unit of build.
func EvaluateBuild(build *models.LineBuild, rules []models.ValidationRule) []models.ValidationResult {
	return defaultEvaluator.EvaluateBuild(build, rules)
}

// Evaluate applies rule to unit. Disabled rules and rules that do not cover the
// unit's action pass automatically.
func (e *Evaluator) Evaluate(rule models.ValidationRule, unit models.WorkUnit, _ *models.LineBuild) models.ValidationResult {
	now := e.clock()

	if !rule.Applies(unit) {
		return models.NewPass(rule, unit.ID, now)
	}

	if rule.Type != models.RuleKindStructured || rule.StructuredRule == nil {
		return models.NewFailure(rule, unit.ID, now,
			fmt.Sprintf("rule %q is not a structured rule", rule.ID))
	}

	cond := rule.Condition
	actual, present := resolve(document(unit), cond.Field)
	result := apply(cond, actual, present)

	if result.pass {
		return models.NewPass(rule, unit.ID, now)
	}

	if result.misuse != "" {
		e.log().Debug("structured rule misconfigured", "rule_id", rule.ID, "work_unit_id", unit.ID, "reason", result.misuse)

		return models.NewFailure(rule, unit.ID, now, result.misuse)
	}

	return models.NewFailure(rule, unit.ID, now, e.message(rule, result.expected, actual, present))
}

// EvaluateBuild returns results in build order, then rule order. Semantic and
// disabled rules are skipped.
func (e *Evaluator) EvaluateBuild(build *models.LineBuild, rules []models.ValidationRule) []models.ValidationResult {
	results := make([]models.ValidationResult, 0, len(build.WorkUnits)*len(rules))

	for _, unit := range build.WorkUnits {
		for _, rule := range rules {
			if !rule.Enabled || rule.Type != models.RuleKindStructured {
				continue
			}

			results = append(results, e.Evaluate(rule, unit, build))
		}
	}

	return results
}

func (e *Evaluator) message(rule models.ValidationRule, expected string, actual any, present bool) string {
	field := rule.Condition.Field
	fallback := fmt.Sprintf("%s %s, but got %s", field, expected, render(actual, present))

	if !template.NeedsTemplating(rule.FailureMessage) {
		if rule.FailureMessage != "" {
			return fmt.Sprintf("%s (%s)", rule.FailureMessage, fallback)
		}

		return fallback
	}

	msg, err := template.Render(rule.FailureMessage, map[string]any{
		"field":    field,
		"operator": string(rule.Condition.Operator),
		"expected": render(normalize(rule.Condition.Value), true),
		"actual":   render(actual, present),
		"rule":     rule.Name,
	})
	if err != nil {
		e.log().Warn("failure message template did not render", "rule_id", rule.ID, "error", err)

		return fallback
	}

	return msg
}

func (e *Evaluator) clock() time.Time {
	if e.now != nil {
		return e.now()
	}

	return time.Now().UTC()
}

func (e *Evaluator) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}

	return slog.Default()
}
