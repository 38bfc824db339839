// Package semantic evaluates natural-language rules by asking a reasoning
// service. Cheap local checks run first so obviously invalid units never
// reach the network, and every error is turned into a failing result.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/health"
	"github.com/dukex/lineforge/pkg/metrics"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/otelhelper"
	"github.com/dukex/lineforge/pkg/reasoning"
	"github.com/dukex/lineforge/pkg/retry"
	"github.com/dukex/lineforge/pkg/structured"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxAttempts is the retry budget of one reasoning call.
	DefaultMaxAttempts = 2

	ReasoningNotApplicable = "rule does not apply to this action."
	ReasoningPrecheck      = "pre-validation failed; the reasoning service was not called."
	ReasoningUnparseable   = "the reasoning service answered, but its response could not be parsed."
)

// Evaluator runs semantic rules. It holds no per-call state and is safe for
// concurrent use.
type Evaluator struct {
	client     reasoning.Client
	monitor    *health.Monitor
	vocabulary *equipment.Vocabulary
	catalog    models.CatalogLookup
	parse      Parser
	retry      retry.Options
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithHealthMonitor records every error path into m.
func WithHealthMonitor(m *health.Monitor) Option {
	return func(e *Evaluator) { e.monitor = m }
}

func WithVocabulary(v *equipment.Vocabulary) Option {
	return func(e *Evaluator) { e.vocabulary = v }
}

// WithCatalog resolves the build's item id to a display name for prompts.
func WithCatalog(lookup models.CatalogLookup) Option {
	return func(e *Evaluator) { e.catalog = lookup }
}

// WithParser replaces ParseResponse, e.g. for clients with structured output.
func WithParser(p Parser) Option {
	return func(e *Evaluator) { e.parse = p }
}

func WithRetryOptions(opts retry.Options) Option {
	return func(e *Evaluator) { e.retry = opts }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Evaluator) { e.tracer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// DefaultRetryOptions wraps each reasoning call in two attempts, retrying
// only errors Classify marks retryable.
func DefaultRetryOptions() retry.Options {
	return retry.Options{
		Name:         "reasoning call",
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: retry.DefaultInitialDelay,
		MaxDelay:     retry.DefaultMaxDelay,
		Multiplier:   retry.DefaultMultiplier,
		ShouldRetry:  ShouldRetry,
	}
}

func NewEvaluator(client reasoning.Client, opts ...Option) *Evaluator {
	e := &Evaluator{
		client:     client,
		monitor:    health.NewMonitor(),
		vocabulary: equipment.Default,
		parse:      ParseResponse,
		retry:      DefaultRetryOptions(),
		tracer:     otelhelper.NoopTracer(),
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("module", "semantic_evaluator")

	if e.retry.Logger == nil {
		e.retry.Logger = e.logger
	}

	return e
}

// EvaluateSemanticRule evaluates one rule with a throwaway evaluator around client.
func EvaluateSemanticRule(ctx context.Context, rule models.ValidationRule, unit models.WorkUnit,
	build *models.LineBuild, client reasoning.Client,
) models.ValidationResult {
	return NewEvaluator(client).Evaluate(ctx, rule, unit, build)
}

// Monitor returns the health monitor errors are recorded into.
func (e *Evaluator) Monitor() *health.Monitor {
	return e.monitor
}

// Evaluate runs rule against unit. It never returns an error: client
// failures and unreadable responses become failing results.
func (e *Evaluator) Evaluate(ctx context.Context, rule models.ValidationRule, unit models.WorkUnit,
	build *models.LineBuild,
) models.ValidationResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "semantic.evaluate",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.WorkUnitIDKey, unit.ID),
		attribute.String(otelhelper.ActionKindKey, string(unit.Tags.Action)),
	)
	defer span.End()

	result := e.evaluate(ctx, span, rule, unit, build)

	otelhelper.SetResult(span, result.Pass, len(result.Failures))
	metrics.IncResult(string(models.RuleKindSemantic), result.Pass)

	return result
}

func (e *Evaluator) evaluate(ctx context.Context, span trace.Span, rule models.ValidationRule,
	unit models.WorkUnit, build *models.LineBuild,
) models.ValidationResult {
	now := e.now()
	logger := e.logger.With("rule_id", rule.ID, "work_unit_id", unit.ID)

	if !rule.Applies(unit) {
		result := models.NewPass(rule, unit.ID, now)
		result.Reasoning = ReasoningNotApplicable

		return result
	}

	if rule.Type != models.RuleKindSemantic || rule.SemanticRule == nil || rule.Prompt == "" {
		return e.errorResult(ctx, span, logger, rule, unit, now,
			malformedRule(rule, "not a semantic rule with a prompt"))
	}

	if missing := missingFields(rule, unit); len(missing) > 0 {
		logger.DebugContext(ctx, "Semantic rule failed pre-validation", "missing", missing)

		failures := make([]string, 0, len(missing))
		for _, field := range missing {
			failures = append(failures, fmt.Sprintf("%s is required for this rule but is missing", field))
		}

		result := models.NewFailure(rule, unit.ID, now, failures...)
		result.Reasoning = ReasoningPrecheck

		return result
	}

	var capability equipment.Capability

	if gated(rule) {
		matched, ok := e.vocabulary.Match(unit.Tags.Equipment)
		if !ok {
			logger.DebugContext(ctx, "Equipment not in vocabulary", "equipment", unit.Tags.Equipment)

			result := models.NewFailure(rule, unit.ID, now,
				fmt.Sprintf("equipment %q does not match any known equipment capability", unit.Tags.Equipment))
			result.Reasoning = "Known equipment: " + e.vocabulary.Names() + "."

			return result
		}

		capability = matched
	} else if matched, ok := e.vocabulary.Match(unit.Tags.Equipment); ok {
		capability = matched
	}

	prompt, err := buildPrompt(rule, unit, build, e.catalog, capability)
	if err != nil {
		return e.errorResult(ctx, span, logger, rule, unit, now, malformedRule(rule, err.Error()))
	}

	text, err := e.call(ctx, prompt)
	if err != nil {
		return e.errorResult(ctx, span, logger, rule, unit, now, Classify(err))
	}

	resp, err := e.parse(text)
	if err != nil {
		e.record(ctx, span, logger, KindUnknown, err)

		result := models.NewFailure(rule, unit.ID, now, ErrUnparseable.Error())
		result.Reasoning = ReasoningUnparseable

		return result
	}

	resp = normalizeResponse(resp)

	result := models.NewPass(rule, unit.ID, now)
	result.Pass = resp.Pass
	result.Failures = resp.Failures
	result.Reasoning = resp.Reasoning

	return result
}

func (e *Evaluator) call(ctx context.Context, prompt string) (string, error) {
	if e.client == nil {
		return "", reasoning.ErrNotConfigured
	}

	opts := e.retry
	if opts.Name == "" {
		opts.Name = "reasoning call"
	}

	onRetry := opts.OnRetry
	opts.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.IncRetry(opts.Name)

		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	start := time.Now()
	defer func() {
		metrics.ObserveSemanticCallDuration(time.Since(start))
	}()

	return retry.Do(ctx, opts, func(ctx context.Context) (string, error) {
		text, err := e.client.GenerateContent(ctx, prompt, systemInstruction)
		if err != nil {
			return "", Classify(err)
		}

		return text, nil
	})
}

func (e *Evaluator) errorResult(ctx context.Context, span trace.Span, logger *slog.Logger, rule models.ValidationRule,
	unit models.WorkUnit, now time.Time, err *ValidationError,
) models.ValidationResult {
	e.record(ctx, span, logger, err.Kind, err)

	result := models.NewFailure(rule, unit.ID, now, err.Error())
	result.Reasoning = fmt.Sprintf("An error occurred during semantic validation (%s).", err.Kind)

	return result
}

func (e *Evaluator) record(ctx context.Context, span trace.Span, logger *slog.Logger, kind Kind, err error) {
	if kind == KindMalformedRule {
		logger.ErrorContext(ctx, "Semantic rule cannot be evaluated", "kind", kind, "error", err)
	} else {
		logger.WarnContext(ctx, "Semantic evaluation failed", "kind", kind, "error", err)
	}

	// A caller abandoning the run says nothing about the service's health.
	cancelled := errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
	if e.monitor != nil && !cancelled {
		e.monitor.RecordError(err)
	}

	metrics.IncSemanticError(string(kind))
	otelhelper.SetError(span, err, attribute.String(otelhelper.ErrorKindKey, string(kind)))
}

// gated reports whether the rule needs the unit's equipment to be a known
// capability before the reasoning service is asked.
func gated(rule models.ValidationRule) bool {
	return rule.Domain == models.SemanticDomainEquipment || rule.Domain == models.SemanticDomainCookTime
}

func missingFields(rule models.ValidationRule, unit models.WorkUnit) []string {
	var required []string

	switch rule.Domain {
	case models.SemanticDomainEquipment:
		required = append(required, "tags.equipment")
	case models.SemanticDomainCookTime:
		required = append(required, "tags.equipment", "tags.duration")
	}

	required = append(required, rule.RequiredFields...)

	var missing []string

	seen := make(map[string]bool, len(required))
	for _, field := range required {
		if seen[field] {
			continue
		}

		seen[field] = true

		if !structured.HasValue(unit, field) {
			missing = append(missing, field)
		}
	}

	return missing
}
