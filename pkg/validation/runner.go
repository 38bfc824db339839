// Package validation runs a full rule set against a line build: every
// structured rule locally, then the semantic rules with bounded concurrency,
// rolled up into one verdict.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/lineforge/pkg/aggregate"
	"github.com/dukex/lineforge/pkg/health"
	"github.com/dukex/lineforge/pkg/metrics"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/otelhelper"
	"github.com/dukex/lineforge/pkg/semantic"
	"github.com/dukex/lineforge/pkg/structured"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight semantic evaluations per build.
const DefaultConcurrency = 4

// ErrNilBuild is returned when Validate is called without a build.
var ErrNilBuild = errors.New("line build cannot be nil")

// Options configures a Runner.
type Options struct {
	// Concurrency is the number of semantic evaluations in flight at once.
	Concurrency int
	// StructuredOnly skips every semantic rule.
	StructuredOnly bool
}

// Report is the outcome of validating one build.
type Report struct {
	Status     models.BuildValidationStatus `json:"status"`
	Summary    aggregate.Summary            `json:"summary"`
	Promotable bool                         `json:"promotable"`
	// Degraded is set when semantic rules were skipped because the reasoning
	// service is unhealthy or unavailable.
	Degraded        bool             `json:"degraded"`
	SkippedSemantic int              `json:"skippedSemantic"`
	Health          *health.Snapshot `json:"health,omitempty"`
}

// Runner validates builds. It is safe for concurrent use.
type Runner struct {
	structured *structured.Evaluator
	semantic   *semantic.Evaluator
	options    Options
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner creates a runner. A nil semantic evaluator means structured-only.
func NewRunner(semanticEvaluator *semantic.Evaluator, options Options, logger *slog.Logger) *Runner {
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("module", "validation_runner")

	return &Runner{
		structured: structured.NewEvaluator(logger),
		semantic:   semanticEvaluator,
		options:    options,
		tracer:     otelhelper.NoopTracer(),
		logger:     logger,
		now:        time.Now,
	}
}

// WithTracer returns a copy of the runner that traces with t.
func (r *Runner) WithTracer(t trace.Tracer) *Runner {
	out := *r
	out.tracer = t

	return &out
}

// WithClock returns a copy of the runner that stamps results with now.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	out := *r
	out.now = now
	out.structured = r.structured.WithClock(now)

	return &out
}

type job struct {
	rule models.ValidationRule
	unit models.WorkUnit
}

// Validate evaluates rules against build. Structured results come first in
// build order then rule order, followed by semantic results in the same
// order. If ctx is cancelled no further semantic evaluations start; the
// report covers what finished and the context error is returned with it.
func (r *Runner) Validate(ctx context.Context, build *models.LineBuild, rules []models.ValidationRule) (Report, error) {
	if build == nil {
		return Report{}, ErrNilBuild
	}

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "validation.validate_build",
		attribute.String(otelhelper.BuildIDKey, build.ID),
		attribute.Int(otelhelper.BuildVersionKey, build.Version),
		attribute.String(otelhelper.ItemIDKey, build.ItemID),
	)
	defer span.End()

	results := r.structured.EvaluateBuild(build, rules)
	for _, res := range results {
		metrics.IncResult(string(res.RuleType), res.Pass)
	}

	jobs := semanticJobs(build, rules)

	var report Report

	var runErr error

	var monitor *health.Monitor
	if r.semantic != nil {
		monitor = r.semantic.Monitor()
	}

	switch {
	case len(jobs) == 0:
	case r.options.StructuredOnly:
		report.SkippedSemantic = len(jobs)
	case r.semantic == nil || (monitor != nil && !monitor.IsHealthy()):
		report.Degraded = true
		report.SkippedSemantic = len(jobs)

		r.logger.WarnContext(ctx, "Semantic validation skipped, reasoning service unavailable",
			"build_id", build.ID, "skipped", len(jobs))
	default:
		var semanticResults []models.ValidationResult

		semanticResults, runErr = r.runSemantic(ctx, build, jobs)
		results = append(results, semanticResults...)
		report.SkippedSemantic = len(jobs) - len(semanticResults)
	}

	if monitor != nil {
		snapshot := monitor.Health()
		report.Health = &snapshot
	}

	report.Status = aggregate.AggregateBuild(build, results, r.now())
	report.Summary = aggregate.Summarize(results)
	report.Promotable = runErr == nil && !report.Degraded && report.SkippedSemantic == 0 &&
		aggregate.CanPromote(report.Status)

	metrics.IncBuildValidation(report.Promotable)
	otelhelper.SetResult(span, report.Promotable, report.Status.FailureCount)

	if runErr != nil {
		otelhelper.SetError(span, runErr)
	}

	r.logger.InfoContext(ctx, "Validated line build",
		"build_id", build.ID,
		"version", build.Version,
		"results", len(results),
		"failures", report.Status.FailureCount,
		"degraded", report.Degraded,
		"promotable", report.Promotable,
	)

	return report, runErr
}

func semanticJobs(build *models.LineBuild, rules []models.ValidationRule) []job {
	var jobs []job

	for _, unit := range build.WorkUnits {
		for _, rule := range rules {
			if !rule.Enabled || rule.Type != models.RuleKindSemantic {
				continue
			}

			jobs = append(jobs, job{rule: rule, unit: unit})
		}
	}

	return jobs
}

func (r *Runner) runSemantic(ctx context.Context, build *models.LineBuild, jobs []job) ([]models.ValidationResult, error) {
	results := make([]models.ValidationResult, len(jobs))
	done := make([]bool, len(jobs))

	var g errgroup.Group

	g.SetLimit(r.options.Concurrency)

	for i, j := range jobs {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			results[i] = r.semantic.Evaluate(ctx, j.rule, j.unit, build)
			done[i] = true

			return nil
		})
	}

	_ = g.Wait()

	out := make([]models.ValidationResult, 0, len(jobs))

	for i := range jobs {
		if done[i] {
			out = append(out, results[i])
		}
	}

	return out, ctx.Err()
}
