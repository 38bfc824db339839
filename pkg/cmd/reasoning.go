package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/health"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/otelhelper"
	"github.com/dukex/lineforge/pkg/reasoning"
	"github.com/dukex/lineforge/pkg/semantic"
	"go.opentelemetry.io/otel/trace"
)

// ReasoningConfig is the reasoning service setup read from flags.
type ReasoningConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewSemanticEvaluator builds the semantic evaluator with its own health
// monitor. Without an API key it returns nil and validation runs
// structured-only.
func NewSemanticEvaluator(
	ctx context.Context,
	logger *slog.Logger,
	config ReasoningConfig,
	tracer trace.Tracer,
	catalog models.CatalogLookup,
) *semantic.Evaluator {
	if config.APIKey == "" {
		logger.WarnContext(ctx, "No reasoning API key configured; semantic rules will be skipped")

		return nil
	}

	client := reasoning.NewHTTPClient(reasoning.Config{
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
		Model:   config.Model,
		Timeout: config.Timeout,
	}, logger)

	opts := []semantic.Option{
		semantic.WithHealthMonitor(health.NewMonitor()),
		semantic.WithVocabulary(equipment.Default),
		semantic.WithTracer(tracer),
		semantic.WithLogger(logger),
	}

	if catalog != nil {
		opts = append(opts, semantic.WithCatalog(catalog))
	}

	logger.InfoContext(ctx, "Semantic validation enabled", "model", config.Model)

	return semantic.NewEvaluator(client, opts...)
}

// NewTracer returns an OTLP tracer when enabled and a no-op tracer otherwise.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, logger *slog.Logger, enabled bool, serviceName string) trace.Tracer {
	if !enabled {
		return otelhelper.NoopTracer()
	}

	tracer, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracer, tracing disabled", "error", err)

		return otelhelper.NoopTracer()
	}

	return tracer
}
