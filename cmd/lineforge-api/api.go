// Package main provides the lineforge API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/health"
	"github.com/dukex/lineforge/pkg/metrics"
	"github.com/dukex/lineforge/pkg/persistence"
	"github.com/dukex/lineforge/pkg/semantic"
	"github.com/dukex/lineforge/pkg/services"
	"github.com/dukex/lineforge/pkg/validation"
	"github.com/dukex/lineforge/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	semantic    *semantic.Evaluator
	tracer      trace.Tracer
	options     validation.Options
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	semanticEvaluator *semantic.Evaluator,
	tracer trace.Tracer,
	options validation.Options,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		semantic:    semanticEvaluator,
		tracer:      tracer,
		options:     options,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	metrics.Init()

	var monitor *health.Monitor
	if a.semantic != nil {
		monitor = a.semantic.Monitor()
	}

	runner := validation.NewRunner(a.semantic, a.options, a.logger)
	if a.tracer != nil {
		runner = runner.WithTracer(a.tracer)
	}

	handlers := web.NewAPIHandlers(web.Dependencies{
		Persistence: a.persistence,
		Editor:      services.NewEditor(a.logger),
		Publishing:  services.NewPublishing(a.logger),
		Runner:      runner,
		Monitor:     monitor,
		Vocabulary:  equipment.Default,
		Validator:   a.validate,
		Logger:      a.logger,
	})

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("lineforge API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
