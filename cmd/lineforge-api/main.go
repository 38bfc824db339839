package main

import (
	"context"
	"os"

	"github.com/dukex/lineforge/pkg/cmd"
	"github.com/dukex/lineforge/pkg/log"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/ruleset"
	"github.com/dukex/lineforge/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9092

func main() {
	command := &cli.Command{
		Name:                  "lineforge-api",
		Usage:                 "Edit, validate and promote line builds over HTTP",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Build store URL (memory:// or redis://host:port/db)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "YAML or JSON file mapping item ids to display names",
				Sources: cli.EnvVars("CATALOG_FILE"),
			},
			&cli.IntFlag{
				Name:    "semantic-concurrency",
				Usage:   "Semantic evaluations in flight per build",
				Value:   validation.DefaultConcurrency,
				Sources: cli.EnvVars("SEMANTIC_CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		}, cmd.ReasoningFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing lineforge API")

			var catalog models.CatalogLookup

			if path := command.String("catalog"); path != "" {
				static, err := ruleset.LoadCatalogFile(path)
				if err != nil {
					return err
				}

				catalog = static.Lookup
			}

			tracer := cmd.NewTracer(ctx, logger, command.Bool("tracing"), "lineforge-api")
			evaluator := cmd.NewSemanticEvaluator(ctx, logger, cmd.ReasoningConfigFrom(command), tracer, catalog)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				evaluator,
				tracer,
				validation.Options{Concurrency: command.Int("semantic-concurrency")},
			)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		os.Exit(1)
	}
}
