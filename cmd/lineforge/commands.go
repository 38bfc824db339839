package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/lineforge/pkg/cmd"
	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/graph"
	"github.com/dukex/lineforge/pkg/log"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/ruleset"
	"github.com/dukex/lineforge/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

var (
	errPromotionBlocked = errors.New("promotion blocked")
	errEdgeRejected     = errors.New("dependency change rejected")
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "lineforge",
		Usage:                 "Check line builds and their dependency graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			checkEdgeCommand(),
			matchEquipmentCommand(),
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a line build against a rule set and print the validation status",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "build",
				Aliases:  []string{"b"},
				Usage:    "Line build file (YAML or JSON)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "rules",
				Aliases:  []string{"r"},
				Usage:    "Rule set file (YAML or JSON)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "File mapping item ids to display names",
			},
			&cli.BoolFlag{
				Name:  "structured-only",
				Usage: "Skip semantic rules",
			},
			&cli.IntFlag{
				Name:    "semantic-concurrency",
				Usage:   "Semantic evaluations in flight",
				Value:   validation.DefaultConcurrency,
				Sources: cli.EnvVars("SEMANTIC_CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		}, cmd.ReasoningFlags()...),
		Action: runValidate,
	}
}

func runValidate(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("cli")

	build, err := ruleset.LoadBuildFile(command.String("build"))
	if err != nil {
		return err
	}

	rules, err := ruleset.LoadRulesFile(command.String("rules"))
	if err != nil {
		return err
	}

	var catalog models.CatalogLookup

	if path := command.String("catalog"); path != "" {
		static, err := ruleset.LoadCatalogFile(path)
		if err != nil {
			return err
		}

		catalog = static.Lookup
	}

	tracer := cmd.NewTracer(ctx, logger, command.Bool("tracing"), "lineforge")

	structuredOnly := command.Bool("structured-only")

	runner := validation.NewRunner(nil, validation.Options{StructuredOnly: true}, logger)
	if !structuredOnly {
		evaluator := cmd.NewSemanticEvaluator(ctx, logger, cmd.ReasoningConfigFrom(command), tracer, catalog)
		runner = validation.NewRunner(evaluator, validation.Options{Concurrency: command.Int("semantic-concurrency")}, logger)
	}

	report, err := runner.WithTracer(tracer).Validate(ctx, build, rules)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report.Status, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(command.Root().Writer, string(out))

	if report.Degraded {
		logger.WarnContext(ctx, "Semantic rules were skipped", "skipped", report.SkippedSemantic)
	}

	if !structuredOnly && !report.Promotable {
		return fmt.Errorf("%w: %d failure(s), %d semantic rule evaluation(s) skipped",
			errPromotionBlocked, report.Status.FailureCount, report.SkippedSemantic)
	}

	if structuredOnly && report.Status.FailureCount > 0 {
		return fmt.Errorf("%w: %d failure(s)", errPromotionBlocked, report.Status.FailureCount)
	}

	return nil
}

func checkEdgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-edge",
		Usage: "Check whether a unit may depend on the given units",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "build",
				Aliases:  []string{"b"},
				Usage:    "Line build file (YAML or JSON)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "unit",
				Aliases:  []string{"u"},
				Usage:    "Work unit whose dependencies change",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "deps",
				Usage: "Comma separated list of the proposed dependencies",
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			build, err := ruleset.LoadBuildFile(command.String("build"))
			if err != nil {
				return err
			}

			if err := graph.ValidateNewEdge(build, command.String("unit"), splitList(command.String("deps"))); err != nil {
				fmt.Fprintln(command.Root().Writer, err.Error())

				return fmt.Errorf("%w: %w", errEdgeRejected, err)
			}

			fmt.Fprintln(command.Root().Writer, "ok")

			return nil
		},
	}
}

func matchEquipmentCommand() *cli.Command {
	return &cli.Command{
		Name:      "match-equipment",
		Usage:     "Resolve free-text equipment to a canonical capability",
		ArgsUsage: "<equipment text>",
		Action: func(_ context.Context, command *cli.Command) error {
			text := strings.Join(command.Args().Slice(), " ")

			capability, ok := equipment.Match(text)
			if !ok {
				fmt.Fprintln(command.Root().Writer, "no match")

				return nil
			}

			fmt.Fprintln(command.Root().Writer, capability)

			return nil
		},
	}
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
