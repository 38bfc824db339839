package cmd

import (
	"github.com/dukex/lineforge/pkg/reasoning"
	cli "github.com/urfave/cli/v3"
)

// ReasoningFlags are the reasoning service flags shared by both binaries.
func ReasoningFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "reasoning-url",
			Usage:   "Base URL of the generateContent reasoning API",
			Value:   reasoning.DefaultBaseURL,
			Sources: cli.EnvVars("REASONING_URL"),
		},
		&cli.StringFlag{
			Name:    "reasoning-api-key",
			Usage:   "API key for the reasoning service; semantic rules are skipped without one",
			Sources: cli.EnvVars("REASONING_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "reasoning-model",
			Usage:   "Model used for semantic rules",
			Value:   reasoning.DefaultModel,
			Sources: cli.EnvVars("REASONING_MODEL"),
		},
		&cli.DurationFlag{
			Name:    "reasoning-timeout",
			Usage:   "Timeout of a single reasoning call",
			Value:   reasoning.DefaultTimeout,
			Sources: cli.EnvVars("REASONING_TIMEOUT"),
		},
	}
}

// ReasoningConfigFrom reads the flags declared by ReasoningFlags.
func ReasoningConfigFrom(command *cli.Command) ReasoningConfig {
	return ReasoningConfig{
		BaseURL: command.String("reasoning-url"),
		APIKey:  command.String("reasoning-api-key"),
		Model:   command.String("reasoning-model"),
		Timeout: command.Duration("reasoning-timeout"),
	}
}
