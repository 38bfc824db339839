// Package cmd holds the constructors shared by the lineforge binaries.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/lineforge/pkg/persistence"
	"github.com/dukex/lineforge/pkg/persistence/memory"
	"github.com/dukex/lineforge/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"memory", "redis", "rediss"}

// NewPersistence opens the build store named by databaseURL. Unknown or empty
// schemes fall back to the in-memory store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize redis persistence", "error", err)
			os.Exit(1)
		}

		return p
	default:
		logger.InfoContext(ctx, "Using in-memory persistence; builds are lost on restart")

		return memory.NewPersistence()
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, _ := strings.Cut(databaseURL, "://")

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "memory"
}
