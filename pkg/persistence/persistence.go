// Package persistence provides the line build store used by the HTTP API.
package persistence

import (
	"context"

	"github.com/dukex/lineforge/pkg/models"
)

type Persistence interface {
	BuildRepository() BuildRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// BuildRepository stores line builds. Update is a compare-and-swap on the
// build version so only one mutation per version commits.
type BuildRepository interface {
	List(ctx context.Context) ([]*models.LineBuild, error)
	Get(ctx context.Context, id string) (*models.LineBuild, error)
	Create(ctx context.Context, build *models.LineBuild) error
	// Update stores build if the stored copy is still at expectedVersion.
	Update(ctx context.Context, build *models.LineBuild, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}
