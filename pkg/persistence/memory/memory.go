// Package memory provides an in-process line build store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/persistence"
)

// Persistence keeps builds in a map. Stored values are cloned on the way in
// and out so callers never share state with the store.
type Persistence struct {
	mu     sync.RWMutex
	builds map[string]*models.LineBuild
}

// NewPersistence creates an empty store.
func NewPersistence() *Persistence {
	return &Persistence{builds: map[string]*models.LineBuild{}}
}

func (p *Persistence) BuildRepository() persistence.BuildRepository {
	return p
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) List(_ context.Context) ([]*models.LineBuild, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.LineBuild, 0, len(p.builds))
	for _, b := range p.builds {
		out = append(out, b.Clone())
	}

	slices.SortFunc(out, func(a, b *models.LineBuild) int { return strings.Compare(a.ID, b.ID) })

	return out, nil
}

func (p *Persistence) Get(_ context.Context, id string) (*models.LineBuild, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	b, ok := p.builds[id]
	if !ok {
		return nil, persistence.NewBuildError("Get", id, persistence.ErrBuildNotFound)
	}

	return b.Clone(), nil
}

func (p *Persistence) Create(_ context.Context, build *models.LineBuild) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.builds[build.ID]; ok {
		return persistence.NewBuildError("Create", build.ID, persistence.ErrBuildAlreadyExists)
	}

	p.builds[build.ID] = build.Clone()

	return nil
}

func (p *Persistence) Update(_ context.Context, build *models.LineBuild, expectedVersion int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.builds[build.ID]
	if !ok {
		return persistence.NewBuildError("Update", build.ID, persistence.ErrBuildNotFound)
	}

	if current.Version != expectedVersion {
		return &persistence.BuildError{
			Op:      "Update",
			BuildID: build.ID,
			Err:     persistence.ErrVersionConflict,
			Message: fmt.Sprintf("expected version %d, stored version is %d", expectedVersion, current.Version),
		}
	}

	p.builds[build.ID] = build.Clone()

	return nil
}

func (p *Persistence) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.builds[id]; !ok {
		return persistence.NewBuildError("Delete", id, persistence.ErrBuildNotFound)
	}

	delete(p.builds, id)

	return nil
}
