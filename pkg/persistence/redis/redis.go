// Package redis provides a Redis backed line build store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "lineforge:build:"
	indexKey  = "lineforge:builds"

	maxUpdateRetries = 3
)

// Persistence stores each build as a JSON string keyed by id, with a set
// indexing every id.
type Persistence struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

// NewPersistence connects to the server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	p := NewWithClient(goredis.NewClient(opts), logger)

	if err := p.HealthCheck(ctx); err != nil {
		_ = p.client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	p.logger.InfoContext(ctx, "Connected to redis", "addr", opts.Addr, "db", opts.DB)

	return p, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}

	return &Persistence{
		client: client,
		logger: logger.With("module", "redis_persistence"),
	}
}

func (p *Persistence) BuildRepository() persistence.BuildRepository {
	return p
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) List(ctx context.Context) ([]*models.LineBuild, error) {
	ids, err := p.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list line builds: %w", err)
	}

	slices.Sort(ids)

	out := make([]*models.LineBuild, 0, len(ids))

	for _, id := range ids {
		build, err := p.Get(ctx, id)
		if persistence.IsBuildNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		out = append(out, build)
	}

	return out, nil
}

func (p *Persistence) Get(ctx context.Context, id string) (*models.LineBuild, error) {
	data, err := p.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewBuildError("Get", id, persistence.ErrBuildNotFound)
	}

	if err != nil {
		return nil, persistence.NewBuildError("Get", id, err)
	}

	return decode(id, data)
}

func (p *Persistence) Create(ctx context.Context, build *models.LineBuild) error {
	data, err := json.Marshal(build)
	if err != nil {
		return persistence.NewBuildError("Create", build.ID, err)
	}

	created, err := p.client.SetNX(ctx, key(build.ID), data, 0).Result()
	if err != nil {
		return persistence.NewBuildError("Create", build.ID, err)
	}

	if !created {
		return persistence.NewBuildError("Create", build.ID, persistence.ErrBuildAlreadyExists)
	}

	if err := p.client.SAdd(ctx, indexKey, build.ID).Err(); err != nil {
		return persistence.NewBuildError("Create", build.ID, err)
	}

	return nil
}

// Update uses WATCH/MULTI so the version check and the write are atomic.
func (p *Persistence) Update(ctx context.Context, build *models.LineBuild, expectedVersion int) error {
	data, err := json.Marshal(build)
	if err != nil {
		return persistence.NewBuildError("Update", build.ID, err)
	}

	k := key(build.ID)

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			return persistence.ErrBuildNotFound
		}

		if err != nil {
			return err
		}

		current, err := decode(build.ID, raw)
		if err != nil {
			return err
		}

		if current.Version != expectedVersion {
			return &persistence.BuildError{
				Op:      "Update",
				BuildID: build.ID,
				Err:     persistence.ErrVersionConflict,
				Message: fmt.Sprintf("expected version %d, stored version is %d", expectedVersion, current.Version),
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, data, 0)

			return nil
		})

		return err
	}

	for range maxUpdateRetries {
		err = p.client.Watch(ctx, txf, k)
		if errors.Is(err, goredis.TxFailedErr) {
			// The key changed under WATCH; re-read and compare again.
			continue
		}

		break
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, goredis.TxFailedErr):
		return persistence.NewBuildError("Update", build.ID, persistence.ErrVersionConflict)
	case errors.Is(err, persistence.ErrBuildNotFound), errors.Is(err, persistence.ErrVersionConflict):
		var be *persistence.BuildError
		if errors.As(err, &be) {
			return be
		}

		return persistence.NewBuildError("Update", build.ID, err)
	default:
		return persistence.NewBuildError("Update", build.ID, err)
	}
}

func (p *Persistence) Delete(ctx context.Context, id string) error {
	removed, err := p.client.Del(ctx, key(id)).Result()
	if err != nil {
		return persistence.NewBuildError("Delete", id, err)
	}

	if err := p.client.SRem(ctx, indexKey, id).Err(); err != nil {
		return persistence.NewBuildError("Delete", id, err)
	}

	if removed == 0 {
		return persistence.NewBuildError("Delete", id, persistence.ErrBuildNotFound)
	}

	return nil
}

func key(id string) string {
	return keyPrefix + strings.TrimSpace(id)
}

func decode(id string, data []byte) (*models.LineBuild, error) {
	var build models.LineBuild
	if err := json.Unmarshal(data, &build); err != nil {
		return nil, &persistence.BuildError{Op: "Get", BuildID: id, Err: err, Message: "stored line build is not valid JSON"}
	}

	return &build, nil
}
