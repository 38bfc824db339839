// Package persistencetest holds the behaviour every BuildRepository must share.
package persistencetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/persistence"
	"github.com/dukex/lineforge/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBuildRepositoryTests exercises repo; newRepo must return an empty store.
func RunBuildRepositoryTests(t *testing.T, newRepo func(t *testing.T) persistence.BuildRepository) {
	t.Helper()

	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		build := testutil.NewLineBuild("b-1", testutil.NewWorkUnit("a"), testutil.NewWorkUnit("b", testutil.DependsOn("a")))

		require.NoError(t, repo.Create(ctx, build))

		got, err := repo.Get(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, build.ID, got.ID)
		assert.Equal(t, build.WorkUnits, got.WorkUnits)

		err = repo.Create(ctx, build)
		assert.ErrorIs(t, err, persistence.ErrBuildAlreadyExists)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := newRepo(t).Get(ctx, "nope")
		assert.True(t, persistence.IsBuildNotFound(err))
	})

	t.Run("returned builds are copies", func(t *testing.T) {
		repo := newRepo(t)
		build := testutil.NewLineBuild("b-1", testutil.NewWorkUnit("a"))
		require.NoError(t, repo.Create(ctx, build))

		build.WorkUnits[0].ID = "changed"

		got, err := repo.Get(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, "a", got.WorkUnits[0].ID)
	})

	t.Run("update compares versions", func(t *testing.T) {
		repo := newRepo(t)
		build := testutil.NewLineBuild("b-1")
		require.NoError(t, repo.Create(ctx, build))

		next := build.Clone()
		next.Version++
		next.Name = "renamed"

		require.NoError(t, repo.Update(ctx, next, build.Version))

		err := repo.Update(ctx, next, build.Version)
		assert.True(t, persistence.IsVersionConflict(err))

		got, err := repo.Get(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, build.Version+1, got.Version)

		missing := testutil.NewLineBuild("ghost")
		assert.True(t, persistence.IsBuildNotFound(repo.Update(ctx, missing, 1)))
	})

	t.Run("one concurrent update per version wins", func(t *testing.T) {
		repo := newRepo(t)
		build := testutil.NewLineBuild("b-1")
		require.NoError(t, repo.Create(ctx, build))

		var (
			wg        sync.WaitGroup
			wins      atomic.Int32
			conflicts atomic.Int32
		)

		for range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				next := build.Clone()
				next.Version++

				err := repo.Update(ctx, next, build.Version)

				switch {
				case err == nil:
					wins.Add(1)
				case persistence.IsVersionConflict(err):
					conflicts.Add(1)
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(7), conflicts.Load())
	})

	t.Run("list and delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, testutil.NewLineBuild("b-2")))
		require.NoError(t, repo.Create(ctx, testutil.NewLineBuild("b-1")))

		builds, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, builds, 2)
		assert.Equal(t, "b-1", builds[0].ID)
		assert.Equal(t, "b-2", builds[1].ID)

		require.NoError(t, repo.Delete(ctx, "b-1"))
		assert.True(t, persistence.IsBuildNotFound(repo.Delete(ctx, "b-1")))

		builds, err = repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, builds, 1)
	})
}
