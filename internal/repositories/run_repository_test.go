package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jqzhao-umich/github-report/internal/models"
)

func TestRunRepositoryLifecycle(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	run := models.NewReportRun("testorg")
	require.NoError(t, repo.Create(run))

	t.Run("New run is in progress", func(t *testing.T) {
		found, err := repo.GetByID(run.ID)
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, models.RunStatusInProgress, found.Status)
		assert.Nil(t, found.CompletedAt)
		assert.Nil(t, found.ErrorMessage)
	})

	t.Run("Completion is persisted with counters", func(t *testing.T) {
		iterationName := "Sprint 3"
		run.IterationName = &iterationName
		run.RepositoriesProcessed = 4
		run.CommitsProcessed = 120
		run.MarkCompleted()
		require.NoError(t, repo.Update(run))

		found, err := repo.GetByID(run.ID)
		require.NoError(t, err)

		assert.Equal(t, models.RunStatusCompleted, found.Status)
		assert.NotNil(t, found.CompletedAt)
		assert.Equal(t, 4, found.RepositoriesProcessed)
		assert.Equal(t, 120, found.CommitsProcessed)
		require.NotNil(t, found.IterationName)
		assert.Equal(t, "Sprint 3", *found.IterationName)
	})

	t.Run("Failure records the message", func(t *testing.T) {
		failed := models.NewReportRun("testorg")
		require.NoError(t, repo.Create(failed))
		failed.MarkFailed("organization not accessible")
		require.NoError(t, repo.Update(failed))

		found, err := repo.GetByID(failed.ID)
		require.NoError(t, err)

		assert.Equal(t, models.RunStatusFailed, found.Status)
		require.NotNil(t, found.ErrorMessage)
		assert.Equal(t, "organization not accessible", *found.ErrorMessage)
	})

	t.Run("Unknown ID returns nil without error", func(t *testing.T) {
		found, err := repo.GetByID("does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestRunRepositoryListRecent(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	for i := 0; i < 3; i++ {
		run := models.NewReportRun("testorg")
		run.StartedAt = time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Create(run))
	}

	runs, err := repo.ListRecent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}
