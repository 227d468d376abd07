package repositories

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// An in-memory database exists per connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.InitSchema(db))
	return db
}

func samplePublishedReport(iterationName string) *models.PublishedReport {
	report := models.NewPublishedReport("testorg", iterationName, "Report for testorg - "+iterationName)
	report.MarkdownPath = "reports/testorg_" + iterationName + ".md"
	report.HTMLPath = "docs/testorg_" + iterationName + ".html"
	report.ContentHash = "hash-" + iterationName
	return report
}

func TestReportRepositoryRoundTrip(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))

	report := samplePublishedReport("sprint-3")
	start := "2025-03-01"
	report.StartDate = &start
	require.NoError(t, repo.Create(report))

	t.Run("Lookup by key", func(t *testing.T) {
		found, err := repo.GetByOrgAndIteration("testorg", "sprint-3")
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, report.ID, found.ID)
		assert.Equal(t, "hash-sprint-3", found.ContentHash)
		require.NotNil(t, found.StartDate)
		assert.Equal(t, "2025-03-01", *found.StartDate)
		assert.Nil(t, found.EndDate)
		assert.Nil(t, found.XLSXPath)
	})

	t.Run("Missing key returns nil without error", func(t *testing.T) {
		found, err := repo.GetByOrgAndIteration("testorg", "sprint-99")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Update rewrites the row in place", func(t *testing.T) {
		report.ContentHash = "hash-updated"
		xlsx := "reports/testorg_sprint-3.xlsx"
		report.XLSXPath = &xlsx
		require.NoError(t, repo.Update(report))

		found, err := repo.GetByOrgAndIteration("testorg", "sprint-3")
		require.NoError(t, err)
		assert.Equal(t, "hash-updated", found.ContentHash)
		require.NotNil(t, found.XLSXPath)
		assert.Equal(t, xlsx, *found.XLSXPath)
	})

	t.Run("Duplicate key is rejected", func(t *testing.T) {
		assert.Error(t, repo.Create(samplePublishedReport("sprint-3")))
	})
}

func TestReportRepositoryListOrder(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))

	older := samplePublishedReport("sprint-1")
	older.PublishedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := samplePublishedReport("sprint-2")
	newer.PublishedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(older))
	require.NoError(t, repo.Create(newer))

	reports, err := repo.List()
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "sprint-2", reports[0].IterationName)
	assert.Equal(t, "sprint-1", reports[1].IterationName)
}
