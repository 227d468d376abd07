package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jqzhao-umich/github-report/internal/models"
)

func TestIssueCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testorg/repo1/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"number":1,"title":"Shared task","state":"closed",
			 "created_at":"2025-03-02T10:00:00Z","closed_at":"2025-03-10T10:00:00Z",
			 "assignees":[{"login":"alice"},{"login":"bob"}]},
			{"number":2,"title":"Open task","state":"open",
			 "created_at":"2025-03-05T10:00:00Z",
			 "assignees":[{"login":"alice"}]},
			{"number":3,"title":"Old assignment closed now","state":"closed",
			 "created_at":"2025-02-01T10:00:00Z","closed_at":"2025-03-03T10:00:00Z",
			 "assignees":[{"login":"bob"}]},
			{"number":4,"title":"Not ours","state":"open",
			 "created_at":"2025-03-05T10:00:00Z",
			 "assignees":[{"login":"stranger"}]},
			{"number":5,"title":"Actually a PR","state":"open",
			 "created_at":"2025-03-05T10:00:00Z",
			 "assignees":[{"login":"alice"}],
			 "pull_request":{"url":"https://api.github.com/repos/testorg/repo1/pulls/5"}}
		]`))
	})

	gh, _ := newTestGitHubService(t, mux)
	svc := NewIssueService(gh)

	activity := models.NewOrgActivity([]string{"alice", "bob"})
	assigned, closed := svc.Collect(context.Background(), "testorg", "repo1", activity, testWindow())

	t.Run("Each assignee is attributed independently", func(t *testing.T) {
		assert.Equal(t, 3, assigned)
		assert.Equal(t, 2, activity.MemberStats["alice"].AssignedIssues)
		assert.Equal(t, 1, activity.MemberStats["bob"].AssignedIssues)
	})

	t.Run("Closures are checked against the window on their own", func(t *testing.T) {
		// Issue 3 was assigned before the window but closed inside it
		assert.Equal(t, 3, closed)
		assert.Equal(t, 1, activity.MemberStats["alice"].ClosedIssues)
		assert.Equal(t, 2, activity.MemberStats["bob"].ClosedIssues)

		require.Len(t, activity.ClosedIssues["bob"], 2)
		assert.Equal(t, 3, activity.ClosedIssues["bob"][1].Number)
	})

	t.Run("Pull requests on the issues endpoint are skipped", func(t *testing.T) {
		for _, record := range activity.AssignedIssues["alice"] {
			assert.NotEqual(t, 5, record.Number)
		}
	})

	t.Run("Non-member assignees are ignored", func(t *testing.T) {
		_, tracked := activity.MemberStats["stranger"]
		assert.False(t, tracked)
	})
}

func TestIssueCollectionWithoutWindow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testorg/repo1/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"number":10,"title":"Ancient","state":"closed",
			 "created_at":"2020-01-01T10:00:00Z","closed_at":"2020-06-01T10:00:00Z",
			 "assignees":[{"login":"alice"}]}
		]`))
	})

	gh, _ := newTestGitHubService(t, mux)
	svc := NewIssueService(gh)

	activity := models.NewOrgActivity([]string{"alice"})
	assigned, closed := svc.Collect(context.Background(), "testorg", "repo1", activity, nil)

	assert.Equal(t, 1, assigned)
	assert.Equal(t, 1, closed)
}
