package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initPublishRepo creates a repository with a committed docs/ directory
func initPublishRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "index.html"), []byte("<html></html>"), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("docs")
	require.NoError(t, err)
	_, err = worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, repo
}

func TestCommitAndPushCleanTreeIsSkipped(t *testing.T) {
	dir, _ := initPublishRepo(t)
	svc := NewGitService(dir, "")

	status, err := svc.CommitAndPush([]string{"docs"}, "Add report for testorg")

	assert.NoError(t, err)
	assert.Equal(t, GitPublishStatusSkipped, status)
}

func TestCommitAndPushCommitsStagedChanges(t *testing.T) {
	dir, repo := initPublishRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "testorg_sprint-3.html"), []byte("<pre>report</pre>"), 0o644))

	svc := NewGitService(dir, "")
	_, err := svc.CommitAndPush([]string{"docs"}, "Add report for testorg - Sprint 3")

	// No remote is configured, so the push fails after the commit lands
	assert.Error(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Add report for testorg - Sprint 3", commit.Message)

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	status, err := worktree.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean())
}

func TestCommitAndPushMissingRepository(t *testing.T) {
	svc := NewGitService(t.TempDir(), "")

	_, err := svc.CommitAndPush([]string{"docs"}, "Add report")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open repository")
}
