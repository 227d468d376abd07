package services

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/jqzhao-umich/github-report/pkg/logger"
)

// GitPublishStatus is the outcome of a commit-and-push attempt
type GitPublishStatus string

const (
	GitPublishStatusPushed  GitPublishStatus = "pushed"
	GitPublishStatusSkipped GitPublishStatus = "skipped"
)

// GitService commits and pushes report artifacts from a local working
// tree so the static docs page stays current.
type GitService struct {
	repoPath string
	token    string
}

func NewGitService(repoPath, token string) *GitService {
	return &GitService{
		repoPath: repoPath,
		token:    token,
	}
}

// CommitAndPush stages the given paths, commits them, and pushes to the
// default remote. A clean working tree results in a skipped status, not
// an error.
func (s *GitService) CommitAndPush(paths []string, message string) (GitPublishStatus, error) {
	repo, err := git.PlainOpen(s.repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", s.repoPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, path := range paths {
		if _, err := worktree.Add(filepath.Clean(path)); err != nil {
			return "", fmt.Errorf("failed to stage %s: %w", path, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		logger.Info("No report changes to commit")
		return GitPublishStatusSkipped, nil
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Report Bot",
			Email: "report-bot@users.noreply.github.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit report artifacts: %w", err)
	}

	pushOptions := &git.PushOptions{}
	if s.token != "" {
		pushOptions.Auth = &http.BasicAuth{
			// Any non-empty username works for GitHub token auth
			Username: "x-access-token",
			Password: s.token,
		}
	}

	if err := repo.Push(pushOptions); err != nil {
		if err == git.NoErrAlreadyUpToDate {
			logger.Info("Remote already up to date")
			return GitPublishStatusPushed, nil
		}
		return "", fmt.Errorf("failed to push commit %s: %w", commit.String()[:7], err)
	}

	logger.Infof("Pushed report commit %s", commit.String()[:7])
	return GitPublishStatusPushed, nil
}
