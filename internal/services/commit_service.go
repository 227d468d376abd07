package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

// CommitService walks every branch of a repository, deduplicates commits
// across branches by SHA, filters them by the iteration window, and
// attributes each to an organization member.
type CommitService struct {
	gh *GitHubService
}

func NewCommitService(gh *GitHubService) *CommitService {
	return &CommitService{gh: gh}
}

// Collect processes all branches of owner/repo and updates activity in
// place. It returns the number of distinct commits processed, attributed
// or not. Branch-level failures are logged and skipped.
func (s *CommitService) Collect(
	ctx context.Context,
	owner, repo string,
	activity *models.OrgActivity,
	emailToLogin map[string]string,
	iteration *models.Iteration,
	excludeLogin string,
) int {
	branches, err := s.listBranches(ctx, owner, repo)
	if err != nil {
		logger.WithError(err).Warnf("Could not list branches for %s/%s", owner, repo)
		return 0
	}

	processed := 0
	seen := make(map[string]bool)

	for _, branch := range branches {
		branchName := branch.GetName()
		logger.Debugf("Processing branch %s in %s", branchName, repo)

		commits, err := s.listCommits(ctx, owner, repo, branchName, iteration)
		if err != nil {
			logger.WithError(err).Warnf("Could not list commits on %s in %s/%s", branchName, owner, repo)
			continue
		}

		for _, commit := range commits {
			sha := commit.GetSHA()
			if sha == "" || seen[sha] {
				continue
			}
			seen[sha] = true
			processed++

			attributeCommit(commit, repo, branchName, activity, emailToLogin, iteration, excludeLogin)
		}
	}

	return processed
}

func (s *CommitService) listBranches(ctx context.Context, owner, repo string) ([]*github.Branch, error) {
	var allBranches []*github.Branch
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		branches, resp, err := s.gh.Client().Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		allBranches = append(allBranches, branches...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allBranches, nil
}

func (s *CommitService) listCommits(ctx context.Context, owner, repo, branch string, iteration *models.Iteration) ([]*github.RepositoryCommit, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	// since/until narrow the server-side query; the window is still
	// re-checked client-side below
	if iteration != nil {
		opts.Since = iteration.StartDate.UTC()
		opts.Until = iteration.EndDate.UTC()
	}

	var allCommits []*github.RepositoryCommit
	for {
		commits, resp, err := s.gh.Client().Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		allCommits = append(allCommits, commits...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCommits, nil
}

// attributeCommit matches one commit to a member and records it.
// Precedence: platform author login first, then raw author email.
func attributeCommit(
	commit *github.RepositoryCommit,
	repo, branch string,
	activity *models.OrgActivity,
	emailToLogin map[string]string,
	iteration *models.Iteration,
	excludeLogin string,
) {
	commitDate := commitAuthorDate(commit)

	if iteration != nil {
		if commitDate.IsZero() || !iteration.Contains(commitDate) {
			return
		}
	}

	matched := ""
	if login := commit.GetAuthor().GetLogin(); login != "" {
		if excludeLogin != "" && login == excludeLogin {
			return
		}
		if _, ok := activity.MemberStats[login]; ok {
			matched = login
		}
	}

	if matched == "" {
		if email := commit.GetCommit().GetAuthor().GetEmail(); email != "" {
			if login, ok := emailToLogin[strings.ToLower(email)]; ok {
				if excludeLogin != "" && login == excludeLogin {
					return
				}
				matched = login
			}
		}
	}

	if matched == "" {
		return
	}

	message := commit.GetCommit().GetMessage()
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}
	sha := commit.GetSHA()
	if len(sha) > 7 {
		sha = sha[:7]
	}

	activity.MemberStats[matched].Commits++
	activity.CommitDetails[matched] = append(activity.CommitDetails[matched], models.CommitRecord{
		Repo:    repo,
		Message: message,
		Date:    commitDate,
		SHA:     sha,
		Branch:  branch,
	})
	logger.Debugf("Matched commit %s on %s to %s", sha, branch, matched)
}

// commitAuthorDate returns the author date in UTC, treating naive
// timestamps as UTC already.
func commitAuthorDate(commit *github.RepositoryCommit) time.Time {
	ts := commit.GetCommit().GetAuthor().GetDate()
	if ts.GetTime() == nil {
		return time.Time{}
	}
	return ts.GetTime().UTC()
}
