package services

import (
	"context"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

// IssueService collects assigned and closed issue metrics for a
// repository. Assignment and closure are evaluated independently against
// the iteration window.
type IssueService struct {
	gh *GitHubService
}

func NewIssueService(gh *GitHubService) *IssueService {
	return &IssueService{gh: gh}
}

// Collect walks all issues of owner/repo (state "all"), skipping pull
// requests, and updates activity in place. Each assignee of a
// multi-assignee issue is attributed independently. Returns the counts
// of assigned and closed attributions recorded.
func (s *IssueService) Collect(
	ctx context.Context,
	owner, repo string,
	activity *models.OrgActivity,
	iteration *models.Iteration,
) (int, int) {
	issues, err := s.listIssues(ctx, owner, repo)
	if err != nil {
		logger.WithError(err).Warnf("Could not list issues for %s/%s", owner, repo)
		return 0, 0
	}

	totalAssigned := 0
	totalClosed := 0

	for _, issue := range issues {
		// Pull requests share the issues endpoint
		if issue.IsPullRequest() {
			continue
		}

		for _, assignee := range issue.Assignees {
			login := assignee.GetLogin()
			if _, ok := activity.MemberStats[login]; !ok {
				continue
			}

			assignedDate := issueAssignmentDate(issue)
			if iteration == nil || iteration.Contains(assignedDate) {
				activity.MemberStats[login].AssignedIssues++
				activity.AssignedIssues[login] = append(activity.AssignedIssues[login], models.IssueRecord{
					Repo:         repo,
					Number:       issue.GetNumber(),
					Title:        issue.GetTitle(),
					State:        issue.GetState(),
					AssignedDate: assignedDate,
				})
				totalAssigned++
			}

			if issue.GetState() != "closed" || issue.ClosedAt == nil {
				continue
			}
			closedDate := issue.GetClosedAt().Time.UTC()
			if iteration == nil || iteration.Contains(closedDate) {
				activity.MemberStats[login].ClosedIssues++
				activity.ClosedIssues[login] = append(activity.ClosedIssues[login], models.ClosedIssueRecord{
					Repo:       repo,
					Number:     issue.GetNumber(),
					Title:      issue.GetTitle(),
					ClosedDate: closedDate,
				})
				totalClosed++
			}
		}
	}

	return totalAssigned, totalClosed
}

func (s *IssueService) listIssues(ctx context.Context, owner, repo string) ([]*github.Issue, error) {
	var allIssues []*github.Issue
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		issues, resp, err := s.gh.Client().Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		allIssues = append(allIssues, issues...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allIssues, nil
}

// issueAssignmentDate approximates the assignment time with the issue's
// creation time; per-assignee assignment events are not exposed by the
// list endpoint.
func issueAssignmentDate(issue *github.Issue) time.Time {
	return issue.GetCreatedAt().Time.UTC()
}
