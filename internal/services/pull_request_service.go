package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

// PullRequestService collects pull request metrics: creations, merges,
// reviews and comments, attributed to organization members. Reviewer and
// commenter counting is set-based per PR.
type PullRequestService struct {
	gh *GitHubService
}

func NewPullRequestService(gh *GitHubService) *PullRequestService {
	return &PullRequestService{gh: gh}
}

// Collect walks all pull requests of owner/repo (state "all") and
// updates activity in place. Review/comment fetch failures for one PR
// are logged and skipped. Returns the counts of created, reviewed,
// merged and commented attributions recorded.
func (s *PullRequestService) Collect(
	ctx context.Context,
	owner, repo string,
	activity *models.OrgActivity,
	iteration *models.Iteration,
	excludeLogin string,
) (int, int, int, int) {
	prs, err := s.listPullRequests(ctx, owner, repo)
	if err != nil {
		logger.WithError(err).Warnf("Could not list pull requests for %s/%s", owner, repo)
		return 0, 0, 0, 0
	}

	created, reviewed, merged, commented := 0, 0, 0, 0

	for _, pr := range prs {
		createdIn, mergedIn, updatedIn := prWindowFlags(pr, iteration)
		if iteration != nil && !createdIn && !mergedIn && !updatedIn {
			continue
		}

		record := prRecord(pr, repo)

		// Creation attributes to the author
		if login := pr.GetUser().GetLogin(); login != "" && login != excludeLogin {
			if _, ok := activity.MemberStats[login]; ok && (iteration == nil || createdIn) {
				activity.MemberStats[login].PRCreated++
				activity.PRCreated[login] = appendPRRecord(activity.PRCreated[login], record)
				created++
			}
		}

		// Merge attributes to whoever merged, not the author
		if pr.MergedAt != nil && (iteration == nil || mergedIn) {
			if login := s.mergedBy(ctx, owner, repo, pr); login != "" && login != excludeLogin {
				if _, ok := activity.MemberStats[login]; ok {
					activity.MemberStats[login].PRMerged++
					activity.PRMerged[login] = appendPRRecord(activity.PRMerged[login], record)
					merged++
				}
			}
		}

		for _, login := range s.reviewerSet(ctx, owner, repo, pr.GetNumber(), activity, iteration, excludeLogin) {
			activity.MemberStats[login].PRReviewed++
			activity.PRReviewed[login] = appendPRRecord(activity.PRReviewed[login], record)
			reviewed++
		}

		for _, login := range s.commenterSet(ctx, owner, repo, pr.GetNumber(), activity, iteration, excludeLogin) {
			activity.MemberStats[login].PRCommented++
			activity.PRCommented[login] = appendPRRecord(activity.PRCommented[login], record)
			commented++
		}
	}

	return created, reviewed, merged, commented
}

// prWindowFlags classifies a PR against the iteration window by its
// creation, merge and update timestamps.
func prWindowFlags(pr *github.PullRequest, iteration *models.Iteration) (createdIn, mergedIn, updatedIn bool) {
	if iteration == nil {
		return true, true, true
	}
	createdIn = iteration.Contains(pr.GetCreatedAt().Time)
	if pr.MergedAt != nil {
		mergedIn = iteration.Contains(pr.MergedAt.Time)
	}
	updatedIn = iteration.Contains(pr.GetUpdatedAt().Time)
	return createdIn, mergedIn, updatedIn
}

func prRecord(pr *github.PullRequest, repo string) models.PRRecord {
	record := models.PRRecord{
		Repo:      repo,
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		CreatedAt: pr.GetCreatedAt().Time.UTC(),
	}
	if pr.MergedAt != nil {
		t := pr.MergedAt.Time.UTC()
		record.MergedAt = &t
	}
	if pr.ClosedAt != nil {
		t := pr.ClosedAt.Time.UTC()
		record.ClosedAt = &t
	}
	return record
}

// appendPRRecord appends record unless the same PR is already present
func appendPRRecord(records []models.PRRecord, record models.PRRecord) []models.PRRecord {
	for _, existing := range records {
		if existing.SamePR(record) {
			return records
		}
	}
	return append(records, record)
}

// mergedBy returns the login of the user who merged the PR. The list
// endpoint omits merged_by, so the PR detail is fetched on demand.
func (s *PullRequestService) mergedBy(ctx context.Context, owner, repo string, pr *github.PullRequest) string {
	if pr.MergedBy != nil {
		return pr.MergedBy.GetLogin()
	}

	detail, _, err := s.gh.Client().PullRequests.Get(ctx, owner, repo, pr.GetNumber())
	if err != nil {
		logger.WithError(err).Warnf("Could not fetch merged_by for PR #%d in %s/%s", pr.GetNumber(), owner, repo)
		return ""
	}
	return detail.GetMergedBy().GetLogin()
}

// reviewerSet returns the distinct member logins whose review submission
// falls inside the window, sorted for deterministic processing.
func (s *PullRequestService) reviewerSet(
	ctx context.Context,
	owner, repo string,
	prNumber int,
	activity *models.OrgActivity,
	iteration *models.Iteration,
	excludeLogin string,
) []string {
	reviews, err := s.listReviews(ctx, owner, repo, prNumber)
	if err != nil {
		logger.WithError(err).Warnf("Could not fetch reviews for PR #%d in %s/%s", prNumber, owner, repo)
		return nil
	}

	set := make(map[string]bool)
	for _, review := range reviews {
		login := review.GetUser().GetLogin()
		if login == "" || login == excludeLogin {
			continue
		}
		if _, ok := activity.MemberStats[login]; !ok {
			continue
		}
		if iteration != nil {
			submitted := review.GetSubmittedAt().Time
			if submitted.IsZero() || !iteration.Contains(submitted) {
				continue
			}
		}
		set[login] = true
	}

	return sortedLogins(set)
}

// commenterSet merges review comments and issue comments into one
// distinct set of member logins with an in-window comment on the PR.
func (s *PullRequestService) commenterSet(
	ctx context.Context,
	owner, repo string,
	prNumber int,
	activity *models.OrgActivity,
	iteration *models.Iteration,
	excludeLogin string,
) []string {
	set := make(map[string]bool)

	collect := func(login string, createdAt time.Time) {
		if login == "" || login == excludeLogin {
			return
		}
		if _, ok := activity.MemberStats[login]; !ok {
			return
		}
		if iteration != nil && !iteration.Contains(createdAt) {
			return
		}
		set[login] = true
	}

	reviewComments, err := s.listReviewComments(ctx, owner, repo, prNumber)
	if err != nil {
		logger.WithError(err).Warnf("Could not fetch review comments for PR #%d in %s/%s", prNumber, owner, repo)
	} else {
		for _, comment := range reviewComments {
			collect(comment.GetUser().GetLogin(), comment.GetCreatedAt().Time)
		}
	}

	issueComments, err := s.listIssueComments(ctx, owner, repo, prNumber)
	if err != nil {
		logger.WithError(err).Warnf("Could not fetch issue comments for PR #%d in %s/%s", prNumber, owner, repo)
	} else {
		for _, comment := range issueComments {
			collect(comment.GetUser().GetLogin(), comment.GetCreatedAt().Time)
		}
	}

	return sortedLogins(set)
}

func sortedLogins(set map[string]bool) []string {
	logins := make([]string, 0, len(set))
	for login := range set {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins
}

func (s *PullRequestService) listPullRequests(ctx context.Context, owner, repo string) ([]*github.PullRequest, error) {
	var allPRs []*github.PullRequest
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		prs, resp, err := s.gh.Client().PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		allPRs = append(allPRs, prs...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allPRs, nil
}

func (s *PullRequestService) listReviews(ctx context.Context, owner, repo string, prNumber int) ([]*github.PullRequestReview, error) {
	var allReviews []*github.PullRequestReview
	opts := &github.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := s.gh.Client().PullRequests.ListReviews(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, err
		}
		allReviews = append(allReviews, reviews...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allReviews, nil
}

func (s *PullRequestService) listReviewComments(ctx context.Context, owner, repo string, prNumber int) ([]*github.PullRequestComment, error) {
	var allComments []*github.PullRequestComment
	opts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		comments, resp, err := s.gh.Client().PullRequests.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, err
		}
		allComments = append(allComments, comments...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

func (s *PullRequestService) listIssueComments(ctx context.Context, owner, repo string, prNumber int) ([]*github.IssueComment, error) {
	var allComments []*github.IssueComment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		comments, resp, err := s.gh.Client().Issues.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, err
		}
		allComments = append(allComments, comments...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}
