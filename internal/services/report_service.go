package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/jqzhao-umich/github-report/internal/apperrors"
	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/internal/repositories"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

const sectionRule = "============================================================"

// ReportResult is one fully generated report: the rendered text plus the
// iteration it covers, if one was resolved.
type ReportResult struct {
	Text      string
	OrgName   string
	Iteration *models.Iteration
	Activity  *models.OrgActivity
}

// ReportService runs the full collection pipeline: resolve the
// iteration, build the member directory, walk every non-archived
// repository with the three collectors, and render the report text.
type ReportService struct {
	gh               *GitHubService
	iterationService *IterationService
	memberService    *MemberService
	commitService    *CommitService
	issueService     *IssueService
	prService        *PullRequestService
	runRepo          *repositories.RunRepository
}

func NewReportService(
	gh *GitHubService,
	iterationService *IterationService,
	memberService *MemberService,
	commitService *CommitService,
	issueService *IssueService,
	prService *PullRequestService,
	runRepo *repositories.RunRepository,
) *ReportService {
	return &ReportService{
		gh:               gh,
		iterationService: iterationService,
		memberService:    memberService,
		commitService:    commitService,
		issueService:     issueService,
		prService:        prService,
		runRepo:          runRepo,
	}
}

// Generate runs the pipeline for one organization and returns the
// rendered report. Authentication and organization access failures abort
// the run; everything narrower is logged and skipped.
func (s *ReportService) Generate(ctx context.Context, orgName, projectName string) (*ReportResult, error) {
	startTime := time.Now().UTC()

	run := models.NewReportRun(orgName)
	if s.runRepo != nil {
		if err := s.runRepo.Create(run); err != nil {
			logger.WithError(err).Warnf("Could not record report run")
		}
	}

	result, err := s.generate(ctx, orgName, projectName, startTime, run)
	if s.runRepo != nil {
		if err != nil {
			run.MarkFailed(err.Error())
		} else {
			run.MarkCompleted()
		}
		if updateErr := s.runRepo.Update(run); updateErr != nil {
			logger.WithError(updateErr).Warnf("Could not update report run")
		}
	}
	return result, err
}

func (s *ReportService) generate(ctx context.Context, orgName, projectName string, startTime time.Time, run *models.ReportRun) (*ReportResult, error) {
	excludeLogin, err := s.gh.AuthenticatedLogin(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infof("Authenticated as %s", excludeLogin)

	if err := s.gh.VerifyOrgAccess(ctx, orgName); err != nil {
		return nil, err
	}

	iteration, err := s.iterationService.Resolve(ctx, orgName, projectName, startTime)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoIteration) {
			return nil, err
		}
		// No window available: report all-time, unfiltered
		logger.Warnf("No iteration resolved for %s, reporting without a window", orgName)
		iteration = nil
	}
	if iteration != nil {
		run.IterationName = &iteration.Name
		logger.Infof("Reporting on iteration %q (%s to %s)",
			iteration.Name,
			iteration.StartDate.Format(time.RFC3339),
			iteration.EndDate.Format(time.RFC3339))
	}

	activity, emailToLogin, err := s.memberService.Build(ctx, orgName, excludeLogin)
	if err != nil {
		return nil, err
	}

	repos, err := s.listRepositories(ctx, orgName)
	if err != nil {
		return nil, &apperrors.AccessError{Resource: "repositories of " + orgName, Err: err}
	}

	for _, repo := range repos {
		if repo.GetArchived() {
			logger.Debugf("Skipping archived repository %s", repo.GetName())
			continue
		}
		repoName := repo.GetName()

		commits := s.commitService.Collect(ctx, orgName, repoName, activity, emailToLogin, iteration, excludeLogin)
		assigned, closed := s.issueService.Collect(ctx, orgName, repoName, activity, iteration)
		created, reviewed, merged, commented := s.prService.Collect(ctx, orgName, repoName, activity, iteration, excludeLogin)

		run.RepositoriesProcessed++
		run.CommitsProcessed += commits
		logger.WithFields(map[string]interface{}{
			"repo":         repoName,
			"commits":      commits,
			"assigned":     assigned,
			"closed":       closed,
			"pr_created":   created,
			"pr_reviewed":  reviewed,
			"pr_merged":    merged,
			"pr_commented": commented,
		}).Info("Repository processed")
	}

	text := RenderReport(orgName, iteration, activity, startTime, time.Now().UTC())
	return &ReportResult{
		Text:      text,
		OrgName:   orgName,
		Iteration: iteration,
		Activity:  activity,
	}, nil
}

func (s *ReportService) listRepositories(ctx context.Context, orgName string) ([]*github.Repository, error) {
	var allRepos []*github.Repository
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		repos, resp, err := s.gh.Client().Repositories.ListByOrg(ctx, orgName, opts)
		if err != nil {
			return nil, err
		}
		allRepos = append(allRepos, repos...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// RenderReport renders the plain-text report: header, iteration block,
// fixed-width summary table over every member, and a detailed section
// per member with activity.
func RenderReport(orgName string, iteration *models.Iteration, activity *models.OrgActivity, startTime, endTime time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub Organization: %s\n", orgName)
	fmt.Fprintf(&b, "Report started on: %s UTC\n\n", startTime.Format("2006-01-02 15:04:05"))

	if iteration != nil {
		b.WriteString(sectionRule + "\n")
		b.WriteString("CURRENT ITERATION INFORMATION\n")
		b.WriteString(sectionRule + "\n")
		fmt.Fprintf(&b, "Iteration Name: %s\n", iteration.Name)
		fmt.Fprintf(&b, "Start Date: %s\n", iteration.StartDate.Format(time.RFC3339))
		fmt.Fprintf(&b, "End Date: %s\n", iteration.EndDate.Format(time.RFC3339))
		if iteration.Path != "" {
			fmt.Fprintf(&b, "Iteration Path: %s\n", iteration.Path)
		}
		b.WriteString(sectionRule + "\n\n")
	}

	b.WriteString("\nSUMMARY\n")
	b.WriteString(sectionRule + "\n")
	fmt.Fprintf(&b, "%-20s | %-7s | %-14s | %-13s | %-11s | %-12s | %-10s | %-13s\n",
		"User", "Commits", "Assigned Issues", "Closed Issues",
		"PRs Created", "PRs Reviewed", "PRs Merged", "PRs Commented")
	b.WriteString(strings.Repeat("-", 140) + "\n")

	for _, login := range activity.MemberLogins {
		stats := activity.MemberStats[login]
		fmt.Fprintf(&b, "%-20s | %7d | %14d | %13d | %11d | %12d | %10d | %13d\n",
			login, stats.Commits, stats.AssignedIssues, stats.ClosedIssues,
			stats.PRCreated, stats.PRReviewed, stats.PRMerged, stats.PRCommented)
	}

	b.WriteString("\nDETAILED ACTIVITY\n")
	b.WriteString(sectionRule + "\n")

	for _, login := range activity.MemberLogins {
		stats := activity.MemberStats[login]
		if !stats.HasActivity() {
			continue
		}

		fmt.Fprintf(&b, "\nUser: %s\n", login)
		b.WriteString(strings.Repeat("-", 40) + "\n")

		if stats.Commits > 0 {
			b.WriteString("\nCommits:\n")
			for _, commit := range activity.CommitDetails[login] {
				fmt.Fprintf(&b, "- [%s] %s (%s)\n", commit.Repo, commit.Message, commit.Date.Format("2006-01-02"))
			}
		}

		if stats.AssignedIssues > 0 {
			b.WriteString("\nAssigned Issues:\n")
			for _, issue := range activity.AssignedIssues[login] {
				fmt.Fprintf(&b, "- [%s] #%d %s (%s)\n", issue.Repo, issue.Number, issue.Title, issueStatus(issue.State))
			}
		}

		if stats.ClosedIssues > 0 {
			b.WriteString("\nClosed Issues:\n")
			for _, issue := range activity.ClosedIssues[login] {
				fmt.Fprintf(&b, "- [%s] #%d %s (Closed on %s)\n", issue.Repo, issue.Number, issue.Title, issue.ClosedDate.Format("2006-01-02"))
			}
		}

		if stats.PRCreated > 0 {
			b.WriteString("\nPull Requests Created:\n")
			for _, pr := range activity.PRCreated[login] {
				fmt.Fprintf(&b, "- [%s] #%d %s (%s)\n", pr.Repo, pr.Number, pr.Title, prStatus(pr))
			}
		}

		if stats.PRReviewed > 0 {
			b.WriteString("\nPull Requests Reviewed:\n")
			for _, pr := range activity.PRReviewed[login] {
				fmt.Fprintf(&b, "- [%s] #%d %s (%s)\n", pr.Repo, pr.Number, pr.Title, prStatus(pr))
			}
		}

		if stats.PRMerged > 0 {
			b.WriteString("\nPull Requests Merged:\n")
			for _, pr := range activity.PRMerged[login] {
				mergedDate := "N/A"
				if pr.MergedAt != nil {
					mergedDate = pr.MergedAt.Format("2006-01-02")
				}
				fmt.Fprintf(&b, "- [%s] #%d %s (Merged on %s)\n", pr.Repo, pr.Number, pr.Title, mergedDate)
			}
		}

		if stats.PRCommented > 0 {
			b.WriteString("\nPull Requests Commented:\n")
			for _, pr := range activity.PRCommented[login] {
				fmt.Fprintf(&b, "- [%s] #%d %s (%s)\n", pr.Repo, pr.Number, pr.Title, prStatus(pr))
			}
		}

		b.WriteString("\n")
	}

	b.WriteString(sectionRule + "\n")
	fmt.Fprintf(&b, "Report completed on: %s UTC\n", endTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Generation time: %.2f seconds\n", endTime.Sub(startTime).Seconds())

	return b.String()
}

func issueStatus(state string) string {
	if state == "open" {
		return "Open"
	}
	return "Closed"
}

func prStatus(pr models.PRRecord) string {
	if pr.MergedAt != nil {
		return "Merged"
	}
	if pr.State == "closed" {
		return "Closed"
	}
	return "Open"
}
