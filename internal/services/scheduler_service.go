package services

import (
	"context"
	"time"

	"github.com/jqzhao-umich/github-report/pkg/config"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

type reportGenerator interface {
	Generate(ctx context.Context, orgName, projectName string) (*ReportResult, error)
}

type reportPublisher interface {
	Publish(req PublishRequest) (*PublishResult, error)
}

type artifactPusher interface {
	CommitAndPush(paths []string, message string) (GitPublishStatus, error)
}

// SchedulerService triggers an automatic report run once the configured
// iteration has ended. It checks hourly and publishes at most once per
// configured iteration.
type SchedulerService struct {
	cfg       *config.Config
	reports   reportGenerator
	publisher reportPublisher
	pusher    artifactPusher

	lastPublishedEnd string
	stop             chan struct{}
}

func NewSchedulerService(
	cfg *config.Config,
	reports reportGenerator,
	publisher reportPublisher,
	pusher artifactPusher,
) *SchedulerService {
	return &SchedulerService{
		cfg:       cfg,
		reports:   reports,
		publisher: publisher,
		pusher:    pusher,
		stop:      make(chan struct{}),
	}
}

// StartScheduler starts the automatic end-of-iteration publisher
func (s *SchedulerService) StartScheduler() {
	go func() {
		for {
			now := time.Now().UTC()
			s.runDueReport(now)

			// Sleep until the next hour
			nextHour := now.Add(1 * time.Hour)
			nextHour = time.Date(nextHour.Year(), nextHour.Month(), nextHour.Day(), nextHour.Hour(), 0, 0, 0, nextHour.Location())

			select {
			case <-s.stop:
				return
			case <-time.After(nextHour.Sub(now)):
			}
		}
	}()
}

// Stop shuts down the scheduler loop
func (s *SchedulerService) Stop() {
	close(s.stop)
}

// runDueReport is one scheduler tick: publish once the configured
// iteration has ended. The marker guarantees at most one run per
// configured iteration; a skipped publish advances it too, a failed run
// does not and is retried on the next tick.
func (s *SchedulerService) runDueReport(now time.Time) {
	endDate, err := s.configuredIterationEnd()
	if err != nil {
		logger.WithError(err).Warnf("Invalid GITHUB_ITERATION_END value %q, scheduler idle", s.cfg.Iteration.End)
		return
	}
	if endDate.IsZero() || !now.After(endDate) || s.lastPublishedEnd == s.cfg.Iteration.End {
		return
	}

	logger.Infof("Iteration ended at %s, generating report", endDate.Format(time.RFC3339))
	if err := s.runScheduledReport(); err != nil {
		logger.WithError(err).Errorf("Scheduled report run failed")
		return
	}
	s.lastPublishedEnd = s.cfg.Iteration.End
}

// configuredIterationEnd parses GITHUB_ITERATION_END. A date-only value
// means the iteration runs through the end of that day.
func (s *SchedulerService) configuredIterationEnd() (time.Time, error) {
	raw := s.cfg.Iteration.End
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (s *SchedulerService) runScheduledReport() error {
	ctx := context.Background()

	result, err := s.reports.Generate(ctx, s.cfg.GitHub.OrgName, s.cfg.GitHub.ProjectName)
	if err != nil {
		return err
	}

	req := PublishRequest{
		ReportText: result.Text,
		OrgName:    result.OrgName,
		Activity:   result.Activity,
	}
	if result.Iteration != nil {
		req.IterationName = result.Iteration.Name
		req.StartDate = result.Iteration.StartDate.Format("2006-01-02")
		req.EndDate = result.Iteration.EndDate.Format("2006-01-02")
	}

	publishResult, err := s.publisher.Publish(req)
	if err != nil {
		return err
	}
	if publishResult.Status == PublishStatusSkipped {
		logger.Info("Scheduled report already published, nothing to push")
		return nil
	}

	if s.cfg.Publish.GitPushEnabled && s.pusher != nil {
		message := "Add report for " + result.OrgName
		if result.Iteration != nil {
			message += " - " + result.Iteration.Name
		}
		status, err := s.pusher.CommitAndPush([]string{s.cfg.Publish.DocsDir, s.cfg.Publish.ReportsDir}, message)
		if err != nil {
			logger.WithError(err).Errorf("Failed to push published report")
		} else {
			logger.Infof("Git publish finished with status %s", status)
		}
	}

	return nil
}
