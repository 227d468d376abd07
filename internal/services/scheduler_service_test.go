package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/config"
)

type fakeGenerator struct {
	calls  int
	result *ReportResult
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, orgName, projectName string) (*ReportResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePublisher struct {
	calls   int
	status  PublishStatus
	lastReq PublishRequest
}

func (f *fakePublisher) Publish(req PublishRequest) (*PublishResult, error) {
	f.calls++
	f.lastReq = req
	return &PublishResult{Status: f.status}, nil
}

type fakePusher struct {
	calls    int
	messages []string
}

func (f *fakePusher) CommitAndPush(paths []string, message string) (GitPublishStatus, error) {
	f.calls++
	f.messages = append(f.messages, message)
	return GitPublishStatusPushed, nil
}

func schedulerFixture(status PublishStatus, generateErr error) (*SchedulerService, *fakeGenerator, *fakePublisher, *fakePusher) {
	cfg := &config.Config{
		GitHub: config.GitHubConfig{OrgName: "testorg", ProjectName: "Task Board"},
		Iteration: config.IterationConfig{
			End: "2025-03-14",
		},
		Publish: config.PublishConfig{
			ReportsDir:     "./reports",
			DocsDir:        "./docs",
			GitPushEnabled: true,
		},
	}

	generator := &fakeGenerator{
		err: generateErr,
		result: &ReportResult{
			Text:    "report body",
			OrgName: "testorg",
			Iteration: &models.Iteration{
				Name:      "Sprint 3",
				StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			},
			Activity: models.NewOrgActivity([]string{"alice"}),
		},
	}
	publisher := &fakePublisher{status: status}
	pusher := &fakePusher{}

	return NewSchedulerService(cfg, generator, publisher, pusher), generator, publisher, pusher
}

func TestSchedulerPublishesOncePerIteration(t *testing.T) {
	scheduler, generator, publisher, pusher := schedulerFixture(PublishStatusPublished, nil)
	afterEnd := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)

	scheduler.runDueReport(afterEnd)

	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, 1, pusher.calls)
	require.Len(t, pusher.messages, 1)
	assert.Equal(t, "Add report for testorg - Sprint 3", pusher.messages[0])
	assert.Equal(t, "Sprint 3", publisher.lastReq.IterationName)
	assert.Equal(t, "2025-03-01", publisher.lastReq.StartDate)

	// Later ticks of the same iteration do nothing
	scheduler.runDueReport(afterEnd.Add(time.Hour))
	scheduler.runDueReport(afterEnd.Add(2 * time.Hour))

	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, publisher.calls)
}

func TestSchedulerWaitsForIterationEnd(t *testing.T) {
	scheduler, generator, publisher, _ := schedulerFixture(PublishStatusPublished, nil)

	// A date-only end runs through the end of that day
	scheduler.runDueReport(time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, generator.calls)

	scheduler.runDueReport(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, publisher.calls)
}

func TestSchedulerSkippedPublishAdvancesMarker(t *testing.T) {
	scheduler, generator, publisher, pusher := schedulerFixture(PublishStatusSkipped, nil)
	afterEnd := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)

	scheduler.runDueReport(afterEnd)

	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, 0, pusher.calls, "an unchanged report is not pushed")

	scheduler.runDueReport(afterEnd.Add(time.Hour))

	assert.Equal(t, 1, generator.calls, "a skipped publish still settles the iteration")
}

func TestSchedulerFailedRunRetriesNextTick(t *testing.T) {
	scheduler, generator, publisher, _ := schedulerFixture(PublishStatusPublished, errors.New("org unreachable"))
	afterEnd := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)

	scheduler.runDueReport(afterEnd)
	scheduler.runDueReport(afterEnd.Add(time.Hour))

	assert.Equal(t, 2, generator.calls)
	assert.Equal(t, 0, publisher.calls)
}

func TestSchedulerIdleWithoutConfiguredEnd(t *testing.T) {
	scheduler, generator, _, _ := schedulerFixture(PublishStatusPublished, nil)
	scheduler.cfg.Iteration.End = ""

	scheduler.runDueReport(time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC))

	assert.Equal(t, 0, generator.calls)
}

func TestSchedulerPushDisabled(t *testing.T) {
	scheduler, _, publisher, pusher := schedulerFixture(PublishStatusPublished, nil)
	scheduler.cfg.Publish.GitPushEnabled = false

	scheduler.runDueReport(time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, 0, pusher.calls)
}
