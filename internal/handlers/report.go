package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jqzhao-umich/github-report/internal/apperrors"
	"github.com/jqzhao-umich/github-report/internal/repositories"
	"github.com/jqzhao-umich/github-report/internal/services"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

type ReportHandler struct {
	reportService    *services.ReportService
	publisherService *services.PublisherService
	reportRepo       *repositories.ReportRepository
	runRepo          *repositories.RunRepository
	orgName          string
	projectName      string
}

func NewReportHandler(reportService *services.ReportService, publisherService *services.PublisherService,
	reportRepo *repositories.ReportRepository, runRepo *repositories.RunRepository,
	orgName, projectName string) *ReportHandler {
	return &ReportHandler{
		reportService:    reportService,
		publisherService: publisherService,
		reportRepo:       reportRepo,
		runRepo:          runRepo,
		orgName:          orgName,
		projectName:      projectName,
	}
}

// GetReport generates the organization report and returns it as plain text
func (h *ReportHandler) GetReport(c *gin.Context) {
	result, err := h.reportService.Generate(c.Request.Context(), h.orgName, h.projectName)
	if err != nil {
		logger.WithError(err).Errorf("Report generation failed")
		c.String(statusForError(err), "Error generating report: %v", err)
		return
	}

	c.String(http.StatusOK, result.Text)
}

// PublishReport generates and publishes a report in the background
func (h *ReportHandler) PublishReport(c *gin.Context) {
	var body struct {
		SkipDuplicateCheck bool `json:"skip_duplicate_check"`
	}
	// Empty body means default options
	_ = c.ShouldBindJSON(&body)

	go func(skipDuplicateCheck bool) {
		ctx := context.Background()

		result, err := h.reportService.Generate(ctx, h.orgName, h.projectName)
		if err != nil {
			logger.WithError(err).Errorf("Background report generation failed")
			return
		}

		req := services.PublishRequest{
			ReportText:         result.Text,
			OrgName:            result.OrgName,
			Activity:           result.Activity,
			SkipDuplicateCheck: skipDuplicateCheck,
		}
		if result.Iteration != nil {
			req.IterationName = result.Iteration.Name
			req.StartDate = result.Iteration.StartDate.Format("2006-01-02")
			req.EndDate = result.Iteration.EndDate.Format("2006-01-02")
		}

		publishResult, err := h.publisherService.Publish(req)
		if err != nil {
			logger.WithError(err).Errorf("Background report publish failed")
			return
		}
		logger.Infof("Background publish finished with status %s", publishResult.Status)
	}(body.SkipDuplicateCheck)

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Report generation started",
	})
}

// ListReports returns the published-report index
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.reportRepo.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ListRuns returns recent report runs, newest first
func (h *ReportHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list report runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrAccess):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
