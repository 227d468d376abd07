package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/internal/repositories"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

// PublishStatus is the outcome of a publish call
type PublishStatus string

const (
	PublishStatusPublished PublishStatus = "published"
	PublishStatusSkipped   PublishStatus = "skipped"
)

// PublishRequest carries one rendered report into the publisher
type PublishRequest struct {
	ReportText    string
	OrgName       string
	IterationName string
	StartDate     string
	EndDate       string
	// SkipDuplicateCheck forces a republish even when the content for
	// this (org, iteration) key is unchanged.
	SkipDuplicateCheck bool
	// Activity, when set, adds an XLSX summary workbook to the artifacts
	Activity *models.OrgActivity
}

// PublishResult reports the outcome and artifact paths
type PublishResult struct {
	Status       PublishStatus `json:"status"`
	MarkdownPath string        `json:"markdown"`
	HTMLPath     string        `json:"html"`
	XLSXPath     string        `json:"xlsx,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// PublisherService persists rendered reports as markdown/HTML/XLSX
// artifacts and maintains the published-report index. It guarantees at
// most one artifact set per (org, iteration) key: republishing different
// content replaces the prior set and updates the index row in place.
type PublisherService struct {
	reportsDir string
	docsDir    string
	reportRepo *repositories.ReportRepository
}

func NewPublisherService(reportsDir, docsDir string, reportRepo *repositories.ReportRepository) *PublisherService {
	return &PublisherService{
		reportsDir: reportsDir,
		docsDir:    docsDir,
		reportRepo: reportRepo,
	}
}

// Publish writes the report artifacts and updates the index. Identical
// content for an already-published key returns a skipped result unless
// SkipDuplicateCheck is set.
func (s *PublisherService) Publish(req PublishRequest) (*PublishResult, error) {
	if req.OrgName == "" {
		return nil, fmt.Errorf("org name is required")
	}
	if err := s.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to prepare publish directories: %w", err)
	}

	iterationName := req.IterationName
	if iterationName == "" {
		iterationName = "no-iteration"
	}

	hash := contentHash(req.ReportText)
	existing, err := s.reportRepo.GetByOrgAndIteration(req.OrgName, iterationName)
	if err != nil {
		return nil, fmt.Errorf("failed to query report index: %w", err)
	}

	if existing != nil && !req.SkipDuplicateCheck && existing.ContentHash == hash {
		logger.Infof("Report for %s / %s already published with identical content", req.OrgName, iterationName)
		result := &PublishResult{
			Status:       PublishStatusSkipped,
			MarkdownPath: existing.MarkdownPath,
			HTMLPath:     existing.HTMLPath,
			Message:      "report already published",
		}
		if existing.XLSXPath != nil {
			result.XLSXPath = *existing.XLSXPath
		}
		return result, nil
	}

	baseName := artifactBaseName(req.OrgName, iterationName)
	mdPath := filepath.Join(s.reportsDir, baseName+".md")
	htmlPath := filepath.Join(s.docsDir, baseName+".html")
	xlsxPath := filepath.Join(s.reportsDir, baseName+".xlsx")

	// Replacing an existing key: remove the prior artifact set first so
	// renamed slugs cannot leave a second pair behind
	if existing != nil {
		s.removeArtifacts(existing)
	}

	if err := writeFileAtomic(mdPath, []byte(req.ReportText)); err != nil {
		return nil, fmt.Errorf("failed to write markdown artifact: %w", err)
	}

	htmlContent, err := s.renderHTML(req)
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML artifact: %w", err)
	}
	if err := writeFileAtomic(htmlPath, htmlContent); err != nil {
		return nil, fmt.Errorf("failed to write HTML artifact: %w", err)
	}

	wroteXLSX := false
	if req.Activity != nil {
		if err := writeSummaryWorkbook(xlsxPath, req.Activity); err != nil {
			logger.WithError(err).Warnf("Could not write XLSX summary for %s", baseName)
		} else {
			wroteXLSX = true
		}
	}

	record := existing
	if record == nil {
		record = models.NewPublishedReport(req.OrgName, iterationName, reportTitle(req.OrgName, req.IterationName))
	} else {
		record.Title = reportTitle(req.OrgName, req.IterationName)
		record.PublishedAt = time.Now().UTC()
	}
	record.MarkdownPath = mdPath
	record.HTMLPath = htmlPath
	record.ContentHash = hash
	record.XLSXPath = nil
	if wroteXLSX {
		record.XLSXPath = &xlsxPath
	}
	record.StartDate = optionalString(req.StartDate)
	record.EndDate = optionalString(req.EndDate)

	if existing == nil {
		err = s.reportRepo.Create(record)
	} else {
		err = s.reportRepo.Update(record)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report index: %w", err)
	}

	if err := s.writeReportsJSON(); err != nil {
		logger.WithError(err).Warnf("Could not regenerate reports.json")
	}

	logger.Infof("Published report for %s / %s", req.OrgName, iterationName)
	result := &PublishResult{
		Status:       PublishStatusPublished,
		MarkdownPath: mdPath,
		HTMLPath:     htmlPath,
	}
	if wroteXLSX {
		result.XLSXPath = xlsxPath
	}
	return result, nil
}

func (s *PublisherService) ensureDirectories() error {
	for _, dir := range []string{s.reportsDir, s.docsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	indexPath := filepath.Join(s.docsDir, "index.html")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := os.WriteFile(indexPath, []byte(indexPageHTML), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (s *PublisherService) removeArtifacts(report *models.PublishedReport) {
	paths := []string{report.MarkdownPath, report.HTMLPath}
	if report.XLSXPath != nil {
		paths = append(paths, *report.XLSXPath)
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.WithError(err).Warnf("Could not remove stale artifact %s", path)
		}
	}
}

// writeReportsJSON regenerates the static index consumed by the docs page
func (s *PublisherService) writeReportsJSON() error {
	reports, err := s.reportRepo.List()
	if err != nil {
		return err
	}

	type indexEntry struct {
		Date          string  `json:"date"`
		Title         string  `json:"title"`
		Path          string  `json:"path"`
		OrgName       string  `json:"org_name"`
		IterationName string  `json:"iteration_name"`
		StartDate     *string `json:"start_date"`
		EndDate       *string `json:"end_date"`
	}

	entries := make([]indexEntry, 0, len(reports))
	for _, report := range reports {
		entries = append(entries, indexEntry{
			Date:          report.PublishedAt.Format(time.RFC3339),
			Title:         report.Title,
			Path:          filepath.Base(report.HTMLPath),
			OrgName:       report.OrgName,
			IterationName: report.IterationName,
			StartDate:     report.StartDate,
			EndDate:       report.EndDate,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.docsDir, "reports.json"), data)
}

func (s *PublisherService) renderHTML(req PublishRequest) ([]byte, error) {
	var b strings.Builder
	err := reportPageTemplate.Execute(&b, map[string]any{
		"OrgName":       req.OrgName,
		"IterationName": orDefault(req.IterationName, "N/A"),
		"StartDate":     orDefault(req.StartDate, "N/A"),
		"EndDate":       orDefault(req.EndDate, "N/A"),
		"GeneratedAt":   time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		"ReportText":    req.ReportText,
	})
	if err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// writeSummaryWorkbook writes the per-member counters as an XLSX sheet
func writeSummaryWorkbook(path string, activity *models.OrgActivity) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headers := []string{"User", "Commits", "Assigned Issues", "Closed Issues",
		"PRs Created", "PRs Reviewed", "PRs Merged", "PRs Commented"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for row, login := range activity.MemberLogins {
		stats := activity.MemberStats[login]
		values := []any{login, stats.Commits, stats.AssignedIssues, stats.ClosedIssues,
			stats.PRCreated, stats.PRReviewed, stats.PRMerged, stats.PRCommented}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

func artifactBaseName(orgName, iterationName string) string {
	slug := strings.ToLower(strings.ReplaceAll(iterationName, " ", "-"))
	return orgName + "_" + slug
}

func reportTitle(orgName, iterationName string) string {
	title := "Report for " + orgName
	if iterationName != "" {
		title += " - " + iterationName
	}
	return title
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var reportPageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>GitHub Organization Report - {{.OrgName}}</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 1200px; margin: 0 auto; padding: 1rem; }
        .metadata { background-color: #f5f5f5; padding: 1rem; margin-bottom: 2rem; border-radius: 4px; }
        pre { background-color: #fafafa; padding: 1rem; overflow-x: auto; }
    </style>
</head>
<body>
    <div class="metadata">
        <h2>Report Metadata</h2>
        <p><strong>Organization:</strong> {{.OrgName}}</p>
        <p><strong>Iteration:</strong> {{.IterationName}}</p>
        <p><strong>Period:</strong> {{.StartDate}} to {{.EndDate}}</p>
        <p><strong>Generated:</strong> {{.GeneratedAt}}</p>
    </div>
    <pre>{{.ReportText}}</pre>
</body>
</html>
`))

const indexPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GitHub Organization Reports</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 1200px; margin: 0 auto; padding: 1rem; }
        .report-list { list-style: none; padding: 0; }
        .report-item { margin: 1rem 0; padding: 1rem; border: 1px solid #ddd; border-radius: 4px; }
        .report-item:hover { background-color: #f5f5f5; }
        .report-date { color: #666; }
        .report-title { font-size: 1.2rem; margin: 0.5rem 0; }
        .report-meta { font-size: 0.9rem; }
    </style>
</head>
<body>
    <h1>GitHub Organization Reports</h1>
    <div id="reports"></div>
    <script>
        async function loadReports() {
            const response = await fetch('reports.json');
            const reports = await response.json();
            const reportsDiv = document.getElementById('reports');
            const list = document.createElement('ul');
            list.className = 'report-list';

            reports.forEach(report => {
                const li = document.createElement('li');
                li.className = 'report-item';
                li.innerHTML = ` + "`" + `
                    <div class="report-date">${new Date(report.date).toLocaleDateString()}</div>
                    <div class="report-title"><a href="${report.path}">${report.title}</a></div>
                    <div class="report-meta">
                        Sprint: ${report.iteration_name || 'N/A'} |
                        Organization: ${report.org_name}
                    </div>` + "`" + `;
                list.appendChild(li);
            });

            reportsDiv.appendChild(list);
        }

        loadReports();
    </script>
</body>
</html>
`
