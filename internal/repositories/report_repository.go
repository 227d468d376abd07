package repositories

import (
	"database/sql"
	"sync"

	"github.com/jqzhao-umich/github-report/internal/models"
)

type ReportRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(report *models.PublishedReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO published_reports (
			id, org_name, iteration_name, title, markdown_path, html_path,
			xlsx_path, content_hash, start_date, end_date, published_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		report.ID, report.OrgName, report.IterationName, report.Title,
		report.MarkdownPath, report.HTMLPath, report.XLSXPath,
		report.ContentHash, report.StartDate, report.EndDate, report.PublishedAt,
	)

	return err
}

// Update rewrites an existing index row in place, keyed by its ID
func (r *ReportRepository) Update(report *models.PublishedReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE published_reports
		SET title = ?, markdown_path = ?, html_path = ?, xlsx_path = ?,
			content_hash = ?, start_date = ?, end_date = ?, published_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		report.Title, report.MarkdownPath, report.HTMLPath, report.XLSXPath,
		report.ContentHash, report.StartDate, report.EndDate, report.PublishedAt,
		report.ID,
	)

	return err
}

// GetByOrgAndIteration returns the index entry for one (org, iteration)
// key, or nil when none exists.
func (r *ReportRepository) GetByOrgAndIteration(orgName, iterationName string) (*models.PublishedReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, org_name, iteration_name, title, markdown_path, html_path,
			xlsx_path, content_hash, start_date, end_date, published_at
		FROM published_reports
		WHERE org_name = ? AND iteration_name = ?
	`

	var report models.PublishedReport
	err := r.db.QueryRow(query, orgName, iterationName).Scan(
		&report.ID, &report.OrgName, &report.IterationName, &report.Title,
		&report.MarkdownPath, &report.HTMLPath, &report.XLSXPath,
		&report.ContentHash, &report.StartDate, &report.EndDate, &report.PublishedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &report, nil
}

// List returns all published reports, most recent first
func (r *ReportRepository) List() ([]*models.PublishedReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, org_name, iteration_name, title, markdown_path, html_path,
			xlsx_path, content_hash, start_date, end_date, published_at
		FROM published_reports
		ORDER BY published_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.PublishedReport
	for rows.Next() {
		var report models.PublishedReport
		err := rows.Scan(
			&report.ID, &report.OrgName, &report.IterationName, &report.Title,
			&report.MarkdownPath, &report.HTMLPath, &report.XLSXPath,
			&report.ContentHash, &report.StartDate, &report.EndDate, &report.PublishedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}
