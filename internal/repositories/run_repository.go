package repositories

import (
	"database/sql"
	"sync"

	"github.com/jqzhao-umich/github-report/internal/models"
)

type RunRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(run *models.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO report_runs (
			id, org_name, iteration_name, status, error_message,
			started_at, completed_at, repositories_processed, commits_processed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID, run.OrgName, run.IterationName, run.Status, run.ErrorMessage,
		run.StartedAt, run.CompletedAt, run.RepositoriesProcessed, run.CommitsProcessed,
	)

	return err
}

func (r *RunRepository) Update(run *models.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE report_runs
		SET iteration_name = ?, status = ?, error_message = ?, completed_at = ?,
			repositories_processed = ?, commits_processed = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		run.IterationName, run.Status, run.ErrorMessage, run.CompletedAt,
		run.RepositoriesProcessed, run.CommitsProcessed, run.ID,
	)

	return err
}

func (r *RunRepository) GetByID(id string) (*models.ReportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, org_name, iteration_name, status, error_message,
			started_at, completed_at, repositories_processed, commits_processed
		FROM report_runs
		WHERE id = ?
	`

	var run models.ReportRun
	err := r.db.QueryRow(query, id).Scan(
		&run.ID, &run.OrgName, &run.IterationName, &run.Status, &run.ErrorMessage,
		&run.StartedAt, &run.CompletedAt, &run.RepositoriesProcessed, &run.CommitsProcessed,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRecent returns the most recent runs, newest first
func (r *RunRepository) ListRecent(limit int) ([]*models.ReportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, org_name, iteration_name, status, error_message,
			started_at, completed_at, repositories_processed, commits_processed
		FROM report_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ReportRun
	for rows.Next() {
		var run models.ReportRun
		err := rows.Scan(
			&run.ID, &run.OrgName, &run.IterationName, &run.Status, &run.ErrorMessage,
			&run.StartedAt, &run.CompletedAt, &run.RepositoriesProcessed, &run.CommitsProcessed,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
