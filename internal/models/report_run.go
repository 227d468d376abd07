package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a report run
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in-progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// ReportRun records one execution of the collection pipeline
type ReportRun struct {
	ID                    string     `json:"id"`
	OrgName               string     `json:"org_name"`
	IterationName         *string    `json:"iteration_name"`
	Status                RunStatus  `json:"status"`
	ErrorMessage          *string    `json:"error_message"`
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	RepositoriesProcessed int        `json:"repositories_processed"`
	CommitsProcessed      int        `json:"commits_processed"`
}

// NewReportRun creates a new in-progress ReportRun with a generated UUID
func NewReportRun(orgName string) *ReportRun {
	return &ReportRun{
		ID:        uuid.New().String(),
		OrgName:   orgName,
		Status:    RunStatusInProgress,
		StartedAt: time.Now().UTC(),
	}
}

// MarkCompleted marks the run as completed
func (r *ReportRun) MarkCompleted() {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
}

// MarkFailed marks the run as failed with an error message
func (r *ReportRun) MarkFailed(message string) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.ErrorMessage = &message
	r.CompletedAt = &now
}
