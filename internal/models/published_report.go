package models

import (
	"time"

	"github.com/google/uuid"
)

// PublishedReport is one row of the published-report index. At most one
// exists per (org, iteration) pair.
type PublishedReport struct {
	ID            string    `json:"id"`
	OrgName       string    `json:"org_name"`
	IterationName string    `json:"iteration_name"`
	Title         string    `json:"title"`
	MarkdownPath  string    `json:"markdown_path"`
	HTMLPath      string    `json:"html_path"`
	XLSXPath      *string   `json:"xlsx_path"`
	ContentHash   string    `json:"content_hash"`
	StartDate     *string   `json:"start_date"`
	EndDate       *string   `json:"end_date"`
	PublishedAt   time.Time `json:"published_at"`
}

// NewPublishedReport creates a new PublishedReport with a generated UUID
func NewPublishedReport(orgName, iterationName, title string) *PublishedReport {
	return &PublishedReport{
		ID:            uuid.New().String(),
		OrgName:       orgName,
		IterationName: iterationName,
		Title:         title,
		PublishedAt:   time.Now().UTC(),
	}
}
