package models

import (
	"time"
)

// Iteration is the reporting window resolved from a GitHub Projects
// iteration field, or from the environment fallback. Immutable once
// resolved for a run.
type Iteration struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Path      string    `json:"path"`
}

// Contains reports whether t falls inside the iteration window,
// inclusive on both ends. Comparison happens in UTC.
func (i *Iteration) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(i.StartDate.UTC()) && !t.After(i.EndDate.UTC())
}
