package models

import (
	"time"
)

// CommitRecord describes one attributed commit. Message holds only the
// first line; SHA holds the 7-character prefix.
type CommitRecord struct {
	Repo    string    `json:"repo"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	SHA     string    `json:"sha"`
	Branch  string    `json:"branch"`
}

// IssueRecord describes an issue assignment attributed to a member
type IssueRecord struct {
	Repo         string    `json:"repo"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	State        string    `json:"state"`
	AssignedDate time.Time `json:"assigned_date"`
}

// ClosedIssueRecord describes an issue closure attributed to a member
type ClosedIssueRecord struct {
	Repo       string    `json:"repo"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	ClosedDate time.Time `json:"closed_date"`
}

// PRRecord describes one pull request. The same logical PR may appear
// in up to four attribution buckets, identified by Repo+Number.
type PRRecord struct {
	Repo      string     `json:"repo"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

// SamePR reports whether other refers to the same pull request
func (r PRRecord) SamePR(other PRRecord) bool {
	return r.Repo == other.Repo && r.Number == other.Number
}

// OrgActivity aggregates everything the collectors produce for one run.
// All maps are keyed by member login.
type OrgActivity struct {
	MemberStats    map[string]*MemberStats        `json:"member_stats"`
	MemberLogins   []string                       `json:"member_logins"`
	CommitDetails  map[string][]CommitRecord      `json:"commit_details"`
	AssignedIssues map[string][]IssueRecord       `json:"assigned_issues"`
	ClosedIssues   map[string][]ClosedIssueRecord `json:"closed_issues"`
	PRCreated      map[string][]PRRecord          `json:"pr_created"`
	PRReviewed     map[string][]PRRecord          `json:"pr_reviewed"`
	PRMerged       map[string][]PRRecord          `json:"pr_merged"`
	PRCommented    map[string][]PRRecord          `json:"pr_commented"`
}

// NewOrgActivity initializes empty stats and detail lists for each login
func NewOrgActivity(logins []string) *OrgActivity {
	a := &OrgActivity{
		MemberStats:    make(map[string]*MemberStats),
		MemberLogins:   logins,
		CommitDetails:  make(map[string][]CommitRecord),
		AssignedIssues: make(map[string][]IssueRecord),
		ClosedIssues:   make(map[string][]ClosedIssueRecord),
		PRCreated:      make(map[string][]PRRecord),
		PRReviewed:     make(map[string][]PRRecord),
		PRMerged:       make(map[string][]PRRecord),
		PRCommented:    make(map[string][]PRRecord),
	}
	for _, login := range logins {
		a.MemberStats[login] = &MemberStats{}
	}
	return a
}
