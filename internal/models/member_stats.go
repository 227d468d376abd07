package models

// MemberStats holds the seven activity counters for one organization
// member. Counters only ever increase during collection.
type MemberStats struct {
	Commits        int `json:"commits"`
	AssignedIssues int `json:"assigned_issues"`
	ClosedIssues   int `json:"closed_issues"`
	PRCreated      int `json:"pr_created"`
	PRReviewed     int `json:"pr_reviewed"`
	PRMerged       int `json:"pr_merged"`
	PRCommented    int `json:"pr_commented"`
}

// HasActivity reports whether any counter is nonzero
func (s *MemberStats) HasActivity() bool {
	return s.Commits > 0 || s.AssignedIssues > 0 || s.ClosedIssues > 0 ||
		s.PRCreated > 0 || s.PRReviewed > 0 || s.PRMerged > 0 || s.PRCommented > 0
}
