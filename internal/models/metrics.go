package models

import "time"

// Metrics is the fixed-shape activity record returned by a metrics source.
// The zero value is a valid "no data" record.
type Metrics struct {
	Commits                 int `json:"commits"`
	PullRequests            int `json:"pull_requests"`
	Reviews                 int `json:"reviews"`
	RepositoriesContributed int `json:"repositories_contributed"`
	LinesAdded              int `json:"lines_added"`
	LinesRemoved            int `json:"lines_removed"`
}

// IsZero reports whether every counter is zero
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

// IsSuspect reports lines changed without any commits, which usually means the
// token could not see the commits (attribution or permission problems).
func (m Metrics) IsSuspect() bool {
	return m.Commits == 0 && (m.LinesAdded > 0 || m.LinesRemoved > 0)
}

// FetchOptions scopes a metrics fetch
type FetchOptions struct {
	DaysBack          int  `json:"days_back"`
	ExcludePrivate    bool `json:"exclude_private"`
	OnlyOrganizations bool `json:"only_organizations"`
}

// DefaultFetchOptions returns a one year window over all visible repositories
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{DaysBack: 365}
}

// Since returns the start of the contribution window relative to now
func (o FetchOptions) Since(now time.Time) time.Time {
	days := o.DaysBack
	if days <= 0 {
		days = 365
	}
	return now.AddDate(0, 0, -days)
}
