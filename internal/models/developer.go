package models

import (
	"errors"
	"time"
)

// Column names of the persisted developer table
const (
	ColumnUsername                = "username"
	ColumnFullname                = "fullname"
	ColumnCommits                 = "commits"
	ColumnPullRequests            = "pull_requests"
	ColumnReviews                 = "reviews"
	ColumnRepositoriesContributed = "repositories_contributed"
	ColumnLinesAdded              = "lines_added"
	ColumnLinesRemoved            = "lines_removed"
	ColumnScore                   = "score"
	ColumnLastUpdated             = "last_updated"
	ColumnManager                 = "manager"
)

// DeveloperColumns is the fixed schema of the developer table, in storage order.
var DeveloperColumns = []string{
	ColumnUsername,
	ColumnFullname,
	ColumnCommits,
	ColumnPullRequests,
	ColumnReviews,
	ColumnRepositoriesContributed,
	ColumnLinesAdded,
	ColumnLinesRemoved,
	ColumnScore,
	ColumnLastUpdated,
	ColumnManager,
}

// DateLayout is the on-disk representation of LastUpdated
const DateLayout = "2006-01-02"

var (
	ErrUsernameRequired  = errors.New("username is required")
	ErrDuplicateUsername = errors.New("duplicate username")
)

// DeveloperRecord is one row of the developer table, keyed by Username
type DeveloperRecord struct {
	Username                string     `json:"username"`
	Fullname                string     `json:"fullname"`
	Commits                 int        `json:"commits"`
	PullRequests            int        `json:"pull_requests"`
	Reviews                 int        `json:"reviews"`
	RepositoriesContributed int        `json:"repositories_contributed"`
	LinesAdded              int        `json:"lines_added"`
	LinesRemoved            int        `json:"lines_removed"`
	Score                   int        `json:"score"`
	LastUpdated             *time.Time `json:"last_updated"`
	Manager                 *string    `json:"manager"`
}

// NewDeveloperRecord creates a never-refreshed record with zeroed metrics
func NewDeveloperRecord(username, fullname string) *DeveloperRecord {
	return &DeveloperRecord{
		Username: username,
		Fullname: fullname,
	}
}

// Validate validates the DeveloperRecord fields
func (d *DeveloperRecord) Validate() error {
	if d.Username == "" {
		return ErrUsernameRequired
	}
	if d.Commits < 0 || d.PullRequests < 0 || d.Reviews < 0 ||
		d.RepositoriesContributed < 0 || d.LinesAdded < 0 || d.LinesRemoved < 0 {
		return errors.New("metric counts cannot be negative")
	}
	if d.Score < 0 || d.Score > 100 {
		return errors.New("score must be between 0 and 100")
	}
	return nil
}

// Metrics returns the metric counters carried by the record
func (d *DeveloperRecord) Metrics() Metrics {
	return Metrics{
		Commits:                 d.Commits,
		PullRequests:            d.PullRequests,
		Reviews:                 d.Reviews,
		RepositoriesContributed: d.RepositoriesContributed,
		LinesAdded:              d.LinesAdded,
		LinesRemoved:            d.LinesRemoved,
	}
}

// WithMetrics returns a full copy of the record carrying the given metrics, score
// and refresh date. Identity and manager are preserved.
func (d *DeveloperRecord) WithMetrics(m Metrics, score int, refreshedOn time.Time) *DeveloperRecord {
	updated := d.Clone()
	updated.Commits = m.Commits
	updated.PullRequests = m.PullRequests
	updated.Reviews = m.Reviews
	updated.RepositoriesContributed = m.RepositoriesContributed
	updated.LinesAdded = m.LinesAdded
	updated.LinesRemoved = m.LinesRemoved
	updated.Score = score
	day := TruncateToDate(refreshedOn)
	updated.LastUpdated = &day
	return updated
}

// Clone returns a deep copy of the record
func (d *DeveloperRecord) Clone() *DeveloperRecord {
	c := *d
	if d.LastUpdated != nil {
		t := *d.LastUpdated
		c.LastUpdated = &t
	}
	if d.Manager != nil {
		m := *d.Manager
		c.Manager = &m
	}
	return &c
}

// LastUpdatedString formats LastUpdated for storage, empty when never refreshed
func (d *DeveloperRecord) LastUpdatedString() string {
	if d.LastUpdated == nil {
		return ""
	}
	return d.LastUpdated.Format(DateLayout)
}

// ManagerString returns the manager, empty when unset
func (d *DeveloperRecord) ManagerString() string {
	if d.Manager == nil {
		return ""
	}
	return *d.Manager
}

// TruncateToDate returns UTC midnight of t's calendar date
func TruncateToDate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// DeveloperScore is the reporting view of a developer
type DeveloperScore struct {
	Fullname string `json:"fullname"`
	Score    int    `json:"score"`
}
