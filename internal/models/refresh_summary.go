package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSummary describes one refresh batch
type RefreshSummary struct {
	RunID       string    `json:"run_id"`
	AsOf        time.Time `json:"as_of"`
	Total       int       `json:"total"`
	Refreshed   int       `json:"refreshed"`
	Skipped     int       `json:"skipped"`
	Suspect     int       `json:"suspect"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewRefreshSummary creates a new RefreshSummary with a generated run ID
func NewRefreshSummary(asOf time.Time) *RefreshSummary {
	return &RefreshSummary{
		RunID:     uuid.New().String(),
		AsOf:      TruncateToDate(asOf),
		StartedAt: time.Now(),
	}
}

// MarkCompleted stamps the completion time
func (s *RefreshSummary) MarkCompleted() {
	s.CompletedAt = time.Now()
}

// Duration returns how long the batch took
func (s *RefreshSummary) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
