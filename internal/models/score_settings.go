package models

import (
	"fmt"
	"math"
)

// Metric names used as keys in the score weight and cap tables
const (
	MetricCommits                 = "commits"
	MetricPullRequests            = "pull_requests"
	MetricReviews                 = "reviews"
	MetricRepositoriesContributed = "repositories_contributed"
	MetricLinesAdded              = "lines_added"
	MetricLinesRemoved            = "lines_removed"
)

// ScoreMetrics lists the scored metrics in a stable order
var ScoreMetrics = []string{
	MetricCommits,
	MetricPullRequests,
	MetricReviews,
	MetricRepositoriesContributed,
	MetricLinesAdded,
	MetricLinesRemoved,
}

// ScoreSettings holds the per-metric weights and normalization caps.
// Weights are not required to sum to 1.0; the final score is clamped.
type ScoreSettings struct {
	Weights map[string]float64 `json:"weights" yaml:"weights"`
	Caps    map[string]float64 `json:"caps" yaml:"caps"`
}

// NewScoreSettings returns the reference configuration, whose weights sum to 1.0
func NewScoreSettings() *ScoreSettings {
	return &ScoreSettings{
		Weights: map[string]float64{
			MetricCommits:                 0.30,
			MetricPullRequests:            0.25,
			MetricReviews:                 0.20,
			MetricRepositoriesContributed: 0.15,
			MetricLinesAdded:              0.05,
			MetricLinesRemoved:            0.05,
		},
		Caps: map[string]float64{
			MetricCommits:                 700,
			MetricPullRequests:            100,
			MetricReviews:                 100,
			MetricRepositoriesContributed: 30,
			MetricLinesAdded:              250000,
			MetricLinesRemoved:            250000,
		},
	}
}

// Validate validates the weight and cap tables
func (s *ScoreSettings) Validate() error {
	for name, weight := range s.Weights {
		if !isScoreMetric(name) {
			return fmt.Errorf("unknown metric %q in weights", name)
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("weight for %s must be a non-negative number", name)
		}
	}
	for name, limit := range s.Caps {
		if !isScoreMetric(name) {
			return fmt.Errorf("unknown metric %q in caps", name)
		}
		if limit <= 0 || math.IsNaN(limit) || math.IsInf(limit, 0) {
			return fmt.Errorf("cap for %s must be positive", name)
		}
	}
	for name, weight := range s.Weights {
		if _, ok := s.Caps[name]; !ok && weight > 0 {
			return fmt.Errorf("metric %s has a weight but no cap", name)
		}
	}
	return nil
}

// CalculateScore maps metrics to an integer score in [0,100]. Each metric is
// normalized against its cap and clamped to 1.0 before weighting.
func (s *ScoreSettings) CalculateScore(m Metrics) int {
	values := map[string]int{
		MetricCommits:                 m.Commits,
		MetricPullRequests:            m.PullRequests,
		MetricReviews:                 m.Reviews,
		MetricRepositoriesContributed: m.RepositoriesContributed,
		MetricLinesAdded:              m.LinesAdded,
		MetricLinesRemoved:            m.LinesRemoved,
	}

	total := 0.0
	for _, name := range ScoreMetrics {
		weight := s.Weights[name]
		limit := s.Caps[name]
		if weight <= 0 || limit <= 0 {
			continue
		}
		total += normalize(values[name], limit) * weight
	}

	return int(math.Round(math.Min(total, 1.0) * 100))
}

func normalize(value int, limit float64) float64 {
	if value <= 0 {
		return 0
	}
	return math.Min(float64(value)/limit, 1.0)
}

func isScoreMetric(name string) bool {
	for _, metric := range ScoreMetrics {
		if metric == name {
			return true
		}
	}
	return false
}
