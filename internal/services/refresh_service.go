package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/internal/repositories"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Scorer turns metrics into a score
type Scorer interface {
	CalculateScore(m models.Metrics) int
}

// RefreshService runs the refresh batch: select stale developers, fetch and
// score their metrics, upsert them into the table and save it.
//
// A refresh is a load-modify-save cycle over the whole table and must not run
// concurrently against the same store.
type RefreshService struct {
	store  repositories.DeveloperStore
	source MetricsSource
	scorer Scorer
}

func NewRefreshService(store repositories.DeveloperStore, source MetricsSource, scorer Scorer) *RefreshService {
	return &RefreshService{
		store:  store,
		source: source,
		scorer: scorer,
	}
}

// Refresh updates every developer that is due as of asOf and persists the
// merged table. Nothing is saved when ctx is cancelled mid-batch.
func (s *RefreshService) Refresh(ctx context.Context, asOf time.Time, opts models.FetchOptions) (*models.RefreshSummary, error) {
	summary := models.NewRefreshSummary(asOf)
	log := logger.WithFields(logrus.Fields{"run_id": summary.RunID, "path": s.store.Path()})

	existing, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	summary.Total = len(existing)

	due := SelectDue(existing, asOf)
	summary.Skipped = len(existing) - len(due)
	log.WithFields(logrus.Fields{"due": len(due), "skipped": summary.Skipped}).Info("Starting refresh")

	updated := make([]*models.DeveloperRecord, 0, len(due))
	for _, record := range due {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("refresh cancelled after %d of %d developers: %w", len(updated), len(due), err)
		}

		refreshed, suspect := s.processDeveloper(ctx, record, asOf, opts)
		if suspect {
			summary.Suspect++
		}
		updated = append(updated, refreshed)
	}

	merged, err := Merge(existing, updated)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(merged); err != nil {
		return nil, err
	}

	summary.Refreshed = len(updated)
	summary.MarkCompleted()
	log.WithFields(logrus.Fields{
		"refreshed": summary.Refreshed,
		"skipped":   summary.Skipped,
		"suspect":   summary.Suspect,
		"duration":  summary.Duration().String(),
	}).Info("Finished refresh")

	return summary, nil
}

// ProcessDeveloper fetches and scores one developer and returns the
// replacement record, refreshed on asOf.
func (s *RefreshService) ProcessDeveloper(ctx context.Context, record *models.DeveloperRecord, asOf time.Time, opts models.FetchOptions) *models.DeveloperRecord {
	refreshed, _ := s.processDeveloper(ctx, record, asOf, opts)
	return refreshed
}

func (s *RefreshService) processDeveloper(ctx context.Context, record *models.DeveloperRecord, asOf time.Time, opts models.FetchOptions) (*models.DeveloperRecord, bool) {
	log := logger.WithField("username", record.Username)
	log.Info("Fetching metrics")

	metrics := s.source.FetchMetrics(ctx, record.Username, opts)
	score := s.scorer.CalculateScore(metrics)

	suspect := metrics.IsSuspect()
	if suspect {
		log.WithFields(logrus.Fields{
			"lines_added":   metrics.LinesAdded,
			"lines_removed": metrics.LinesRemoved,
		}).Warn("No commits found but lines changed, check token permissions or commit attribution")
	}

	log.WithField("score", score).Info("Calculated score")
	return record.WithMetrics(metrics, score, asOf), suspect
}
