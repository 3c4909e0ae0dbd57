package services

import (
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

// SelectDue returns the records that need a refresh as of the given day:
// never refreshed, or last refreshed on an earlier calendar date. Time of day
// is ignored. Every skipped record is logged once.
func SelectDue(records []*models.DeveloperRecord, asOf time.Time) []*models.DeveloperRecord {
	today := models.TruncateToDate(asOf)

	due := make([]*models.DeveloperRecord, 0, len(records))
	for _, record := range records {
		if record.LastUpdated == nil || models.TruncateToDate(*record.LastUpdated).Before(today) {
			due = append(due, record)
			continue
		}

		logger.WithFields(logrus.Fields{
			"username":     record.Username,
			"last_updated": record.LastUpdatedString(),
		}).Info("Skipping developer, already up to date")
	}

	return due
}
