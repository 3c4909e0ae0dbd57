package services

import (
	"fmt"

	"github.com/alimgiray/devpulse/internal/models"
)

// Merge upserts incoming into existing by username. Existing records whose
// username appears in incoming are replaced wholesale; the rest keep their
// order and the incoming records follow in their own order.
//
// incoming must not repeat a username.
func Merge(existing, incoming []*models.DeveloperRecord) ([]*models.DeveloperRecord, error) {
	replaced := make(map[string]bool, len(incoming))
	for _, record := range incoming {
		if record == nil || record.Username == "" {
			return nil, models.ErrUsernameRequired
		}
		if replaced[record.Username] {
			return nil, fmt.Errorf("%w in upsert batch: %s", models.ErrDuplicateUsername, record.Username)
		}
		replaced[record.Username] = true
	}

	merged := make([]*models.DeveloperRecord, 0, len(existing)+len(incoming))
	for _, record := range existing {
		if record == nil || replaced[record.Username] {
			continue
		}
		merged = append(merged, record)
	}
	merged = append(merged, incoming...)

	return merged, nil
}
