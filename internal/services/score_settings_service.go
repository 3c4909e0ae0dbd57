package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ScoreSettingsService owns the active score weights and caps
type ScoreSettingsService struct {
	path     string
	mu       sync.RWMutex
	settings *models.ScoreSettings
}

// NewScoreSettingsService loads the settings at path. An empty path selects the
// reference settings.
func NewScoreSettingsService(path string) (*ScoreSettingsService, error) {
	settings, err := LoadScoreSettings(path)
	if err != nil {
		return nil, err
	}
	return &ScoreSettingsService{
		path:     path,
		settings: settings,
	}, nil
}

// GetScoreSettings returns the active settings
func (s *ScoreSettingsService) GetScoreSettings() *models.ScoreSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateScoreSettings validates and activates new settings
func (s *ScoreSettingsService) UpdateScoreSettings(settings *models.ScoreSettings) error {
	if settings == nil {
		return errors.New("score settings are required")
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// CalculateScore scores metrics with the active settings
func (s *ScoreSettingsService) CalculateScore(m models.Metrics) int {
	return s.GetScoreSettings().CalculateScore(m)
}

// Watch reloads the settings file whenever it is written or replaced until
// ctx is done. An invalid file is logged and the previous settings stay active.
//
// The parent directory is watched rather than the file, so a save that renames
// a new file over the path is seen like an in-place write.
func (s *ScoreSettingsService) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log := logger.WithField("path", s.path)
	log.Info("Watching score settings for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			settings, err := LoadScoreSettings(s.path)
			if err == nil {
				err = s.UpdateScoreSettings(settings)
			}
			if err != nil {
				log.WithError(err).Error("Score settings reload failed, keeping previous settings")
				continue
			}

			log.Info("Score settings reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("Score settings watcher error")
		}
	}
}

// LoadScoreSettings reads weights and caps from a YAML file. Metrics missing
// from the file keep their reference values. An empty path or a missing file
// yields the reference settings.
func LoadScoreSettings(path string) (*models.ScoreSettings, error) {
	settings := models.NewScoreSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.WithField("path", path).Warn("Score settings file not found, using reference settings")
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read score settings: %w", err)
	}

	var file models.ScoreSettings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse score settings: %w", err)
	}

	for name, weight := range file.Weights {
		settings.Weights[name] = weight
	}
	for name, limit := range file.Caps {
		settings.Caps[name] = limit
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score settings: %w", err)
	}

	return settings, nil
}
