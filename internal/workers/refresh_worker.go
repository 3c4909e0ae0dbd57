package workers

import (
	"context"
	"sync"
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Refresher runs one refresh batch
type Refresher interface {
	Refresh(ctx context.Context, asOf time.Time, opts models.FetchOptions) (*models.RefreshSummary, error)
}

// RefreshWorker runs a refresh batch on start and then once per interval.
// Batches never overlap: a tick that arrives while a batch runs is dropped.
type RefreshWorker struct {
	*BaseWorker
	refresher Refresher
	interval  time.Duration
	opts      models.FetchOptions
	now       func() time.Time

	mu          sync.Mutex
	lastSummary *models.RefreshSummary
	lastErr     error
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(workerID string, refresher Refresher, interval time.Duration, opts models.FetchOptions) *RefreshWorker {
	return &RefreshWorker{
		BaseWorker: NewBaseWorker(workerID),
		refresher:  refresher,
		interval:   interval,
		opts:       opts,
		now:        time.Now,
	}
}

// Start begins the refresh worker process
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	log := logger.WithFields(logrus.Fields{"worker_id": w.WorkerID, "interval": w.interval.String()})
	log.Info("Refresh worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Refresh worker stopping due to context cancellation")
			return ctx.Err()
		case <-w.StopChan:
			log.Info("Refresh worker stopping")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// LastRun returns the summary and error of the most recent batch
func (w *RefreshWorker) LastRun() (*models.RefreshSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSummary, w.lastErr
}

func (w *RefreshWorker) runOnce(ctx context.Context) {
	log := logger.WithField("worker_id", w.WorkerID)

	summary, err := w.refresher.Refresh(ctx, w.now(), w.opts)

	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.lastSummary = summary
	}
	w.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("Refresh batch failed")
		return
	}
	log.WithFields(logrus.Fields{
		"run_id":    summary.RunID,
		"refreshed": summary.Refreshed,
		"skipped":   summary.Skipped,
	}).Info("Refresh batch completed")
}
