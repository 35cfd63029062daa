package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/domain"
)

// WaveReconciler rebuilds cached wave state from recorded answers
type WaveReconciler interface {
	ScoringWaves(ctx context.Context, limit int) ([]domain.Wave, error)
	ReconcileWave(ctx context.Context, w *domain.Wave) (int, error)
}

// ReconcileWorker periodically repairs progress lists and lobby leaderboards of running waves
type ReconcileWorker struct {
	waves   WaveReconciler
	config  *config.ReconcileConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(waves WaveReconciler, cfg *config.ReconcileConfig, logger *slog.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		waves:  waves,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background reconcile process
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("reconcile worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background reconcile process
func (w *ReconcileWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("reconcile worker stopped")
	return nil
}

// run is the main worker loop
func (w *ReconcileWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.reconcileAll(ctx)
		}
	}
}

// reconcileAll rebuilds every wave still in a scoring state
func (w *ReconcileWorker) reconcileAll(ctx context.Context) {
	startTime := time.Now()

	batchSize := w.config.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	waves, err := w.waves.ScoringWaves(ctx, batchSize)
	if err != nil {
		w.logger.Error("failed to list waves for reconcile", "error", err)
		return
	}

	users := 0
	errorCount := 0
	for i := range waves {
		n, err := w.waves.ReconcileWave(ctx, &waves[i])
		if err != nil {
			w.logger.Error("failed to reconcile wave",
				"wave_id", waves[i].ID,
				"error", err,
			)
			errorCount++
			continue
		}
		users += n
	}

	w.logger.Info("reconcile cycle completed",
		"duration", time.Since(startTime),
		"waves", len(waves),
		"users", users,
		"errors", errorCount,
	)
}

// IsRunning returns whether the worker is currently running
func (w *ReconcileWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single reconcile cycle
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	w.reconcileAll(ctx)
}
