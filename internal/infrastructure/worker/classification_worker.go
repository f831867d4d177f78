package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// RunClassifier is the part of the reconciliation service the worker drives
type RunClassifier interface {
	ClaimPending(ctx context.Context, limit int) ([]*entity.ReconciliationRun, error)
	Classify(ctx context.Context, runID string) (*entity.ReconciliationRun, error)
	ReleaseInterrupted(ctx context.Context) (int, error)
}

// ClassificationWorkerConfig holds configuration for the classification worker
type ClassificationWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	ProcessTimeout time.Duration
}

// DefaultClassificationWorkerConfig returns default configuration
func DefaultClassificationWorkerConfig() ClassificationWorkerConfig {
	return ClassificationWorkerConfig{
		PollInterval:   5 * time.Second,
		BatchSize:      5,
		Concurrency:    2,
		ProcessTimeout: 3 * time.Minute,
	}
}

// WorkerStats is a snapshot of worker counters
type WorkerStats struct {
	Completed     int
	Degraded      int
	Failed        int
	LastProcessed time.Time
	LastError     string
}

// ClassificationWorker finishes INTERIM runs in the background so uploads
// can return as soon as the deterministic result is stored.
type ClassificationWorker struct {
	config  ClassificationWorkerConfig
	service RunClassifier
	logger  *zap.Logger

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	stats     WorkerStats
}

// NewClassificationWorker creates a new classification worker
func NewClassificationWorker(config ClassificationWorkerConfig, service RunClassifier, logger *zap.Logger) *ClassificationWorker {
	defaults := DefaultClassificationWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = defaults.ProcessTimeout
	}
	return &ClassificationWorker{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// Name returns the worker name for identification
func (w *ClassificationWorker) Name() string {
	return "ClassificationWorker"
}

// Start releases runs stranded by a previous process and begins polling
func (w *ClassificationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("classification worker already running")
	}
	w.isRunning = true
	w.mu.Unlock()

	if _, err := w.service.ReleaseInterrupted(ctx); err != nil {
		w.mu.Lock()
		w.isRunning = false
		w.mu.Unlock()
		return fmt.Errorf("release interrupted runs: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	w.logger.Info("ClassificationWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("concurrency", w.config.Concurrency))

	go w.pollLoop(loopCtx, done)
	return nil
}

// Stop cancels polling and waits for in-flight runs to finish
func (w *ClassificationWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	stats := w.Stats()
	w.logger.Info("ClassificationWorker stopped",
		zap.Int("completed", stats.Completed),
		zap.Int("degraded", stats.Degraded),
		zap.Int("failed", stats.Failed))
	return nil
}

// Stats returns a snapshot of the worker counters
func (w *ClassificationWorker) Stats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *ClassificationWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Failed to process pending runs", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of pending runs and classifies them. It returns
// how many runs were claimed.
func (w *ClassificationWorker) RunOnce(ctx context.Context) (int, error) {
	runs, err := w.service.ClaimPending(ctx, w.config.BatchSize)
	if err != nil {
		w.recordError(err)
		return 0, fmt.Errorf("claim pending runs: %w", err)
	}
	if len(runs) == 0 {
		return 0, nil
	}

	w.logger.Info("Claimed pending runs", zap.Int("count", len(runs)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for _, run := range runs {
		runID := run.ID
		g.Go(func() error {
			w.process(gctx, runID)
			return nil
		})
	}
	_ = g.Wait()

	return len(runs), nil
}

func (w *ClassificationWorker) process(ctx context.Context, runID string) {
	processCtx, cancel := context.WithTimeout(ctx, w.config.ProcessTimeout)
	defer cancel()

	start := time.Now()
	run, err := w.service.Classify(processCtx, runID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastProcessed = time.Now()

	if err != nil {
		w.stats.Failed++
		w.stats.LastError = err.Error()
		w.logger.Error("Failed to classify run", zap.String("run_id", runID), zap.Error(err))
		return
	}

	if run.Status == entity.RunStatusDegraded {
		w.stats.Degraded++
	} else {
		w.stats.Completed++
	}
	w.logger.Info("Run classified",
		zap.String("run_id", runID),
		zap.String("status", run.Status),
		zap.Duration("elapsed", time.Since(start)))
}

func (w *ClassificationWorker) recordError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastError = err.Error()
}
