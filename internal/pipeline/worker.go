package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

const (
	// analysisLockKey is the distributed lock guarding the analysis queue so
	// concurrent worker replicas do not pick up the same jobs.
	analysisLockKey = "worker:analysis"

	// analysisLockTTL bounds how long a crashed worker can starve the queue.
	analysisLockTTL = 5 * time.Minute

	// jobBatchSize caps the number of jobs drained per poll.
	jobBatchSize = 10
)

// JobProcessor runs the full analysis pipeline for a single queued job.
type JobProcessor interface {
	ProcessJob(ctx context.Context, job domain.AnalysisJob) error
}

// AnalysisWorker polls the analysis queue and processes pending jobs in
// order. A nil lock manager disables distributed locking for single-replica
// deployments.
type AnalysisWorker struct {
	jobs      domain.JobStore
	processor JobProcessor
	locks     domain.LockManager
	jobDelay  time.Duration
	logger    *slog.Logger
}

// NewAnalysisWorker creates a new AnalysisWorker.
func NewAnalysisWorker(
	jobs domain.JobStore,
	processor JobProcessor,
	locks domain.LockManager,
	jobDelay time.Duration,
	logger *slog.Logger,
) *AnalysisWorker {
	return &AnalysisWorker{
		jobs:      jobs,
		processor: processor,
		locks:     locks,
		jobDelay:  jobDelay,
		logger:    logger,
	}
}

// Run executes a single poll. It drains up to jobBatchSize pending jobs,
// pausing jobDelay between consecutive jobs so the upstream analysis
// providers are not hit in a burst. If another replica holds the queue lock
// the poll is skipped without error.
func (w *AnalysisWorker) Run(ctx context.Context) error {
	if w.locks != nil {
		unlock, err := w.locks.Acquire(ctx, analysisLockKey, analysisLockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			w.logger.Debug("analysis queue lock held by another worker, skipping poll")
			return nil
		}
		if err != nil {
			return fmt.Errorf("acquiring analysis queue lock: %w", err)
		}
		defer unlock()
	}

	jobs, err := w.jobs.ListPending(ctx, jobBatchSize)
	if err != nil {
		return fmt.Errorf("listing pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing analysis jobs", slog.Int("count", len(jobs)))

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && w.jobDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.jobDelay):
			}
		}
		if err := w.processor.ProcessJob(ctx, job); err != nil {
			w.logger.Error("analysis job failed",
				slog.String("job_id", job.ID),
				slog.String("event_id", job.EventID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// RunLoop polls the queue on a repeating interval until the context is
// cancelled.
func (w *AnalysisWorker) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("analysis poll failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("analysis worker loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("analysis poll failed", slog.String("error", err.Error()))
			}
		}
	}
}
