package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages all background goroutines: the odds scanner, the
// analysis worker, and the cron-scheduled settlement and archive passes.
// Any nil sub-system is skipped, so the same orchestrator serves the scan,
// worker, and full deployment modes.
type Orchestrator struct {
	scanner      *Scanner
	worker       *AnalysisWorker
	cronJobs     *CronJobs
	scanInterval time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	scanner *Scanner,
	worker *AnalysisWorker,
	cronJobs *CronJobs,
	scanInterval time.Duration,
	pollInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scanner:      scanner,
		worker:       worker,
		cronJobs:     cronJobs,
		scanInterval: scanInterval,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run starts all sub-systems as concurrent goroutines using an errgroup. Each
// goroutine respects ctx cancellation. If any goroutine returns a non-context
// error, the errgroup cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("scan_interval", o.scanInterval),
		slog.Duration("poll_interval", o.pollInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.scanner != nil {
		g.Go(func() error {
			o.logger.Info("starting odds scanner loop")
			err := o.scanner.RunLoop(ctx, o.scanInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("odds scanner: %w", err)
		})
	}

	if o.worker != nil {
		g.Go(func() error {
			o.logger.Info("starting analysis worker loop")
			err := o.worker.RunLoop(ctx, o.pollInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("analysis worker: %w", err)
		})
	}

	if o.cronJobs != nil {
		g.Go(func() error {
			o.logger.Info("starting cron scheduler")
			err := o.cronJobs.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("cron scheduler: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
