package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// ResultsChecker settles pending predictions against final scores.
type ResultsChecker interface {
	CheckResults(ctx context.Context) (int, error)
}

// CronJobs schedules the recurring maintenance passes: prediction settlement
// and cold-storage archival. Schedules use standard 5-field cron expressions,
// e.g. "*/30 * * * *" for every half hour.
type CronJobs struct {
	results       ResultsChecker
	archiver      domain.Archiver
	retentionDays int
	resultsCron   string
	archiveCron   string
	logger        *slog.Logger
}

// NewCronJobs creates a new CronJobs. A nil results checker or archiver
// disables the corresponding schedule.
func NewCronJobs(
	results ResultsChecker,
	archiver domain.Archiver,
	retentionDays int,
	resultsCron, archiveCron string,
	logger *slog.Logger,
) *CronJobs {
	return &CronJobs{
		results:       results,
		archiver:      archiver,
		retentionDays: retentionDays,
		resultsCron:   resultsCron,
		archiveCron:   archiveCron,
		logger:        logger,
	}
}

// Run registers the schedules and blocks until the context is cancelled.
// Job failures are logged and do not stop the scheduler.
func (c *CronJobs) Run(ctx context.Context) error {
	runner := cron.New()

	if c.results != nil {
		_, err := runner.AddFunc(c.resultsCron, func() {
			if err := c.runResults(ctx); err != nil {
				c.logger.Error("results check failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			return fmt.Errorf("registering results cron %q: %w", c.resultsCron, err)
		}
	}

	if c.archiver != nil {
		_, err := runner.AddFunc(c.archiveCron, func() {
			if err := c.runArchive(ctx); err != nil {
				c.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			return fmt.Errorf("registering archive cron %q: %w", c.archiveCron, err)
		}
	}

	c.logger.Info("cron scheduler started",
		slog.String("results_cron", c.resultsCron),
		slog.String("archive_cron", c.archiveCron),
	)
	runner.Start()

	<-ctx.Done()
	stopCtx := runner.Stop()
	<-stopCtx.Done()
	c.logger.Info("cron scheduler stopped")
	return ctx.Err()
}

// runResults executes one settlement pass.
func (c *CronJobs) runResults(ctx context.Context) error {
	settled, err := c.results.CheckResults(ctx)
	if err != nil {
		return fmt.Errorf("checking results: %w", err)
	}
	c.logger.Info("results check complete", slog.Int("settled", settled))
	return nil
}

// runArchive moves rows older than the retention window to cold storage.
func (c *CronJobs) runArchive(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(c.retentionDays) * 24 * time.Hour)
	c.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", c.retentionDays),
	)

	oppsArchived, err := c.archiver.ArchiveOpportunities(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving opportunities before %v: %w", cutoff, err)
	}

	predsArchived, err := c.archiver.ArchiveHistory(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving prediction history before %v: %w", cutoff, err)
	}

	c.logger.Info("archive run complete",
		slog.Int64("opportunities_archived", oppsArchived),
		slog.Int64("predictions_archived", predsArchived),
	)
	return nil
}
