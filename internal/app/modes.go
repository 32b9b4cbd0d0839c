package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quarterpin/oraclebot/internal/bot"
	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/notify"
	"github.com/quarterpin/oraclebot/internal/pipeline"
	"github.com/quarterpin/oraclebot/internal/server"
	"github.com/quarterpin/oraclebot/internal/server/handler"
	"github.com/quarterpin/oraclebot/internal/server/ws"
	"github.com/quarterpin/oraclebot/internal/service"
)

// BotMode runs only the Telegram front-end. Queued analyses are picked up by
// a separate worker deployment.
func (a *App) BotMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting bot mode")

	g, ctx := errgroup.WithContext(ctx)

	oddsSvc := a.buildOddsService(deps)
	analysisSvc := a.buildAnalysisService(deps, nil)

	tgBot, err := a.buildBot(deps, oddsSvc, analysisSvc)
	if err != nil {
		return err
	}

	g.Go(func() error {
		err := tgBot.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("bot: %w", err)
	})

	return g.Wait()
}

// ScanMode runs the periodic arbitrage scan, plus the HTTP API when enabled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	oddsSvc := a.buildOddsService(deps)
	scanner := pipeline.NewScanner(oddsSvc, a.cfg.Scan.Sports, a.logger)
	orch := pipeline.NewOrchestrator(
		scanner, nil, nil,
		a.cfg.Scan.Interval.Duration,
		a.cfg.Worker.PollInterval.Duration,
		a.logger,
	)

	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("pipeline: %w", err)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, scanner.TriggerChan())
	}

	return g.Wait()
}

// WorkerMode runs the analysis queue worker and the cron-scheduled
// settlement and archive passes. Results are pushed to the requesting chats
// through the plain chat sender, not an interactive bot.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)

	sender := a.chatSender()
	worker := a.buildAnalysisWorker(deps, sender)
	cronJobs := a.buildCronJobs(deps, sender)

	orch := pipeline.NewOrchestrator(
		nil, worker, cronJobs,
		a.cfg.Scan.Interval.Duration,
		a.cfg.Worker.PollInterval.Duration,
		a.logger,
	)

	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("pipeline: %w", err)
	})

	return g.Wait()
}

// ServerMode runs only the HTTP + WebSocket API over already-persisted data.
// The scan trigger endpoint accepts requests but has no loop to signal.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// FullMode runs everything in one process: bot, scanner, worker, cron jobs,
// and the HTTP API when enabled. The bot doubles as the chat sender so
// worker pushes and interactive traffic share one Telegram identity.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	oddsSvc := a.buildOddsService(deps)
	analysisSvc := a.buildAnalysisService(deps, nil)

	tgBot, err := a.buildBot(deps, oddsSvc, analysisSvc)
	if err != nil {
		return err
	}

	// Worker-side services push through the bot.
	workerAnalysis := a.buildAnalysisService(deps, tgBot)
	worker := pipeline.NewAnalysisWorker(
		deps.JobStore, workerAnalysis, deps.LockManager,
		a.cfg.Worker.JobDelay.Duration, a.logger,
	)
	cronJobs := a.buildCronJobs(deps, tgBot)

	scanner := pipeline.NewScanner(oddsSvc, a.cfg.Scan.Sports, a.logger)
	orch := pipeline.NewOrchestrator(
		scanner, worker, cronJobs,
		a.cfg.Scan.Interval.Duration,
		a.cfg.Worker.PollInterval.Duration,
		a.logger,
	)

	g.Go(func() error {
		err := tgBot.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("bot: %w", err)
	})

	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("pipeline: %w", err)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, scanner.TriggerChan())
	}

	return g.Wait()
}

// buildOddsService assembles the scan service from the wired dependencies.
func (a *App) buildOddsService(deps *Dependencies) *service.OddsService {
	// Assign through a typed variable so a nil *Snapshots never reaches the
	// service as a non-nil interface.
	var snapshots domain.SnapshotWriter
	if deps.Snapshots != nil {
		snapshots = deps.Snapshots
	}
	return service.NewOddsService(
		deps.OddsClient,
		deps.OpportunityStore,
		deps.SignalBus,
		snapshots,
		deps.Notifier,
		service.OddsConfig{
			MinNotifyMargin: a.cfg.Notify.MinProfitMargin,
			SnapshotOdds:    a.cfg.Scan.SnapshotOdds,
		},
		a.logger,
	)
}

// buildAnalysisService assembles the prediction pipeline. The Apify client
// is only attached when a token is configured so the social step is skipped
// cleanly instead of failing every job.
func (a *App) buildAnalysisService(deps *Dependencies, sender service.ChatSender) *service.AnalysisService {
	var posts service.PostProvider
	if a.cfg.Apify.ApiKey != "" {
		posts = deps.Apify
	}

	svc := service.NewAnalysisService(
		deps.OddsClient,
		deps.JobStore,
		deps.HistoryStore,
		deps.SportsDB,
		deps.Wikipedia,
		posts,
		deps.Predictor,
		sender,
		service.AnalysisConfig{TweetCount: a.cfg.Apify.TweetCount},
		a.logger,
	)
	return svc.WithBus(deps.SignalBus).WithAlerter(deps.Notifier)
}

// buildAnalysisWorker assembles the queue poller around a fresh analysis
// service bound to the given sender.
func (a *App) buildAnalysisWorker(deps *Dependencies, sender service.ChatSender) *pipeline.AnalysisWorker {
	return pipeline.NewAnalysisWorker(
		deps.JobStore,
		a.buildAnalysisService(deps, sender),
		deps.LockManager,
		a.cfg.Worker.JobDelay.Duration,
		a.logger,
	)
}

// buildCronJobs assembles the settlement and archive schedules.
func (a *App) buildCronJobs(deps *Dependencies, sender service.ChatSender) *pipeline.CronJobs {
	resultsSvc := service.NewResultsService(
		deps.OddsClient,
		deps.HistoryStore,
		sender,
		service.ResultsConfig{
			SettleGrace:    a.cfg.Worker.SettleGrace.Duration,
			ScoresDaysFrom: a.cfg.Worker.ScoresDaysFrom,
		},
		a.logger,
	)
	return pipeline.NewCronJobs(
		resultsSvc,
		deps.Archiver,
		a.cfg.Worker.ArchiveRetentionDays,
		a.cfg.Worker.ResultsCron,
		a.cfg.Worker.ArchiveCron,
		a.logger,
	)
}

// buildBot assembles the Telegram front-end.
func (a *App) buildBot(deps *Dependencies, oddsSvc *service.OddsService, analysisSvc *service.AnalysisService) (*bot.Bot, error) {
	tgBot, err := bot.New(
		a.cfg.Telegram.BotToken,
		oddsSvc,
		analysisSvc,
		oddsSvc,
		deps.HistoryStore,
		deps.AdminStore,
		deps.SettingsStore,
		deps.Vault,
		bot.Config{
			HistoryPageSize:   a.cfg.Telegram.HistoryPageSize,
			MaxEventsPerSport: a.cfg.Telegram.MaxEventsPerSport,
			ScanSports:        a.cfg.Scan.Sports,
		},
		a.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("app: build bot: %w", err)
	}
	return tgBot, nil
}

// chatSender returns the delivery path worker deployments use to reach users.
// Nil when no bot token is configured; the services skip the push.
func (a *App) chatSender() service.ChatSender {
	if a.cfg.Telegram.BotToken == "" {
		return nil
	}
	return notify.NewTelegramChatSender(a.cfg.Telegram.BotToken)
}

// startHTTPServer wires the REST handlers and the WebSocket hub onto the
// errgroup. triggerCh may be nil when no scan loop runs in this process.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, triggerCh chan<- struct{}) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger).
		WithAllowedOrigins(a.cfg.Server.CORSOrigins)
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	scanHandler := handler.NewScanHandler(a.logger)
	if triggerCh != nil {
		scanHandler = scanHandler.WithTriggerChannel(triggerCh)
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Opportunities: handler.NewOpportunityHandler(deps.OpportunityStore, a.logger),
		Predictions:   handler.NewPredictionHandler(deps.HistoryStore, a.logger),
		Jobs:          handler.NewJobHandler(deps.JobStore, a.logger),
		Scan:          scanHandler,
		Streams:       handler.NewStreamHandler(deps.SignalBus, a.logger),
	}
	if deps.Snapshots != nil {
		handlers.Snapshots = handler.NewSnapshotHandler(deps.Snapshots, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		err := srv.Start()
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("http server: %w", err)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	})
}
