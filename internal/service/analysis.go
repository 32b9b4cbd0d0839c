package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quarterpin/oraclebot/internal/arbitrage"
	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/notify"
	"github.com/quarterpin/oraclebot/internal/platform/sportsdb"
	"github.com/quarterpin/oraclebot/internal/predict"
	"github.com/quarterpin/oraclebot/internal/sentiment"
)

// profileMaxLen caps team background text so the prompt stays small.
const profileMaxLen = 500

// recentFormGames is how many past results feed the form summary.
const recentFormGames = 5

// TeamInfoProvider is the slice of the TheSportsDB client the analysis
// pipeline needs.
type TeamInfoProvider interface {
	SearchTeam(ctx context.Context, name string) (sportsdb.Team, error)
	LastEvents(ctx context.Context, teamID string) ([]sportsdb.PastEvent, error)
}

// SummaryProvider fetches encyclopedia background for a team.
type SummaryProvider interface {
	Summary(ctx context.Context, title string) (string, error)
}

// PostProvider scrapes recent social posts about a fixture.
type PostProvider interface {
	SearchPosts(ctx context.Context, query string, maxPosts int) ([]string, error)
}

// Predictor turns gathered fixture context into a structured prediction.
type Predictor interface {
	Predict(ctx context.Context, input predict.PromptInput) (domain.Prediction, error)
}

// ChatSender pushes a message to one Telegram chat. Implemented by the bot
// front-end; nil in headless deployments.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// AnalysisConfig holds the tunable parameters for the analysis pipeline.
type AnalysisConfig struct {
	// TweetCount is how many social posts to scrape per fixture.
	TweetCount int
}

// Prediction fan-out channels on the signal bus.
const (
	PredictionChannel = "predictions"
	PredictionStream  = "stream:predictions"
)

// AnalysisService runs the full prediction pipeline for queued analysis jobs:
// fresh odds, team profiles, recent form, social sentiment, and finally the
// model prediction. Collaborator failures other than odds and the model are
// soft: the prediction runs with whatever context was gathered.
type AnalysisService struct {
	provider  OddsProvider
	jobs      domain.JobStore
	history   domain.HistoryStore
	teams     TeamInfoProvider
	summaries SummaryProvider
	posts     PostProvider
	predictor Predictor
	sender    ChatSender
	bus       domain.SignalBus
	alerter   Alerter
	cfg       AnalysisConfig
	logger    *slog.Logger
}

// NewAnalysisService creates an AnalysisService. teams, summaries, posts, and
// sender may be nil; the corresponding pipeline step is skipped.
func NewAnalysisService(
	provider OddsProvider,
	jobs domain.JobStore,
	history domain.HistoryStore,
	teams TeamInfoProvider,
	summaries SummaryProvider,
	posts PostProvider,
	predictor Predictor,
	sender ChatSender,
	cfg AnalysisConfig,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		provider:  provider,
		jobs:      jobs,
		history:   history,
		teams:     teams,
		summaries: summaries,
		posts:     posts,
		predictor: predictor,
		sender:    sender,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "analysis_service")),
	}
}

// WithBus enables prediction fan-out on the signal bus.
func (s *AnalysisService) WithBus(bus domain.SignalBus) *AnalysisService {
	s.bus = bus
	return s
}

// WithAlerter enables operator alerts for completed and failed jobs.
func (s *AnalysisService) WithAlerter(alerter Alerter) *AnalysisService {
	s.alerter = alerter
	return s
}

// Enqueue creates a pending analysis job for one event on behalf of a chat.
func (s *AnalysisService) Enqueue(ctx context.Context, eventID, sportKey string, chatID int64) (domain.AnalysisJob, error) {
	job := domain.AnalysisJob{
		ID:       uuid.New().String(),
		EventID:  eventID,
		SportKey: sportKey,
		ChatID:   chatID,
		Status:   domain.JobPending,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return domain.AnalysisJob{}, fmt.Errorf("analysis_service: enqueue: %w", err)
	}

	s.logger.InfoContext(ctx, "job enqueued",
		slog.String("job_id", job.ID),
		slog.String("event_id", eventID),
		slog.Int64("chat_id", chatID),
	)
	return job, nil
}

// ProcessJob runs one job end-to-end and records the outcome on the job row.
// The returned error reflects the pipeline failure, if any; the job status is
// updated in both cases.
func (s *AnalysisService) ProcessJob(ctx context.Context, job domain.AnalysisJob) error {
	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobProcessing, ""); err != nil {
		return fmt.Errorf("analysis_service: mark processing: %w", err)
	}

	rec, err := s.analyze(ctx, job)
	if err != nil {
		if stErr := s.jobs.UpdateStatus(ctx, job.ID, domain.JobFailed, err.Error()); stErr != nil {
			s.logger.ErrorContext(ctx, "mark failed",
				slog.String("job_id", job.ID),
				slog.String("error", stErr.Error()),
			)
		}
		s.notifyFailure(ctx, job)
		s.alert(ctx, notify.EventError, "Analysis job failed",
			fmt.Sprintf("Job %s (event %s): %v", job.ID, job.EventID, err))
		return fmt.Errorf("analysis_service: job %s: %w", job.ID, err)
	}

	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobCompleted, ""); err != nil {
		return fmt.Errorf("analysis_service: mark completed: %w", err)
	}

	s.logger.InfoContext(ctx, "job completed",
		slog.String("job_id", job.ID),
		slog.String("winner", rec.PredictedWinner),
		slog.Float64("confidence", rec.ConfidenceScore),
	)
	s.alert(ctx, notify.EventPredictionReady, "Prediction ready",
		fmt.Sprintf("%s vs %s: %s (%.0f%% confidence)",
			rec.HomeTeam, rec.AwayTeam, rec.PredictedWinner, rec.ConfidenceScore))
	return nil
}

// alert sends an operator notification when an alerter is configured.
// Delivery failures are logged, never propagated.
func (s *AnalysisService) alert(ctx context.Context, event, title, message string) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "operator alert failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// analyze gathers fixture context, runs the prediction, persists the record,
// and pushes the result to the requesting chat.
func (s *AnalysisService) analyze(ctx context.Context, job domain.AnalysisJob) (domain.PredictionRecord, error) {
	event, err := s.provider.GetEventOdds(ctx, job.SportKey, job.EventID)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("fetch event: %w", err)
	}

	input := predict.PromptInput{
		HomeTeam:     event.HomeTeam,
		AwayTeam:     event.AwayTeam,
		SportKey:     event.SportKey,
		CommenceTime: event.CommenceTime,
		Odds:         arbitrage.BestOdds(event),
	}

	input.HomeProfile, input.HomeForm = s.teamContext(ctx, event.HomeTeam)
	input.AwayProfile, input.AwayForm = s.teamContext(ctx, event.AwayTeam)

	if s.posts != nil {
		query := fmt.Sprintf("%s vs %s", event.HomeTeam, event.AwayTeam)
		posts, err := s.posts.SearchPosts(ctx, query, s.cfg.TweetCount)
		if err != nil {
			s.logger.WarnContext(ctx, "scrape posts failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		} else {
			report := sentiment.Analyze(posts)
			input.Sentiment = &report
		}
	}

	pred, err := s.predictor.Predict(ctx, input)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("predict: %w", err)
	}

	rec := domain.PredictionRecord{
		ID:              uuid.New().String(),
		ChatID:          job.ChatID,
		EventID:         event.ID,
		SportKey:        event.SportKey,
		HomeTeam:        event.HomeTeam,
		AwayTeam:        event.AwayTeam,
		CommenceTime:    event.CommenceTime,
		PredictedWinner: pred.PredictedWinner,
		ConfidenceScore: pred.ConfidenceScore,
		RiskLevel:       pred.RiskLevel,
		Reasoning:       pred.Reasoning,
		Status:          domain.PredictionPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.history.Insert(ctx, rec); err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("save prediction: %w", err)
	}

	s.publish(ctx, rec)

	if s.sender != nil {
		if err := s.sender.SendMessage(ctx, job.ChatID, FormatPrediction(event, pred, input.Sentiment)); err != nil {
			s.logger.WarnContext(ctx, "push prediction failed",
				slog.String("job_id", job.ID),
				slog.Int64("chat_id", job.ChatID),
				slog.String("error", err.Error()),
			)
		}
	}

	return rec, nil
}

// teamContext gathers the profile and recent-form strings for one team.
// Everything here is best-effort.
func (s *AnalysisService) teamContext(ctx context.Context, name string) (profile, form string) {
	if s.summaries != nil {
		if summary, err := s.summaries.Summary(ctx, name); err == nil {
			profile = truncateText(collapseWhitespace(summary), profileMaxLen)
		}
	}

	if s.teams == nil {
		return profile, ""
	}

	team, err := s.teams.SearchTeam(ctx, name)
	if err != nil {
		return profile, ""
	}
	if profile == "" {
		profile = truncateText(collapseWhitespace(team.Description), profileMaxLen)
	}

	past, err := s.teams.LastEvents(ctx, team.ID)
	if err != nil {
		return profile, ""
	}
	return profile, formatForm(name, past)
}

// formatForm renders recent results as "W 2-1 vs Opp" lines from the team's
// perspective.
func formatForm(team string, past []sportsdb.PastEvent) string {
	var lines []string
	for _, e := range past {
		if len(lines) >= recentFormGames {
			break
		}
		home := strings.EqualFold(e.HomeTeam, team)
		us, them := e.HomeScore, e.AwayScore
		opp := e.AwayTeam
		if !home {
			us, them = e.AwayScore, e.HomeScore
			opp = e.HomeTeam
		}
		usN, err1 := strconv.Atoi(us)
		themN, err2 := strconv.Atoi(them)
		if err1 != nil || err2 != nil {
			continue
		}
		outcome := "D"
		switch {
		case usN > themN:
			outcome = "W"
		case usN < themN:
			outcome = "L"
		}
		lines = append(lines, fmt.Sprintf("%s %s-%s vs %s", outcome, us, them, opp))
	}
	return strings.Join(lines, ", ")
}

// publish fans the finished prediction out on the signal bus. Failures are
// logged; fan-out is not part of the job's success criteria.
func (s *AnalysisService) publish(ctx context.Context, rec domain.PredictionRecord) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal prediction", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, PredictionChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish prediction failed", slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, PredictionStream, payload); err != nil {
		s.logger.WarnContext(ctx, "append prediction stream failed", slog.String("error", err.Error()))
	}
}

// notifyFailure tells the requesting chat their analysis could not run.
func (s *AnalysisService) notifyFailure(ctx context.Context, job domain.AnalysisJob) {
	if s.sender == nil {
		return
	}
	msg := "Sorry, the analysis for your match failed. Please try again later."
	if err := s.sender.SendMessage(ctx, job.ChatID, msg); err != nil {
		s.logger.WarnContext(ctx, "push failure notice failed",
			slog.Int64("chat_id", job.ChatID),
			slog.String("error", err.Error()),
		)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateText shortens s to at most max bytes without splitting a UTF-8
// sequence; the cut backs up to the nearest rune boundary.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
