package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// ScoreProvider is the slice of the odds client the ResultsService needs.
type ScoreProvider interface {
	GetScores(ctx context.Context, sportKey string, daysFrom int) ([]domain.ScoreEvent, error)
}

// ResultsConfig holds the tunable parameters for prediction settlement.
type ResultsConfig struct {
	// SettleGrace is how long after commence time a result is first checked.
	// Events younger than this are skipped even when marked pending.
	SettleGrace time.Duration
	// ScoresDaysFrom is passed to the provider's scores endpoint (1-3).
	ScoresDaysFrom int
}

// ResultsService settles pending predictions against final scores from the
// provider and tells the requesting chats how their predictions fared.
type ResultsService struct {
	scores  ScoreProvider
	history domain.HistoryStore
	sender  ChatSender
	cfg     ResultsConfig
	logger  *slog.Logger
}

// NewResultsService creates a ResultsService. sender may be nil.
func NewResultsService(
	scores ScoreProvider,
	history domain.HistoryStore,
	sender ChatSender,
	cfg ResultsConfig,
	logger *slog.Logger,
) *ResultsService {
	return &ResultsService{
		scores:  scores,
		history: history,
		sender:  sender,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "results_service")),
	}
}

// CheckResults runs one settlement pass: list pending predictions, fetch
// scores per sport, and settle everything whose event has completed. It
// returns the number of predictions settled.
func (s *ResultsService) CheckResults(ctx context.Context) (int, error) {
	pending, err := s.history.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("results_service: list pending: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()

	// One scores call per sport, shared across that sport's predictions.
	bySport := make(map[string][]domain.PredictionRecord)
	for _, rec := range pending {
		if now.Sub(rec.CommenceTime) < s.cfg.SettleGrace {
			continue
		}
		bySport[rec.SportKey] = append(bySport[rec.SportKey], rec)
	}

	settled := 0
	for sportKey, recs := range bySport {
		scores, err := s.scores.GetScores(ctx, sportKey, s.cfg.ScoresDaysFrom)
		if err != nil {
			s.logger.WarnContext(ctx, "fetch scores failed",
				slog.String("sport", sportKey),
				slog.String("error", err.Error()),
			)
			continue
		}

		byEvent := make(map[string]domain.ScoreEvent, len(scores))
		for _, ev := range scores {
			if ev.Completed {
				byEvent[ev.ID] = ev
			}
		}

		for _, rec := range recs {
			ev, ok := byEvent[rec.EventID]
			if !ok {
				continue
			}
			if s.settle(ctx, rec, ev) {
				settled++
			}
		}
	}

	s.logger.InfoContext(ctx, "settlement pass complete",
		slog.Int("pending", len(pending)),
		slog.Int("settled", settled),
	)
	return settled, nil
}

// settle determines the winner, updates the record, and notifies the chat.
// It reports whether the record was settled.
func (s *ResultsService) settle(ctx context.Context, rec domain.PredictionRecord, ev domain.ScoreEvent) bool {
	winner, ok := DetermineWinner(ev)
	if !ok {
		s.logger.WarnContext(ctx, "unusable score lines",
			slog.String("event_id", ev.ID),
		)
		return false
	}

	status := domain.PredictionIncorrect
	if strings.EqualFold(rec.PredictedWinner, winner) {
		status = domain.PredictionCorrect
	}

	if err := s.history.Settle(ctx, rec.ID, status); err != nil {
		s.logger.ErrorContext(ctx, "settle failed",
			slog.String("prediction_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.InfoContext(ctx, "prediction settled",
		slog.String("prediction_id", rec.ID),
		slog.String("winner", winner),
		slog.String("status", string(status)),
	)

	if s.sender != nil {
		rec.Status = status
		if err := s.sender.SendMessage(ctx, rec.ChatID, FormatSettlement(rec, winner)); err != nil {
			s.logger.WarnContext(ctx, "push settlement failed",
				slog.Int64("chat_id", rec.ChatID),
				slog.String("error", err.Error()),
			)
		}
	}
	return true
}

// DetermineWinner reads the final score lines and returns the winning team
// name, or "Draw" on equal scores. Scores arrive as strings from the
// provider and are compared numerically. It returns false when either team's
// score is missing or unparseable.
func DetermineWinner(ev domain.ScoreEvent) (string, bool) {
	home, homeOK := scoreFor(ev, ev.HomeTeam)
	away, awayOK := scoreFor(ev, ev.AwayTeam)
	if !homeOK || !awayOK {
		return "", false
	}

	switch {
	case home > away:
		return ev.HomeTeam, true
	case away > home:
		return ev.AwayTeam, true
	default:
		return "Draw", true
	}
}

func scoreFor(ev domain.ScoreEvent, team string) (int, bool) {
	for _, line := range ev.Scores {
		if strings.EqualFold(line.Name, team) {
			n, err := strconv.Atoi(strings.TrimSpace(line.Score))
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
