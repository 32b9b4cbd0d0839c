// Package service implements the application services that tie the odds
// provider, the arbitrage scanner, and the persistence layers together.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quarterpin/oraclebot/internal/arbitrage"
	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/notify"
)

// OpportunityChannel is the pub/sub channel carrying newly detected
// opportunities as JSON.
const OpportunityChannel = "opportunities"

// OpportunityStream is the durable stream mirroring OpportunityChannel for
// consumers that must not miss entries.
const OpportunityStream = "stream:opportunities"

// OddsProvider is the slice of the odds client the OddsService needs.
type OddsProvider interface {
	ListSports(ctx context.Context) ([]domain.Sport, error)
	GetOdds(ctx context.Context, sportKey string) ([]domain.Event, error)
	GetEventOdds(ctx context.Context, sportKey, eventID string) (domain.Event, error)
}

// Alerter is the slice of the operator notifier the OddsService needs.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OddsConfig holds the tunable parameters for the scan cycle.
type OddsConfig struct {
	// MinNotifyMargin suppresses operator alerts for opportunities whose
	// profit margin is below this percentage. Detection and persistence are
	// unaffected.
	MinNotifyMargin float64
	// SnapshotOdds archives every raw odds response to object storage.
	SnapshotOdds bool
}

// OddsService fetches odds, runs the arbitrage scan, persists and publishes
// what it finds.
type OddsService struct {
	provider  OddsProvider
	opps      domain.OpportunityStore
	bus       domain.SignalBus
	snapshots domain.SnapshotWriter
	alerter   Alerter
	cfg       OddsConfig
	logger    *slog.Logger
}

// NewOddsService creates an OddsService. bus, snapshots, and alerter may be
// nil; the corresponding step is skipped.
func NewOddsService(
	provider OddsProvider,
	opps domain.OpportunityStore,
	bus domain.SignalBus,
	snapshots domain.SnapshotWriter,
	alerter Alerter,
	cfg OddsConfig,
	logger *slog.Logger,
) *OddsService {
	return &OddsService{
		provider:  provider,
		opps:      opps,
		bus:       bus,
		snapshots: snapshots,
		alerter:   alerter,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "odds_service")),
	}
}

// ListSports exposes the provider's sports catalogue.
func (s *OddsService) ListSports(ctx context.Context) ([]domain.Sport, error) {
	return s.provider.ListSports(ctx)
}

// GetEvents exposes the provider's upcoming events for one sport.
func (s *OddsService) GetEvents(ctx context.Context, sportKey string) ([]domain.Event, error) {
	return s.provider.GetOdds(ctx, sportKey)
}

// GetEvent returns a single event with fresh odds.
func (s *OddsService) GetEvent(ctx context.Context, sportKey, eventID string) (domain.Event, error) {
	return s.provider.GetEventOdds(ctx, sportKey, eventID)
}

// ScanSports runs one full scan cycle over the given sport keys: fetch odds
// per sport (concurrently), scan for arbitrage, persist, publish, and alert.
// One sport failing does not abort the cycle; its error is logged and the
// remaining sports are scanned.
func (s *OddsService) ScanSports(ctx context.Context, sportKeys []string) ([]domain.Opportunity, error) {
	takenAt := time.Now().UTC()

	eventsBySport := make([][]domain.Event, len(sportKeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, key := range sportKeys {
		g.Go(func() error {
			events, err := s.provider.GetOdds(gctx, key)
			if err != nil {
				// Soft failure: scan what we can.
				s.logger.WarnContext(gctx, "fetch odds failed",
					slog.String("sport", key),
					slog.String("error", err.Error()),
				)
				return nil
			}
			eventsBySport[i] = events

			if s.cfg.SnapshotOdds && s.snapshots != nil {
				if err := s.snapshots.WriteSnapshot(gctx, key, takenAt, events); err != nil {
					s.logger.WarnContext(gctx, "snapshot failed",
						slog.String("sport", key),
						slog.String("error", err.Error()),
					)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("odds_service: scan fetch: %w", err)
	}

	var events []domain.Event
	for _, chunk := range eventsBySport {
		events = append(events, chunk...)
	}

	opps, stats := arbitrage.ScanWithStats(events)

	// Stamp identity and detection time; the scanner leaves both zero.
	now := time.Now().UTC()
	for i := range opps {
		opps[i].ID = uuid.New().String()
		opps[i].DetectedAt = now
	}

	s.logger.InfoContext(ctx, "scan cycle complete",
		slog.Int("sports", len(sportKeys)),
		slog.Int("events", stats.Events),
		slog.Int("opportunities", len(opps)),
		slog.Int("no_arbitrage", stats.NoArbitrage),
		slog.Int("malformed_quotes", stats.MalformedQuotes),
	)

	if len(opps) == 0 {
		return nil, nil
	}

	if err := s.opps.InsertBatch(ctx, opps); err != nil {
		return opps, fmt.Errorf("odds_service: persist opportunities: %w", err)
	}

	for _, opp := range opps {
		s.publish(ctx, opp)
	}

	return opps, nil
}

// publish pushes one opportunity onto the signal bus and raises an operator
// alert when the margin clears the notify threshold. Both paths are
// best-effort; failures are logged, not returned.
func (s *OddsService) publish(ctx context.Context, opp domain.Opportunity) {
	payload, err := json.Marshal(opp)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal opportunity",
			slog.String("opp_id", opp.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, OpportunityChannel, payload); err != nil {
			s.logger.WarnContext(ctx, "publish opportunity",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.StreamAppend(ctx, OpportunityStream, payload); err != nil {
			s.logger.WarnContext(ctx, "stream opportunity",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.alerter != nil && opp.ProfitMargin >= s.cfg.MinNotifyMargin {
		title := fmt.Sprintf("Arbitrage: %s", opp.Match)
		msg := formatOpportunityAlert(opp)
		if err := s.alerter.Notify(ctx, notify.EventArbDetected, title, msg); err != nil {
			s.logger.WarnContext(ctx, "alert failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// formatOpportunityAlert renders the operator alert body.
func formatOpportunityAlert(opp domain.Opportunity) string {
	msg := fmt.Sprintf("Profit margin: %.2f%%\nSport: %s\nKickoff: %s\n",
		opp.DisplayMargin(), opp.SportKey, opp.CommenceTime.UTC().Format(time.RFC1123))
	for name, q := range opp.BestOdds {
		msg += fmt.Sprintf("%s @ %.2f (%s)\n", name, q.Price, q.Bookmaker)
	}
	return msg
}
