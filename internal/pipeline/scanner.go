package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// OpportunityScanner runs one arbitrage scan across a set of sports.
type OpportunityScanner interface {
	ScanSports(ctx context.Context, sportKeys []string) ([]domain.Opportunity, error)
}

// Scanner drives the periodic odds scan. Each cycle fetches odds for every
// configured sport, detects arbitrage, and persists what it finds.
type Scanner struct {
	scanner OpportunityScanner
	sports  []string
	trigger chan struct{}
	logger  *slog.Logger
}

// NewScanner creates a new Scanner.
func NewScanner(scanner OpportunityScanner, sports []string, logger *slog.Logger) *Scanner {
	return &Scanner{
		scanner: scanner,
		sports:  sports,
		trigger: make(chan struct{}, 1),
		logger:  logger,
	}
}

// TriggerChan returns the channel a manual-scan endpoint can send on to run
// one cycle ahead of schedule.
func (s *Scanner) TriggerChan() chan<- struct{} {
	return s.trigger
}

// Run executes a single scan cycle over all configured sports.
func (s *Scanner) Run(ctx context.Context) error {
	started := time.Now()

	opps, err := s.scanner.ScanSports(ctx, s.sports)
	if err != nil {
		return fmt.Errorf("scanning %d sports: %w", len(s.sports), err)
	}

	s.logger.Info("scan cycle complete",
		slog.Int("sports", len(s.sports)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// RunLoop runs the scanner on a repeating interval until the context is
// cancelled.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := s.Run(ctx); err != nil {
		s.logger.Error("scan cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("scan cycle failed", slog.String("error", err.Error()))
			}
		case <-s.trigger:
			s.logger.Info("manual scan triggered")
			if err := s.Run(ctx); err != nil {
				s.logger.Error("scan cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}
