package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL. Best
// odds are stored as JSONB keyed by outcome name.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityColumns = `id, event_id, match, sport_key, commence_time,
	best_odds, arb_value, profit_margin, detected_at`

// Insert persists one opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	oddsJSON, err := json.Marshal(opp.BestOdds)
	if err != nil {
		return fmt.Errorf("postgres: marshal best odds %s: %w", opp.ID, err)
	}

	const query = `
		INSERT INTO opportunity_history (` + opportunityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := s.pool.Exec(ctx, query,
		opp.ID, opp.EventID, opp.Match, opp.SportKey, opp.CommenceTime,
		oddsJSON, opp.ArbValue, opp.ProfitMargin, opp.DetectedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// InsertBatch persists a scan cycle's opportunities in one round trip.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO opportunity_history (` + opportunityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, opp := range opps {
		oddsJSON, err := json.Marshal(opp.BestOdds)
		if err != nil {
			return fmt.Errorf("postgres: marshal best odds %s: %w", opp.ID, err)
		}
		batch.Queue(query,
			opp.ID, opp.EventID, opp.Match, opp.SportKey, opp.CommenceTime,
			oddsJSON, opp.ArbValue, opp.ProfitMargin, opp.DetectedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range opps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity batch: %w", err)
		}
	}
	return nil
}

// ListRecent returns the most recently detected opportunities.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT ` + opportunityColumns + `
		FROM opportunity_history
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// ListBefore returns opportunities detected before cutoff, oldest first, for
// archiving to cold storage.
func (s *OpportunityStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Opportunity, error) {
	const query = `
		SELECT ` + opportunityColumns + `
		FROM opportunity_history
		WHERE detected_at < $1
		ORDER BY detected_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// DeleteByIDs removes opportunity rows after they have been archived.
func (s *OpportunityStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM opportunity_history WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOpportunities(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var oddsJSON []byte
		if err := rows.Scan(
			&opp.ID, &opp.EventID, &opp.Match, &opp.SportKey, &opp.CommenceTime,
			&oddsJSON, &opp.ArbValue, &opp.ProfitMargin, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		if oddsJSON != nil {
			if err := json.Unmarshal(oddsJSON, &opp.BestOdds); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal best odds %s: %w", opp.ID, err)
			}
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}
