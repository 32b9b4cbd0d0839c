package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

const historyColumns = `id, chat_id, event_id, sport_key, home_team, away_team,
	commence_time, predicted_winner, confidence_score, risk_level, reasoning,
	status, created_at, settled_at`

// Insert persists a new prediction record.
func (s *HistoryStore) Insert(ctx context.Context, rec domain.PredictionRecord) error {
	const query = `
		INSERT INTO prediction_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	status := rec.Status
	if status == "" {
		status = domain.PredictionPending
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.pool.Exec(ctx, query,
		rec.ID, rec.ChatID, rec.EventID, rec.SportKey, rec.HomeTeam, rec.AwayTeam,
		rec.CommenceTime, rec.PredictedWinner, rec.ConfidenceScore, rec.RiskLevel,
		rec.Reasoning, string(status), createdAt, rec.SettledAt,
	); err != nil {
		return fmt.Errorf("postgres: insert prediction %s: %w", rec.ID, err)
	}
	return nil
}

// ListByChat returns a chat's predictions, newest first.
func (s *HistoryStore) ListByChat(ctx context.Context, chatID int64, opts domain.ListOpts) ([]domain.PredictionRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT ` + historyColumns + `
		FROM prediction_history
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, chatID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListPending returns all unsettled predictions whose events have commenced.
func (s *HistoryStore) ListPending(ctx context.Context) ([]domain.PredictionRecord, error) {
	const query = `
		SELECT ` + historyColumns + `
		FROM prediction_history
		WHERE status = 'Pending' AND commence_time <= NOW()
		ORDER BY commence_time ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending predictions: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Settle marks a prediction correct or incorrect and stamps the settle time.
func (s *HistoryStore) Settle(ctx context.Context, id string, status domain.PredictionStatus) error {
	const query = `
		UPDATE prediction_history
		SET status = $2, settled_at = NOW()
		WHERE id = $1 AND status = 'Pending'`

	tag, err := s.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("postgres: settle prediction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListSettledBefore returns settled predictions older than cutoff, for
// archiving to cold storage.
func (s *HistoryStore) ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PredictionRecord, error) {
	const query = `
		SELECT ` + historyColumns + `
		FROM prediction_history
		WHERE status <> 'Pending' AND settled_at < $1
		ORDER BY settled_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled predictions: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteByIDs removes prediction rows after they have been archived.
func (s *HistoryStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM prediction_history WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete predictions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecords(rows pgx.Rows) ([]domain.PredictionRecord, error) {
	var recs []domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.ChatID, &rec.EventID, &rec.SportKey, &rec.HomeTeam,
			&rec.AwayTeam, &rec.CommenceTime, &rec.PredictedWinner,
			&rec.ConfidenceScore, &rec.RiskLevel, &rec.Reasoning,
			&status, &rec.CreatedAt, &rec.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan prediction: %w", err)
		}
		rec.Status = domain.PredictionStatus(status)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
