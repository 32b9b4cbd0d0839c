package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// JobStore implements domain.JobStore using PostgreSQL.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a new JobStore backed by the given connection pool.
func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Enqueue inserts a new analysis job in pending state.
func (s *JobStore) Enqueue(ctx context.Context, job domain.AnalysisJob) error {
	const query = `
		INSERT INTO analysis_queue (id, event_id, sport_key, chat_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	status := job.Status
	if status == "" {
		status = domain.JobPending
	}

	if _, err := s.pool.Exec(ctx, query,
		job.ID, job.EventID, job.SportKey, job.ChatID, string(status),
	); err != nil {
		return fmt.Errorf("postgres: enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// ListPending returns up to limit pending jobs, oldest first.
func (s *JobStore) ListPending(ctx context.Context, limit int) ([]domain.AnalysisJob, error) {
	const query = `
		SELECT id, event_id, sport_key, chat_id, status, error, created_at, updated_at
		FROM analysis_queue
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// UpdateStatus transitions a job to a new status, recording an error message
// for failed jobs.
func (s *JobStore) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	const query = `
		UPDATE analysis_queue
		SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("postgres: update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single job.
func (s *JobStore) GetByID(ctx context.Context, id string) (domain.AnalysisJob, error) {
	const query = `
		SELECT id, event_id, sport_key, chat_id, status, error, created_at, updated_at
		FROM analysis_queue
		WHERE id = $1`

	var job domain.AnalysisJob
	var status string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.EventID, &job.SportKey, &job.ChatID,
		&status, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.AnalysisJob{}, domain.ErrNotFound
		}
		return domain.AnalysisJob{}, fmt.Errorf("postgres: get job %s: %w", id, err)
	}
	job.Status = domain.JobStatus(status)

	return job, nil
}

func scanJobs(rows pgx.Rows) ([]domain.AnalysisJob, error) {
	var jobs []domain.AnalysisJob
	for rows.Next() {
		var job domain.AnalysisJob
		var status string
		if err := rows.Scan(
			&job.ID, &job.EventID, &job.SportKey, &job.ChatID,
			&status, &job.Error, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan job: %w", err)
		}
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
