package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// AdminStore implements domain.AdminStore using PostgreSQL.
type AdminStore struct {
	pool *pgxpool.Pool
}

// NewAdminStore creates a new AdminStore backed by the given connection pool.
func NewAdminStore(pool *pgxpool.Pool) *AdminStore {
	return &AdminStore{pool: pool}
}

// IsAdmin reports whether the chat ID is registered as an admin.
func (s *AdminStore) IsAdmin(ctx context.Context, chatID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE chat_id = $1)`, chatID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check admin %d: %w", chatID, err)
	}
	return exists, nil
}

// Add registers a chat ID as an admin. Adding an existing admin is a no-op.
func (s *AdminStore) Add(ctx context.Context, chatID int64) error {
	const query = `INSERT INTO admins (chat_id) VALUES ($1) ON CONFLICT (chat_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("postgres: add admin %d: %w", chatID, err)
	}
	return nil
}

// Remove revokes admin status for a chat ID.
func (s *AdminStore) Remove(ctx context.Context, chatID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM admins WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("postgres: remove admin %d: %w", chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
