package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new SettingsStore backed by the given connection pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get retrieves a single setting by key.
func (s *SettingsStore) Get(ctx context.Context, key string) (domain.Setting, error) {
	const query = `SELECT key, value, encrypted, updated_at FROM settings WHERE key = $1`

	var setting domain.Setting
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&setting.Key, &setting.Value, &setting.Encrypted, &setting.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Setting{}, domain.ErrNotFound
		}
		return domain.Setting{}, fmt.Errorf("postgres: get setting %s: %w", key, err)
	}

	return setting, nil
}

// Set inserts or updates a setting.
func (s *SettingsStore) Set(ctx context.Context, setting domain.Setting) error {
	const query = `
		INSERT INTO settings (key, value, encrypted, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			encrypted = EXCLUDED.encrypted,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, setting.Key, setting.Value, setting.Encrypted); err != nil {
		return fmt.Errorf("postgres: set setting %s: %w", setting.Key, err)
	}
	return nil
}

// List returns all settings ordered by key.
func (s *SettingsStore) List(ctx context.Context) ([]domain.Setting, error) {
	const query = `SELECT key, value, encrypted, updated_at FROM settings ORDER BY key`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settings: %w", err)
	}
	defer rows.Close()

	var settings []domain.Setting
	for rows.Next() {
		var setting domain.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Encrypted, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan setting: %w", err)
		}
		settings = append(settings, setting)
	}

	return settings, rows.Err()
}

// Delete removes a setting by key.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres: delete setting %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
