package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/ugcstudio/internal/store"
)

// ProjectStore is a store.KV backed by the project_blobs table.
type ProjectStore struct {
	db *DB
}

func (db *DB) ProjectStore() *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM project_blobs WHERE key = $1`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project blob: %w", err)
	}

	return value, nil
}

func (s *ProjectStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO project_blobs (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save project blob: %w", err)
	}
	return nil
}

func (s *ProjectStore) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM project_blobs WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete project blob: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete project blob: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
