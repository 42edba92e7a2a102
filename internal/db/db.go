package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: conn}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS project_blobs (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS render_jobs (
	id                  UUID PRIMARY KEY,
	project_name        TEXT NOT NULL,
	item_index          INTEGER NOT NULL,
	status              TEXT NOT NULL,
	seed                INTEGER NOT NULL,
	download_name       TEXT NOT NULL,
	recipe              JSONB NOT NULL,
	artifact_url        TEXT,
	artifact_mime       TEXT,
	video_url           TEXT,
	overlay_provider    TEXT,
	speech_provider     TEXT,
	quality_overall     DOUBLE PRECISION,
	target_duration_sec DOUBLE PRECISION NOT NULL,
	error_message       TEXT,
	finished_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS render_jobs_finished_at_idx ON render_jobs (finished_at DESC);
`

// Migrate creates the tables the service writes to.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
