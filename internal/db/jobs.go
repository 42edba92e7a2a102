package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

var ErrRenderJobNotFound = errors.New("render job not found")

// RenderJob is one row of render history.
type RenderJob struct {
	ID                string             `json:"id"`
	ProjectName       string             `json:"projectName"`
	Index             int                `json:"index"`
	Status            models.QueueStatus `json:"status"`
	Seed              int                `json:"seed"`
	DownloadName      string             `json:"downloadName"`
	Recipe            models.Recipe      `json:"recipe"`
	ArtifactURL       *string            `json:"artifactUrl,omitempty"`
	ArtifactMime      *string            `json:"artifactMime,omitempty"`
	VideoURL          *string            `json:"videoUrl,omitempty"`
	OverlayProvider   *string            `json:"overlayProvider,omitempty"`
	SpeechProvider    *string            `json:"speechProvider,omitempty"`
	QualityOverall    *float64           `json:"qualityOverall,omitempty"`
	TargetDurationSec float64            `json:"targetDurationSec"`
	ErrorMessage      *string            `json:"errorMessage,omitempty"`
	FinishedAt        time.Time          `json:"finishedAt"`
}

// RecordItem upserts a queue item that reached a terminal status.
func (db *DB) RecordItem(ctx context.Context, projectName string, item models.QueueItem) error {
	if !item.Status.IsTerminal() {
		return fmt.Errorf("item %d is %s, not terminal", item.Index, item.Status)
	}

	var quality *float64
	if item.QualityGate != nil {
		quality = &item.QualityGate.Overall
	}

	query := `
		INSERT INTO render_jobs (
			id, project_name, item_index, status, seed, download_name, recipe,
			artifact_url, artifact_mime, video_url, overlay_provider, speech_provider,
			quality_overall, target_duration_sec, error_message, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			artifact_url = EXCLUDED.artifact_url,
			artifact_mime = EXCLUDED.artifact_mime,
			video_url = EXCLUDED.video_url,
			quality_overall = EXCLUDED.quality_overall,
			error_message = EXCLUDED.error_message,
			finished_at = EXCLUDED.finished_at
	`

	_, err := db.ExecContext(
		ctx, query,
		item.ID, projectName, item.Index, item.Status, item.Seed, item.DownloadName, item.Recipe,
		nullString(item.ArtifactURL), nullString(item.ArtifactMime), nullString(item.VideoURL),
		nullString(item.OverlayProvider), nullString(item.SpeechProvider),
		quality, item.TargetDurationSec, nullString(item.Error), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record render job: %w", err)
	}
	return nil
}

func (db *DB) GetRenderJob(ctx context.Context, id string) (*RenderJob, error) {
	query := `
		SELECT
			id, project_name, item_index, status, seed, download_name, recipe,
			artifact_url, artifact_mime, video_url, overlay_provider, speech_provider,
			quality_overall, target_duration_sec, error_message, finished_at
		FROM render_jobs
		WHERE id = $1
	`

	job := &RenderJob{}
	err := db.QueryRowContext(ctx, query, id).Scan(job.fields()...)
	if err == sql.ErrNoRows {
		return nil, ErrRenderJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render job: %w", err)
	}

	return job, nil
}

// ListRenderJobs returns render history, newest first.
func (db *DB) ListRenderJobs(ctx context.Context, limit, offset int) ([]RenderJob, error) {
	query := `
		SELECT
			id, project_name, item_index, status, seed, download_name, recipe,
			artifact_url, artifact_mime, video_url, overlay_provider, speech_provider,
			quality_overall, target_duration_sec, error_message, finished_at
		FROM render_jobs
		ORDER BY finished_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query render jobs: %w", err)
	}
	defer rows.Close()

	jobs := []RenderJob{}
	for rows.Next() {
		var job RenderJob
		if err := rows.Scan(job.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan render job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (j *RenderJob) fields() []interface{} {
	return []interface{}{
		&j.ID, &j.ProjectName, &j.Index, &j.Status, &j.Seed, &j.DownloadName, &j.Recipe,
		&j.ArtifactURL, &j.ArtifactMime, &j.VideoURL, &j.OverlayProvider, &j.SpeechProvider,
		&j.QualityOverall, &j.TargetDurationSec, &j.ErrorMessage, &j.FinishedAt,
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
