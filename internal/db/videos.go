package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/uyin85/lyric-story-backend/internal/models"
)

func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (
			id, user_id, lyrics, lyrics_preview, style, status, audio_storage_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		video.ID, video.UserID, video.Lyrics, video.LyricsPreview,
		video.Style, video.Status, video.AudioStoragePath,
	).Scan(&video.CreatedAt, &video.UpdatedAt)
}

func (db *DB) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	query := `
		SELECT
			id, user_id, lyrics, lyrics_preview, language, style, status,
			audio_storage_path, video_url, duration_seconds, scene_count,
			error_code, error_message, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	video := &models.Video{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.UserID, &video.Lyrics, &video.LyricsPreview,
		&video.Language, &video.Style, &video.Status,
		&video.AudioStoragePath, &video.VideoURL, &video.DurationSeconds,
		&video.SceneCount, &video.ErrorCode, &video.ErrorMessage,
		&video.CreatedAt, &video.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// ListUserVideos returns the caller's videos, newest first.
func (db *DB) ListUserVideos(ctx context.Context, userID uuid.UUID) ([]models.Video, error) {
	query := `
		SELECT
			id, user_id, lyrics, lyrics_preview, language, style, status,
			audio_storage_path, video_url, duration_seconds, scene_count,
			error_code, error_message, created_at, updated_at
		FROM videos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var video models.Video
		err := rows.Scan(
			&video.ID, &video.UserID, &video.Lyrics, &video.LyricsPreview,
			&video.Language, &video.Style, &video.Status,
			&video.AudioStoragePath, &video.VideoURL, &video.DurationSeconds,
			&video.SceneCount, &video.ErrorCode, &video.ErrorMessage,
			&video.CreatedAt, &video.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	return videos, nil
}

func (db *DB) UpdateVideoStatus(ctx context.Context, id uuid.UUID, status models.VideoStatus) error {
	query := `UPDATE videos SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

// MarkVideoCompleted records the published artifact and its metadata.
func (db *DB) MarkVideoCompleted(ctx context.Context, id uuid.UUID, videoURL, language string, durationSeconds float64, sceneCount int) error {
	query := `
		UPDATE videos
		SET status = $1, video_url = $2, language = $3, duration_seconds = $4,
		    scene_count = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err := db.ExecContext(
		ctx, query,
		models.VideoStatusCompleted, videoURL, language, durationSeconds, sceneCount, id,
	)
	return err
}

func (db *DB) MarkVideoFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE videos
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.VideoStatusFailed, errorCode, errorMessage, id)
	return err
}
