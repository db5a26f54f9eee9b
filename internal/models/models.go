package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Enums

type StylePreset string

const (
	StyleCinematic   StylePreset = "cinematic"
	StyleAnime       StylePreset = "anime"
	StylePixar       StylePreset = "pixar"
	StyleRealistic   StylePreset = "realistic"
	StyleOilPainting StylePreset = "oil_painting"
)

// ParseStylePreset resolves a user-supplied style string to a known preset.
// Unknown or empty values fall back to cinematic.
func ParseStylePreset(s string) StylePreset {
	switch StylePreset(strings.ToLower(strings.TrimSpace(s))) {
	case StyleAnime:
		return StyleAnime
	case StylePixar:
		return StylePixar
	case StyleRealistic:
		return StyleRealistic
	case StyleOilPainting:
		return StyleOilPainting
	default:
		return StyleCinematic
	}
}

// PromptPhrase returns the descriptive text this preset contributes to
// every image prompt of a job.
func (s StylePreset) PromptPhrase() string {
	switch s {
	case StyleAnime:
		return "anime art style, vibrant colors, detailed cel shading"
	case StylePixar:
		return "3D animated style, soft rounded shapes, warm expressive lighting"
	case StyleRealistic:
		return "photorealistic, natural lighting, shallow depth of field"
	case StyleOilPainting:
		return "oil painting style, visible brushstrokes, rich classical texture"
	default:
		return "cinematic composition, dramatic lighting, film still"
	}
}

type VideoStatus string

const (
	VideoStatusQueued     VideoStatus = "queued"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Models

// Video is the catalog record for one lyric-to-video generation. The row is
// created when the request is accepted and updated as the job progresses.
type Video struct {
	ID               uuid.UUID   `json:"id"`
	UserID           uuid.UUID   `json:"user_id"`
	Lyrics           string      `json:"-"` // full text kept for the pipeline, not echoed in responses
	LyricsPreview    string      `json:"lyrics_preview"`
	Language         *string     `json:"language,omitempty"`
	Style            StylePreset `json:"style"`
	Status           VideoStatus `json:"status"`
	AudioStoragePath string      `json:"-"`
	VideoURL         *string     `json:"video_url,omitempty"`
	DurationSeconds  *float64    `json:"duration_seconds,omitempty"`
	SceneCount       *int        `json:"scene_count,omitempty"`
	ErrorCode        *string     `json:"error_code,omitempty"`
	ErrorMessage     *string     `json:"error_message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	VideoID      uuid.UUID  `json:"video_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LyricsPreview truncates lyrics to a short display string for the catalog.
// The cut lands on a rune boundary so multi-byte text never ends mid-rune.
func LyricsPreview(lyrics string) string {
	const maxLen = 120
	preview := strings.Join(strings.Fields(lyrics), " ")
	if len(preview) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	return preview
}

// DTOs for API responses

type GenerateResponse struct {
	VideoID uuid.UUID   `json:"video_id"`
	Status  VideoStatus `json:"status"`
}

type ListVideosResponse struct {
	Videos []Video `json:"videos"`
}
