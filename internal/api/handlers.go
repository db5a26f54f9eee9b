package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/uyin85/lyric-story-backend/internal/db"
	"github.com/uyin85/lyric-story-backend/internal/models"
	"github.com/uyin85/lyric-story-backend/internal/queue"
	"github.com/uyin85/lyric-story-backend/internal/storage"
)

// maxUploadBytes caps the multipart body; songs run a few MB, so 32MB is
// generous without letting a client exhaust memory.
const maxUploadBytes = 32 << 20

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		storage: stor,
	}
}

// Generate handles POST /v1/generate. The request is multipart form data:
// lyrics (text, required), song (audio file, required), style (optional,
// defaults to cinematic). All input validation happens here, before any
// external call is made; the heavy pipeline runs on the worker.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	lyrics := strings.TrimSpace(r.FormValue("lyrics"))
	if lyrics == "" {
		respondError(w, http.StatusBadRequest, "Lyrics are required")
		return
	}

	file, header, err := r.FormFile("song")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Song file is required")
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read song file")
		return
	}
	if len(audioData) == 0 {
		respondError(w, http.StatusBadRequest, "Song file is empty")
		return
	}

	style := models.ParseStylePreset(r.FormValue("style"))

	// Stash the upload so the worker can pick it up
	videoID := uuid.New()
	audioPath := storage.UploadPath(videoID, "song.mp3")

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	if err := h.storage.Store(r.Context(), audioPath, audioData, contentType); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	video := &models.Video{
		ID:               videoID,
		UserID:           userID,
		Lyrics:           lyrics,
		LyricsPreview:    models.LyricsPreview(lyrics),
		Style:            style,
		Status:           models.VideoStatusQueued,
		AudioStoragePath: audioPath,
	}

	if err := h.db.CreateVideo(r.Context(), video); err != nil {
		h.reclaimUpload(r.Context(), audioPath)
		respondError(w, http.StatusInternalServerError, "Failed to create video record")
		return
	}

	jobID := uuid.New()
	job := &models.Job{
		ID:      jobID,
		VideoID: video.ID,
		Type:    "generate_video",
		Status:  models.JobStatusQueued,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		h.reclaimUpload(r.Context(), audioPath)
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateVideo(r.Context(), video.ID, jobID); err != nil {
		h.reclaimUpload(r.Context(), audioPath)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.GenerateResponse{
		VideoID: video.ID,
		Status:  video.Status,
	})
}

// reclaimUpload removes a stored song when the request fails after the
// upload already landed, so no orphaned object lingers in the bucket.
// Best effort; failures are only logged.
func (h *Handler) reclaimUpload(ctx context.Context, audioPath string) {
	if err := h.storage.Delete(ctx, audioPath); err != nil {
		log.Printf("Warning: could not delete upload %s: %v", audioPath, err)
	}
}

// ListVideos handles GET /v1/videos — the caller's videos, newest first.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	videos, err := h.db.ListUserVideos(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	respondJSON(w, http.StatusOK, models.ListVideosResponse{Videos: videos})
}

// GetVideo handles GET /v1/videos/{id}.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	video, err := h.db.GetVideo(r.Context(), videoID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	if video.UserID != userID {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	respondJSON(w, http.StatusOK, video)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
