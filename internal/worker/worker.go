package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/uyin85/lyric-story-backend/internal/db"
	"github.com/uyin85/lyric-story-backend/internal/models"
	"github.com/uyin85/lyric-story-backend/internal/pipeline"
	"github.com/uyin85/lyric-story-backend/internal/queue"
	"github.com/uyin85/lyric-story-backend/internal/storage"
)

// Worker pulls generation jobs off the queue and runs the pipeline for each.
// All blocking pipeline work happens here, off the request-handling path, so
// slow encodes never starve job intake.
type Worker struct {
	db       *db.DB
	queue    *queue.Queue
	storage  *storage.Storage
	pipeline *pipeline.Pipeline
}

func New(database *db.DB, q *queue.Queue, stor *storage.Storage, p *pipeline.Pipeline) *Worker {
	return &Worker{
		db:       database,
		queue:    q,
		storage:  stor,
		pipeline: p,
	}
}

// Start begins processing generation jobs with the given concurrency.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueGenerateVideo, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (video: %s)", job.ID, job.VideoID)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := w.handleGenerateVideo(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleGenerateVideo runs one full lyric-to-video pipeline: fetch the
// request, pull the uploaded song, execute, and record the outcome on the
// video row. The uploaded song is reclaimed whichever way the job ends.
func (w *Worker) handleGenerateVideo(ctx context.Context, job *queue.Job) error {
	video, err := w.db.GetVideo(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("failed to get video: %w", err)
	}

	if err := w.db.UpdateVideoStatus(ctx, video.ID, models.VideoStatusProcessing); err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}

	audioData, err := w.storage.Download(ctx, video.AudioStoragePath)
	if err != nil {
		w.db.MarkVideoFailed(ctx, video.ID, "internal_error", "could not read uploaded audio")
		return fmt.Errorf("failed to download uploaded audio: %w", err)
	}

	defer func() {
		// The upload only exists to feed this job
		if err := w.storage.Delete(context.Background(), video.AudioStoragePath); err != nil {
			log.Printf("Warning: could not delete upload %s: %v", video.AudioStoragePath, err)
		}
	}()

	result, err := w.pipeline.Run(ctx, pipeline.Request{
		JobID:     video.ID,
		UserID:    video.UserID,
		Lyrics:    video.Lyrics,
		Style:     video.Style,
		AudioData: audioData,
	})
	if err != nil {
		w.db.MarkVideoFailed(ctx, video.ID, pipeline.ErrorCode(err), err.Error())
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if err := w.db.MarkVideoCompleted(ctx, video.ID, result.VideoURL, result.Language, result.DurationSeconds, result.SceneCount); err != nil {
		return fmt.Errorf("failed to mark video completed: %w", err)
	}

	log.Printf("Video %s published: %s (%.1fs, %d scenes, lang=%s)",
		video.ID, result.VideoURL, result.DurationSeconds, result.SceneCount, result.Language)

	return nil
}
