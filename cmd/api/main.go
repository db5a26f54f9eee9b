package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uyin85/lyric-story-backend/internal/api"
	"github.com/uyin85/lyric-story-backend/internal/config"
	"github.com/uyin85/lyric-story-backend/internal/db"
	"github.com/uyin85/lyric-story-backend/internal/pipeline"
	"github.com/uyin85/lyric-story-backend/internal/queue"
	"github.com/uyin85/lyric-story-backend/internal/services"
	"github.com/uyin85/lyric-story-backend/internal/storage"
	"github.com/uyin85/lyric-story-backend/internal/worker"
)

func main() {
	log.Println("Starting Lyric Story API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, stor)
	router := api.NewRouter(handler, api.RouterConfig{
		SupabaseJWTSecret:  cfg.SupabaseJWTSecret,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Initialize pipeline services
		openaiSvc := services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)
		imageSvc := services.NewImageGenService(cfg.ImageAPIURL, cfg.ImageAPIKey)
		ffmpegSvc := services.NewFFmpegService()

		p := pipeline.New(openaiSvc, imageSvc, ffmpegSvc, stor, cfg.TempDir)

		w := worker.New(database, q, stor, p)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
