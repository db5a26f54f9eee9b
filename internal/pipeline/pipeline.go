package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/uyin85/lyric-story-backend/internal/models"
)

// Service interfaces. The worker wires the real clients; tests substitute
// fakes. Kept deliberately narrow — each one is exactly the contract a
// pipeline stage needs from its collaborator.

type NarrativeService interface {
	GenerateNarrative(ctx context.Context, lyrics string) (string, error)
}

type ImageService interface {
	// GenerateImage synthesizes one image for the prompt using the given
	// seed and returns the raw image bytes.
	GenerateImage(ctx context.Context, prompt string, seed int) ([]byte, error)
}

type MediaService interface {
	ProbeDurationSeconds(ctx context.Context, path string) (float64, error)
	RenderZoomClip(ctx context.Context, imagePath, outputPath string, durationSeconds float64) error
	ConcatenateClips(ctx context.Context, clipPaths []string, outputPath string) error
	MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string) error
}

type Publisher interface {
	Store(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

const (
	// Every scene of a job uses this seed so the synthesis service renders
	// the scenes in one coherent visual register. Varying the seed per
	// scene gives each image a different character and the video stops
	// reading as one story.
	imageSeed = 4242

	// maxImageWorkers bounds the concurrent image requests per job.
	maxImageWorkers = 4

	// Media subprocess budgets. A wedged encoder must never pin a worker
	// goroutine, so every probe, render, and assembly call carries a
	// deadline. Probes are cheap and get a flat bound; encode and assembly
	// budgets scale with the material being processed.
	probeTimeout          = 30 * time.Second
	mediaBaseTimeout      = 60 * time.Second
	mediaTimeoutPerSecond = 2 * time.Second
)

// mediaTimeout is the deadline for one encode or assembly step over
// durationSeconds of material.
func mediaTimeout(durationSeconds float64) time.Duration {
	return mediaBaseTimeout + time.Duration(durationSeconds*float64(mediaTimeoutPerSecond))
}

// Request is the immutable job input, accepted once and never mutated.
type Request struct {
	JobID     uuid.UUID
	UserID    uuid.UUID
	Lyrics    string
	Style     models.StylePreset
	AudioData []byte
}

// Result describes the published artifact.
type Result struct {
	VideoURL        string
	Language        string
	Style           models.StylePreset
	DurationSeconds float64
	SceneCount      int
}

// Pipeline runs one lyric-to-video job end to end: probe, plan, synthesize,
// render, assemble, publish. Each stage consumes the previous stage's full
// output before starting.
type Pipeline struct {
	narrative NarrativeService
	images    ImageService
	media     MediaService
	publisher Publisher
	tempRoot  string
}

func New(narrative NarrativeService, images ImageService, media MediaService, publisher Publisher, tempRoot string) *Pipeline {
	return &Pipeline{
		narrative: narrative,
		images:    images,
		media:     media,
		publisher: publisher,
		tempRoot:  tempRoot,
	}
}

// Run executes the full pipeline for one job. All temporary artifacts live
// in a working directory namespaced by the job ID and are removed on every
// exit path, including cancellation. No partial video is ever published.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Lyrics) == "" {
		return nil, fmt.Errorf("%w: lyrics are required", ErrInvalidInput)
	}
	if len(req.AudioData) == 0 {
		return nil, fmt.Errorf("%w: audio is required", ErrInvalidInput)
	}

	if err := os.MkdirAll(p.tempRoot, 0755); err != nil {
		return nil, fmt.Errorf("%w: create temp root: %v", ErrMedia, err)
	}

	workDir, err := os.MkdirTemp(p.tempRoot, "job-"+req.JobID.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: create working directory: %v", ErrMedia, err)
	}
	defer os.RemoveAll(workDir)

	// Stage 1: duration probe
	audioPath := filepath.Join(workDir, "song.mp3")
	if err := os.WriteFile(audioPath, req.AudioData, 0644); err != nil {
		return nil, fmt.Errorf("%w: write audio: %v", ErrMedia, err)
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, probeTimeout)
	audioDuration, err := p.media.ProbeDurationSeconds(probeCtx, audioPath)
	cancelProbe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetUnreadable, err)
	}
	if audioDuration <= 0 {
		return nil, fmt.Errorf("%w: non-positive duration %.3f", ErrAssetUnreadable, audioDuration)
	}

	n := SceneCount(audioDuration)
	log.Printf("[Pipeline] Job %s: audio %.1fs, %d scenes", req.JobID, audioDuration, n)

	// Stage 2: language + culture hint (advisory, never fatal)
	language, cultureHint := ResolveCulture(req.Lyrics)

	// Stage 3: narrative generation
	narrativeText, err := p.narrative.GenerateNarrative(ctx, req.Lyrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNarrative, err)
	}

	// Stage 4: scene planning (never fails)
	scenes := PlanScenes(narrativeText, n)

	// Stage 5: image synthesis, bounded fan-out, collected by scene index
	imagePaths, err := p.synthesizeImages(ctx, workDir, scenes, cultureHint, req.Style)
	if err != nil {
		return nil, err
	}

	// Stage 6: clip rendering, uniform duration split
	clipDuration := audioDuration / float64(n)
	clipPaths := make([]string, n)
	for _, scene := range scenes {
		clipPath := filepath.Join(workDir, fmt.Sprintf("clip_%d.mp4", scene.Index))
		renderCtx, cancelRender := context.WithTimeout(ctx, mediaTimeout(clipDuration))
		err := p.media.RenderZoomClip(renderCtx, imagePaths[scene.Index], clipPath, clipDuration)
		cancelRender()
		if err != nil {
			return nil, fmt.Errorf("%w: scene %d: %v", ErrRender, scene.Index, err)
		}
		clipPaths[scene.Index] = clipPath
	}

	// Stage 7: assembly — silent concat, then mux the original song back in
	silentPath := filepath.Join(workDir, "silent.mp4")
	concatCtx, cancelConcat := context.WithTimeout(ctx, mediaTimeout(audioDuration))
	err = p.media.ConcatenateClips(concatCtx, clipPaths, silentPath)
	cancelConcat()
	if err != nil {
		return nil, fmt.Errorf("%w: concatenate: %v", ErrAssembly, err)
	}

	finalPath := filepath.Join(workDir, "final.mp4")
	muxCtx, cancelMux := context.WithTimeout(ctx, mediaTimeout(audioDuration))
	err = p.media.MuxAudio(muxCtx, silentPath, audioPath, finalPath)
	cancelMux()
	if err != nil {
		return nil, fmt.Errorf("%w: mux audio: %v", ErrAssembly, err)
	}

	finalProbeCtx, cancelFinalProbe := context.WithTimeout(ctx, probeTimeout)
	videoDuration, err := p.media.ProbeDurationSeconds(finalProbeCtx, finalPath)
	cancelFinalProbe()
	if err != nil {
		return nil, fmt.Errorf("%w: probe final video: %v", ErrAssembly, err)
	}

	// Stage 8: publish
	videoData, err := os.ReadFile(finalPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read final video: %v", ErrAssembly, err)
	}

	storagePath := path.Join("videos", req.JobID.String()+".mp4")
	if err := p.publisher.Store(ctx, storagePath, videoData, "video/mp4"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	return &Result{
		VideoURL:        p.publisher.PublicURL(storagePath),
		Language:        language,
		Style:           req.Style,
		DurationSeconds: finalDurationSeconds(videoDuration, audioDuration),
		SceneCount:      n,
	}, nil
}

// synthesizeImages requests one image per scene with at most
// min(n, maxImageWorkers) in flight. Results land in a slice indexed by
// scene, so completion order never affects final ordering. Any failure
// cancels the remaining requests and fails the job — clip count must equal
// scene count, so a missing image cannot be skipped.
func (p *Pipeline) synthesizeImages(ctx context.Context, workDir string, scenes []Scene, cultureHint string, style models.StylePreset) ([]string, error) {
	paths := make([]string, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	workers := len(scenes)
	if workers > maxImageWorkers {
		workers = maxImageWorkers
	}
	g.SetLimit(workers)

	for _, scene := range scenes {
		scene := scene
		g.Go(func() error {
			prompt := BuildImagePrompt(scene, cultureHint, style)
			data, err := p.images.GenerateImage(gctx, prompt, imageSeed)
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.Index, err)
			}

			path := filepath.Join(workDir, fmt.Sprintf("scene_%d.png", scene.Index))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("scene %d: write image: %w", scene.Index, err)
			}
			paths[scene.Index] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageSynthesis, err)
	}
	return paths, nil
}

// finalDurationSeconds is the published artifact duration: the mux trims to
// the shorter of the concatenated video and the song.
func finalDurationSeconds(videoDuration, audioDuration float64) float64 {
	return math.Min(videoDuration, audioDuration)
}
