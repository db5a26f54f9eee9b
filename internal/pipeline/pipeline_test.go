package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/uyin85/lyric-story-backend/internal/models"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeNarrative struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeNarrative) GenerateNarrative(ctx context.Context, lyrics string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeImages struct {
	mu      sync.Mutex
	seeds   []int
	prompts []string
	// failOn fails any request whose prompt contains this substring
	failOn string
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string, seed int) ([]byte, error) {
	f.mu.Lock()
	f.seeds = append(f.seeds, seed)
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return nil, errors.New("synthesis backend unavailable")
	}
	return []byte("png-bytes"), nil
}

type fakeMedia struct {
	mu            sync.Mutex
	audioDuration float64
	finalDuration float64
	probeErr      error
	renderErr     error
	clipDurations []float64
	concatCalls   int
	muxCalls      int
	// unboundedCalls counts invocations whose context carried no deadline
	unboundedCalls int
}

func (f *fakeMedia) noteDeadline(ctx context.Context) {
	if _, ok := ctx.Deadline(); !ok {
		f.mu.Lock()
		f.unboundedCalls++
		f.mu.Unlock()
	}
}

func (f *fakeMedia) ProbeDurationSeconds(ctx context.Context, path string) (float64, error) {
	f.noteDeadline(ctx)
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	if strings.HasSuffix(path, "song.mp3") {
		return f.audioDuration, nil
	}
	return f.finalDuration, nil
}

func (f *fakeMedia) RenderZoomClip(ctx context.Context, imagePath, outputPath string, durationSeconds float64) error {
	f.noteDeadline(ctx)
	if f.renderErr != nil {
		return f.renderErr
	}
	f.mu.Lock()
	f.clipDurations = append(f.clipDurations, durationSeconds)
	f.mu.Unlock()
	return os.WriteFile(outputPath, []byte("clip"), 0644)
}

func (f *fakeMedia) ConcatenateClips(ctx context.Context, clipPaths []string, outputPath string) error {
	f.noteDeadline(ctx)
	f.concatCalls++
	return os.WriteFile(outputPath, []byte("silent"), 0644)
}

func (f *fakeMedia) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	f.noteDeadline(ctx)
	f.muxCalls++
	return os.WriteFile(outputPath, []byte("final"), 0644)
}

type fakePublisher struct {
	mu    sync.Mutex
	calls int
	paths []string
	err   error
}

func (f *fakePublisher) Store(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls++
	f.paths = append(f.paths, path)
	return nil
}

func (f *fakePublisher) PublicURL(path string) string {
	return "https://cdn.example.com/" + path
}

// ---------------------------------------------------------------------------

const testNarrative = `Meaning: A night in the city, and the hope of morning.
Storyline: A quiet night settles over the skyline. The city sleeps under silver light. Dreams begin to wander far from home. Morning comes with golden promise.
Character: A young woman with short dark hair in a gray hooded coat.`

const testLyrics = "A quiet night falls over the city. The city sleeps under silver light. Dreams begin to wander far from home. Morning comes with golden promise."

func newTestPipeline(t *testing.T, narrative *fakeNarrative, images *fakeImages, media *fakeMedia, publisher *fakePublisher) (*Pipeline, string) {
	t.Helper()
	tempRoot := t.TempDir()
	return New(narrative, images, media, publisher, tempRoot), tempRoot
}

func assertTempReclaimed(t *testing.T, tempRoot string) {
	t.Helper()
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		t.Fatalf("failed to read temp root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp root reclaimed, found %d entries", len(entries))
	}
}

func TestRunEndToEnd(t *testing.T) {
	narrative := &fakeNarrative{text: testNarrative}
	images := &fakeImages{}
	media := &fakeMedia{audioDuration: 125.0, finalDuration: 124.2}
	publisher := &fakePublisher{}
	p, tempRoot := newTestPipeline(t, narrative, images, media, publisher)

	jobID := uuid.New()
	result, err := p.Run(context.Background(), Request{
		JobID:     jobID,
		UserID:    uuid.New(),
		Lyrics:    testLyrics,
		Style:     models.StyleAnime,
		AudioData: []byte("mp3"),
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	// 125s of audio → 4 scenes → 4 images, 4 clips
	if result.SceneCount != 4 {
		t.Errorf("expected 4 scenes, got %d", result.SceneCount)
	}
	if len(images.prompts) != 4 {
		t.Errorf("expected 4 image requests, got %d", len(images.prompts))
	}

	// Every scene of a job uses the same seed
	for i, seed := range images.seeds {
		if seed != imageSeed {
			t.Errorf("image %d used seed %d, want %d", i, seed, imageSeed)
		}
	}

	// Uniform split: 4 clips of 31.25s that sum to the audio duration
	if len(media.clipDurations) != 4 {
		t.Fatalf("expected 4 rendered clips, got %d", len(media.clipDurations))
	}
	var total float64
	for i, d := range media.clipDurations {
		if math.Abs(d-31.25) > 1e-9 {
			t.Errorf("clip %d duration %.4f, want 31.25", i, d)
		}
		total += d
	}
	if math.Abs(total-125.0) > 1e-9 {
		t.Errorf("clip durations sum to %.4f, want 125.0", total)
	}

	if media.concatCalls != 1 || media.muxCalls != 1 {
		t.Errorf("expected one concat and one mux, got %d/%d", media.concatCalls, media.muxCalls)
	}

	// Every subprocess call must run under a deadline so a wedged encoder
	// cannot pin a worker
	if media.unboundedCalls != 0 {
		t.Errorf("%d media calls ran without a context deadline", media.unboundedCalls)
	}

	// Final artifact trims to the shorter stream
	if math.Abs(result.DurationSeconds-124.2) > 1e-9 {
		t.Errorf("final duration %.4f, want 124.2", result.DurationSeconds)
	}

	if result.Language != "en" {
		t.Errorf("expected language en, got %q", result.Language)
	}
	if result.Style != models.StyleAnime {
		t.Errorf("expected style anime, got %q", result.Style)
	}

	wantPath := "videos/" + jobID.String() + ".mp4"
	if publisher.calls != 1 || publisher.paths[0] != wantPath {
		t.Errorf("expected one publish to %q, got %v", wantPath, publisher.paths)
	}
	if result.VideoURL != publisher.PublicURL(wantPath) {
		t.Errorf("unexpected video URL %q", result.VideoURL)
	}

	assertTempReclaimed(t, tempRoot)
}

func TestRunUniformSplitAllSceneCounts(t *testing.T) {
	// 3 through 6 scenes: clip durations always sum back to the audio length
	durations := map[float64]int{95: 3, 125: 4, 160: 5, 300: 6}

	for audioDur, wantScenes := range durations {
		narrative := &fakeNarrative{text: testNarrative}
		images := &fakeImages{}
		media := &fakeMedia{audioDuration: audioDur, finalDuration: audioDur}
		publisher := &fakePublisher{}
		p, _ := newTestPipeline(t, narrative, images, media, publisher)

		result, err := p.Run(context.Background(), Request{
			JobID:     uuid.New(),
			UserID:    uuid.New(),
			Lyrics:    testLyrics,
			Style:     models.StyleCinematic,
			AudioData: []byte("mp3"),
		})
		if err != nil {
			t.Fatalf("audio %.0fs: pipeline failed: %v", audioDur, err)
		}
		if result.SceneCount != wantScenes {
			t.Errorf("audio %.0fs: got %d scenes, want %d", audioDur, result.SceneCount, wantScenes)
		}

		var total float64
		for _, d := range media.clipDurations {
			total += d
		}
		if math.Abs(total-audioDur) > 1e-6 {
			t.Errorf("audio %.0fs: clips sum to %.6f", audioDur, total)
		}
	}
}

func TestRunEmptyLyricsRejectedBeforeAnyExternalCall(t *testing.T) {
	narrative := &fakeNarrative{text: testNarrative}
	images := &fakeImages{}
	media := &fakeMedia{audioDuration: 125}
	publisher := &fakePublisher{}
	p, _ := newTestPipeline(t, narrative, images, media, publisher)

	_, err := p.Run(context.Background(), Request{
		JobID:     uuid.New(),
		Lyrics:    "   ",
		Style:     models.StyleCinematic,
		AudioData: []byte("mp3"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if narrative.calls != 0 {
		t.Error("narrative service called despite invalid input")
	}
	if len(images.prompts) != 0 {
		t.Error("image service called despite invalid input")
	}
}

func TestRunMissingAudioRejected(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeNarrative{text: testNarrative}, &fakeImages{}, &fakeMedia{}, &fakePublisher{})

	_, err := p.Run(context.Background(), Request{
		JobID:  uuid.New(),
		Lyrics: testLyrics,
		Style:  models.StyleCinematic,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunUnreadableAudio(t *testing.T) {
	media := &fakeMedia{probeErr: errors.New("moov atom not found")}
	p, tempRoot := newTestPipeline(t, &fakeNarrative{text: testNarrative}, &fakeImages{}, media, &fakePublisher{})

	_, err := p.Run(context.Background(), Request{
		JobID:     uuid.New(),
		Lyrics:    testLyrics,
		Style:     models.StyleCinematic,
		AudioData: []byte("not-audio"),
	})
	if !errors.Is(err, ErrAssetUnreadable) {
		t.Fatalf("expected ErrAssetUnreadable, got %v", err)
	}
	if !errors.Is(err, ErrMedia) {
		t.Errorf("asset errors should classify as media failures: %v", err)
	}
	assertTempReclaimed(t, tempRoot)
}

func TestRunNarrativeFailureIsFatal(t *testing.T) {
	narrative := &fakeNarrative{err: errors.New("connection refused")}
	images := &fakeImages{}
	p, tempRoot := newTestPipeline(t, narrative, images, &fakeMedia{audioDuration: 125, finalDuration: 125}, &fakePublisher{})

	_, err := p.Run(context.Background(), Request{
		JobID:     uuid.New(),
		Lyrics:    testLyrics,
		Style:     models.StyleCinematic,
		AudioData: []byte("mp3"),
	})
	if !errors.Is(err, ErrNarrative) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream narrative error, got %v", err)
	}
	if len(images.prompts) != 0 {
		t.Error("image service called after narrative failure")
	}
	assertTempReclaimed(t, tempRoot)
}

func TestRunImageFailureDiscardsEverything(t *testing.T) {
	narrative := &fakeNarrative{text: testNarrative}
	// Scene index 2 of 4 carries "wander far from home"
	images := &fakeImages{failOn: "wander far from home"}
	media := &fakeMedia{audioDuration: 125, finalDuration: 125}
	publisher := &fakePublisher{}
	p, tempRoot := newTestPipeline(t, narrative, images, media, publisher)

	_, err := p.Run(context.Background(), Request{
		JobID:     uuid.New(),
		Lyrics:    testLyrics,
		Style:     models.StyleCinematic,
		AudioData: []byte("mp3"),
	})
	if !errors.Is(err, ErrImageSynthesis) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream image synthesis error, got %v", err)
	}

	if publisher.calls != 0 {
		t.Error("partial artifact published after image failure")
	}
	if len(media.clipDurations) != 0 {
		t.Error("clips rendered after image failure")
	}
	assertTempReclaimed(t, tempRoot)
}

func TestRunRenderFailure(t *testing.T) {
	media := &fakeMedia{audioDuration: 125, finalDuration: 125, renderErr: errors.New("encoder exited 1")}
	publisher := &fakePublisher{}
	p, tempRoot := newTestPipeline(t, &fakeNarrative{text: testNarrative}, &fakeImages{}, media, publisher)

	_, err := p.Run(context.Background(), Request{
		JobID:     uuid.New(),
		Lyrics:    testLyrics,
		Style:     models.StyleCinematic,
		AudioData: []byte("mp3"),
	})
	if !errors.Is(err, ErrRender) || !errors.Is(err, ErrMedia) {
		t.Fatalf("expected render error, got %v", err)
	}
	if publisher.calls != 0 {
		t.Error("artifact published after render failure")
	}
	assertTempReclaimed(t, tempRoot)
}

func TestRunPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("bucket quota exceeded")}
	p, tempRoot := newTestPipeline(t, &fakeNarrative{text: testNarrative}, &fakeImages{}, &fakeMedia{audioDuration: 125, finalDuration: 125}, publisher)

	_, err := p.Run(context.Background(), Request{
		JobID:     uuid.New(),
		Lyrics:    testLyrics,
		Style:     models.StyleCinematic,
		AudioData: []byte("mp3"),
	})
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	assertTempReclaimed(t, tempRoot)
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: lyrics", ErrInvalidInput), "bad_request"},
		{fmt.Errorf("%w: boom", ErrNarrative), "upstream_failure"},
		{fmt.Errorf("%w: boom", ErrImageSynthesis), "upstream_failure"},
		{fmt.Errorf("%w: boom", ErrAssetUnreadable), "internal_error"},
		{fmt.Errorf("%w: boom", ErrRender), "internal_error"},
		{fmt.Errorf("%w: boom", ErrAssembly), "internal_error"},
		{fmt.Errorf("%w: boom", ErrPublish), "publish_failure"},
		{errors.New("anything else"), "internal_error"},
	}

	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestMediaTimeoutScalesWithDuration(t *testing.T) {
	short := mediaTimeout(10)
	long := mediaTimeout(300)

	if short < mediaBaseTimeout {
		t.Errorf("timeout %v below base %v", short, mediaBaseTimeout)
	}
	if long <= short {
		t.Errorf("timeout should grow with duration: %v vs %v", long, short)
	}
	if want := mediaBaseTimeout + 300*mediaTimeoutPerSecond; long != want {
		t.Errorf("mediaTimeout(300) = %v, want %v", long, want)
	}
}

func TestFinalDurationSeconds(t *testing.T) {
	if got := finalDurationSeconds(98.0, 95.3); got != 95.3 {
		t.Errorf("expected 95.3, got %v", got)
	}
	if got := finalDurationSeconds(95.3, 98.0); got != 95.3 {
		t.Errorf("expected 95.3, got %v", got)
	}
}
