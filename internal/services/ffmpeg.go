package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Output / rendering constants — 720p landscape at 24fps. Every clip uses
// the same codec, pixel format, resolution, and frame rate so the concat
// demuxer can join them without re-encoding.
const (
	outputWidth  = 1280
	outputHeight = 720
	videoFPS     = 24

	// The zoom grows linearly from 1.0 and is capped here. Subtle on
	// purpose — the motion should read as drift, not a push-in.
	maxZoom = 1.25
)

// FFmpegService wraps the ffmpeg and ffprobe binaries. All media work runs
// as subprocesses under the caller's context so cancellation kills in-flight
// encodes.
type FFmpegService struct{}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{}
}

// ProbeDurationSeconds returns the playable duration of an audio or video
// file. A file ffprobe cannot read, or one that reports a non-positive
// duration, is an error — a bad upload is a client fault, not a transient
// one, so there are no retries here.
func (s *FFmpegService) ProbeDurationSeconds(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %.3f", duration)
	}

	return duration, nil
}

// RenderZoomClip turns one still image into a silent video clip of the given
// duration with a continuous linear zoom up to the capped factor.
func (s *FFmpegService) RenderZoomClip(ctx context.Context, imagePath, outputPath string, durationSeconds float64) error {
	vf := buildZoomFilter(durationSeconds)
	log.Printf("[FFmpeg] Rendering clip %.2fs, filter=%s", durationSeconds, vf)

	args := []string{
		"-i", imagePath,
		"-vf", vf,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-an",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg render clip failed: %w", err)
	}

	return nil
}

// buildZoomFilter constructs the zoompan filter for a clip: zoom grows
// linearly from 1.0 so it reaches maxZoom on the final frame, centered on
// the image. d pins the exact frame count, which also fixes the clip
// duration at frames/fps.
func buildZoomFilter(durationSeconds float64) string {
	totalFrames := int(durationSeconds * videoFPS)
	if totalFrames < 1 {
		totalFrames = 1
	}

	zExpr := fmt.Sprintf("min(1.0+%.2f*on/%d,%.2f)", maxZoom-1.0, totalFrames, maxZoom)

	return fmt.Sprintf(
		"zoompan=z='%s':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		zExpr,
		totalFrames,
		outputWidth, outputHeight,
		videoFPS,
	)
}

// ConcatenateClips joins the clips into one silent video in list order using
// the concat demuxer. The list file lives next to the output so concurrent
// jobs never collide on a shared path.
func (s *FFmpegService) ConcatenateClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	if err := writeConcatList(listPath, clipPaths); err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // Clips share codec and pixel format, no re-encode needed
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}

	return nil
}

// writeConcatList writes clip paths in the ffmpeg concat demuxer format.
func writeConcatList(listPath string, clipPaths []string) error {
	var b strings.Builder
	for _, path := range clipPaths {
		fmt.Fprintf(&b, "file '%s'\n", path)
	}

	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}

// MuxAudio lays the original song under the silent video: video frames are
// copied unchanged, exactly one video and one audio stream are mapped, and
// -shortest trims the output to the shorter of the two.
func (s *FFmpegService) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mux audio failed: %w", err)
	}

	return nil
}
