package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Image synthesis constants. Steps are tuned for latency over fidelity —
// a music video of 3–6 images does not need 50-step renders.
const (
	imageWidth         = 1024
	imageHeight        = 576
	imageSteps         = 21
	imageGuidanceScale = 7.5

	imageRequestTimeout  = 90 * time.Second
	imageDownloadTimeout = 60 * time.Second

	negativePrompt = "text, watermark, signature, blurry, distorted, deformed, extra limbs, low quality"
)

// ImageGenService talks to a Stable Diffusion style text-to-image API:
// one POST with prompt, negative prompt, seed, step count, and guidance
// scale; the response carries a retrievable image URL.
type ImageGenService struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewImageGenService(apiURL, apiKey string) *ImageGenService {
	return &ImageGenService{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: imageRequestTimeout},
	}
}

type imageGenRequest struct {
	Key               string  `json:"key"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Samples           int     `json:"samples"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Seed              int     `json:"seed"`
	GuidanceScale     float64 `json:"guidance_scale"`
}

type imageGenResponse struct {
	Status  string   `json:"status"`
	Output  []string `json:"output"`
	Message string   `json:"message,omitempty"`
}

// GenerateImage submits one synthesis request and downloads the resulting
// image. The caller supplies the seed — all scenes of a job share one so
// the service renders them in a consistent visual register.
func (s *ImageGenService) GenerateImage(ctx context.Context, prompt string, seed int) ([]byte, error) {
	reqBody := imageGenRequest{
		Key:               s.apiKey,
		Prompt:            prompt,
		NegativePrompt:    negativePrompt,
		Width:             imageWidth,
		Height:            imageHeight,
		Samples:           1,
		NumInferenceSteps: imageSteps,
		Seed:              seed,
		GuidanceScale:     imageGuidanceScale,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result imageGenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse image response: %w", err)
	}

	if result.Status != "success" || len(result.Output) == 0 {
		return nil, fmt.Errorf("image synthesis unsuccessful (status=%q): %s", result.Status, result.Message)
	}

	return s.downloadImage(ctx, result.Output[0])
}

// downloadImage fetches the synthesized image from the URL the service
// returned. An unreachable result URL fails the job the same way a service
// error does.
func (s *ImageGenService) downloadImage(ctx context.Context, url string) ([]byte, error) {
	dlCtx, cancel := context.WithTimeout(ctx, imageDownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	log.Printf("[ImageGen] Downloaded image (%d bytes)", len(data))
	return data, nil
}
