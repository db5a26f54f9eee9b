package services

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// narrativeTimeout bounds the single completion request; the job cannot
// proceed without a story baseline, so a hung call must not hold the worker.
const narrativeTimeout = 45 * time.Second

type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// GenerateNarrative asks the completion service for the three labeled
// sections the scene planner parses: meaning, storyline, and character.
// One synchronous request, first choice only — a failure here is fatal to
// the job and surfaced to the caller, never silently defaulted.
func (s *OpenAIService) GenerateNarrative(ctx context.Context, lyrics string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, narrativeTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildNarrativePrompt(lyrics),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	content := resp.Choices[0].Message.Content
	log.Printf("[OpenAI] Narrative generated (%d chars)", len(content))
	return content, nil
}

// buildNarrativePrompt instructs the model to answer in the lyrics' own
// language and to emit the exact labels the planner's parser looks for.
func buildNarrativePrompt(lyrics string) string {
	return fmt.Sprintf(`You are a visual storyteller. Read the song lyrics below and respond IN THE SAME LANGUAGE as the lyrics.

Respond with exactly three labeled sections:

Meaning: one or two sentences on what the song is about.
Storyline: a short visual story of 4 to 6 sentences that tells the song's journey, each sentence a distinct visual moment.
Character: one sentence describing the story's main character (appearance, age, clothing) so an artist could draw them.

Use those exact labels at the start of each section. Do not add anything before the first label.

Lyrics:
%s`, lyrics)
}
