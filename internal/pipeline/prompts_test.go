package pipeline

import (
	"strings"
	"testing"

	"github.com/uyin85/lyric-story-backend/internal/models"
)

func TestBuildImagePrompt(t *testing.T) {
	scene := Scene{
		Index:                1,
		Description:          "The city rises ahead of her",
		CharacterDescription: "A woman in a worn green coat",
	}

	prompt := BuildImagePrompt(scene, "french new wave cinema aesthetic", models.StyleAnime)

	for _, part := range []string{
		"A woman in a worn green coat",
		"The city rises ahead of her",
		"french new wave cinema aesthetic",
		models.StyleAnime.PromptPhrase(),
		qualitySuffix,
	} {
		if !strings.Contains(prompt, part) {
			t.Errorf("prompt missing %q:\n%s", part, prompt)
		}
	}

	// Character leads the prompt so the synthesis service weights it most
	if !strings.HasPrefix(prompt, scene.CharacterDescription) {
		t.Errorf("prompt should start with the character description:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, qualitySuffix) {
		t.Errorf("prompt should end with the quality suffix:\n%s", prompt)
	}
}
