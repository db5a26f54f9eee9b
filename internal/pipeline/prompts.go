package pipeline

import (
	"fmt"

	"github.com/uyin85/lyric-story-backend/internal/models"
)

// qualitySuffix closes every image prompt; a fixed tail keeps the synthesis
// service's output register consistent across scenes and jobs.
const qualitySuffix = "highly detailed, sharp focus, professional quality"

// BuildImagePrompt composes the image-synthesis prompt for one scene:
// character description, then the scene itself, then the culture hint and
// style phrase, closed by the fixed quality suffix. Order matters — the
// synthesis service weights earlier tokens more heavily, and the character
// leading every prompt is what keeps the protagonist consistent.
func BuildImagePrompt(scene Scene, cultureHint string, style models.StylePreset) string {
	return fmt.Sprintf("%s, %s, %s, %s, %s",
		scene.CharacterDescription,
		scene.Description,
		cultureHint,
		style.PromptPhrase(),
		qualitySuffix,
	)
}
