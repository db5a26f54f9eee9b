package pipeline

import (
	"strings"
)

// Scene is one narrative beat: it maps to exactly one generated image and
// one rendered clip. CharacterDescription is shared by every scene of a job
// so the protagonist stays recognizable across images.
type Scene struct {
	Index                int
	Description          string
	CharacterDescription string
}

const (
	defaultCharacter = "a young dreamer with expressive eyes, wearing simple timeless clothing"
	defaultStoryline = "A lone figure wanders through shifting landscapes in search of meaning"
)

// narrative section labels the completion service is asked to emit
const (
	labelMeaning   = "meaning:"
	labelStoryline = "storyline:"
	labelCharacter = "character:"
)

// parsedNarrative holds the three labeled sections recovered from the raw
// completion text.
type parsedNarrative struct {
	Meaning   string
	Storyline string
	Character string
}

// parseNarrative walks the completion output line by line, tracking which
// labeled section is active. Lines that don't open a new section append to
// the active one, so multi-line fields survive. Content before the first
// label is discarded — models often emit a preamble.
func parseNarrative(raw string) parsedNarrative {
	var parsed parsedNarrative
	var active *string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, labelMeaning):
			parsed.Meaning = strings.TrimSpace(trimmed[len(labelMeaning):])
			active = &parsed.Meaning
		case strings.HasPrefix(lower, labelStoryline):
			parsed.Storyline = strings.TrimSpace(trimmed[len(labelStoryline):])
			active = &parsed.Storyline
		case strings.HasPrefix(lower, labelCharacter):
			parsed.Character = strings.TrimSpace(trimmed[len(labelCharacter):])
			active = &parsed.Character
		default:
			if active == nil {
				continue
			}
			if *active == "" {
				*active = trimmed
			} else {
				*active += " " + trimmed
			}
		}
	}

	return parsed
}

// splitStoryline breaks a storyline into candidate scene texts at sentence
// boundaries, dropping empty fragments and keeping at most maxScenes.
func splitStoryline(storyline string) []string {
	var fragments []string
	for _, part := range strings.Split(storyline, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fragments = append(fragments, part)
		if len(fragments) == maxScenes {
			break
		}
	}
	return fragments
}

// PlanScenes turns raw narrative text into exactly n scenes. Empty sections
// get fixed defaults, and when the storyline yields fewer fragments than n
// the fragment list repeats cyclically until it fills. The planner never
// fails: malformed or sparse narrative text still produces n usable scenes.
func PlanScenes(narrativeText string, n int) []Scene {
	parsed := parseNarrative(narrativeText)

	character := parsed.Character
	if character == "" {
		character = defaultCharacter
	}

	storyline := parsed.Storyline
	if storyline == "" {
		storyline = defaultStoryline
	}

	fragments := splitStoryline(storyline)
	if len(fragments) == 0 {
		fragments = []string{defaultStoryline}
	}

	scenes := make([]Scene, n)
	for i := 0; i < n; i++ {
		scenes[i] = Scene{
			Index:                i,
			Description:          fragments[i%len(fragments)],
			CharacterDescription: character,
		}
	}
	return scenes
}
