package pipeline

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

const (
	defaultLanguage = "en"

	// Detection below this confidence is treated as unknown. Language is
	// advisory only, so a wrong guess costs little but a confident default
	// keeps prompts coherent.
	minDetectionConfidence = 0.5

	genericCultureHint = "universal cinematic visual aesthetic"
)

// cultureHints maps a detected language code to the stylistic phrase blended
// into every image prompt of the job.
var cultureHints = map[string]string{
	"en": "western contemporary visual aesthetic",
	"es": "vibrant latin american visual aesthetic",
	"pt": "warm brazilian tropical visual aesthetic",
	"fr": "french new wave cinema aesthetic",
	"de": "moody european urban aesthetic",
	"it": "romantic italian countryside aesthetic",
	"ja": "japanese visual aesthetic with soft natural light",
	"ko": "korean drama cinematic aesthetic",
	"zh": "chinese ink painting influenced aesthetic",
	"hi": "rich indian cinematic aesthetic",
	"ar": "middle eastern golden hour aesthetic",
	"ms": "southeast asian kampung visual aesthetic",
	"id": "indonesian archipelago visual aesthetic",
	"ru": "stark eastern european visual aesthetic",
	"tr": "anatolian crossroads visual aesthetic",
}

// DetectLanguage returns a best-effort ISO 639-1 code for the lyric text.
// Short or ambiguous text falls back to "en"; detection never fails a job.
func DetectLanguage(lyrics string) string {
	text := strings.TrimSpace(lyrics)
	if len(text) < 20 {
		return defaultLanguage
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() || info.Confidence < minDetectionConfidence {
		return defaultLanguage
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return defaultLanguage
	}
	return code
}

// CultureHint maps a language code to its image-prompt phrase. Codes without
// an entry get a generic hint rather than an error.
func CultureHint(langCode string) string {
	if hint, ok := cultureHints[langCode]; ok {
		return hint
	}
	return genericCultureHint
}

// ResolveCulture runs detection and hint lookup in one step.
func ResolveCulture(lyrics string) (langCode, hint string) {
	langCode = DetectLanguage(lyrics)
	return langCode, CultureHint(langCode)
}
