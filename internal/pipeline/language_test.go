package pipeline

import "testing"

func TestDetectLanguageEnglish(t *testing.T) {
	lyrics := "A quiet night falls over the sleeping city and every dream begins again with the morning light"
	if got := DetectLanguage(lyrics); got != "en" {
		t.Errorf("expected en, got %q", got)
	}
}

func TestDetectLanguageSpanish(t *testing.T) {
	lyrics := "La noche tranquila cae sobre la ciudad dormida y todos los sueños comienzan otra vez con la luz de la mañana"
	if got := DetectLanguage(lyrics); got != "es" {
		t.Errorf("expected es, got %q", got)
	}
}

func TestDetectLanguageShortTextFallsBack(t *testing.T) {
	for _, text := range []string{"", "   ", "la la la", "ooh yeah"} {
		if got := DetectLanguage(text); got != defaultLanguage {
			t.Errorf("DetectLanguage(%q) = %q, want %q", text, got, defaultLanguage)
		}
	}
}

func TestCultureHintKnownCodes(t *testing.T) {
	for code, hint := range cultureHints {
		if got := CultureHint(code); got != hint {
			t.Errorf("CultureHint(%q) = %q, want %q", code, got, hint)
		}
	}
}

func TestCultureHintUnknownCodeIsGeneric(t *testing.T) {
	for _, code := range []string{"xx", "sw", ""} {
		if got := CultureHint(code); got != genericCultureHint {
			t.Errorf("CultureHint(%q) = %q, want generic hint", code, got)
		}
	}
}

func TestResolveCultureNeverEmpty(t *testing.T) {
	lang, hint := ResolveCulture("short")
	if lang == "" || hint == "" {
		t.Errorf("ResolveCulture returned empty result: %q %q", lang, hint)
	}
}
