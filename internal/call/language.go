package call

import "strings"

// SupportedLanguages are the TTS language codes calls may use
var SupportedLanguages = []string{"en", "it", "es", "fr", "de", "pt", "zh", "ja"}

// languageSuggestions corrects common near-misses for language codes
var languageSuggestions = map[string]string{
	"jp":  "ja",
	"cn":  "zh",
	"eng": "en",
	"ita": "it",
	"esp": "es",
	"fra": "fr",
	"deu": "de",
	"por": "pt",
}

// NormalizeLanguage lowercases raw (falling back to def when empty) and
// validates it against the supported set.
func NormalizeLanguage(raw, def string) (string, error) {
	lang := raw
	if lang == "" {
		lang = def
	}
	lang = strings.ToLower(strings.TrimSpace(lang))

	for _, supported := range SupportedLanguages {
		if lang == supported {
			return lang, nil
		}
	}
	return "", &UnsupportedLanguageError{
		Language:   lang,
		Suggestion: languageSuggestions[lang],
	}
}
