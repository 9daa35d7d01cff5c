// Package translations holds the label tables for marker popups and result
// rendering. Only the lookup mechanism matters to the pipeline; callers pass
// a fallback for any missing key.
package translations

// Func resolves a label key, falling back to the given default.
type Func func(key, fallback string) string

// NormalizeLanguage extracts a supported language code, defaulting to Italian.
func NormalizeLanguage(lang string) string {
	switch lang {
	case "en", "english":
		return "en"
	default:
		return "it"
	}
}

// Translator returns the lookup function for a language.
func Translator(lang string) Func {
	table := italian
	if NormalizeLanguage(lang) == "en" {
		table = english
	}

	return func(key, fallback string) string {
		if v, ok := table[key]; ok {
			return v
		}
		return fallback
	}
}
