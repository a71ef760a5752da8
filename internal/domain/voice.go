package domain

import "strings"

type Voice struct {
	Name   string
	Locale string
}

// SelectVoice returns the first voice whose locale matches. A bare language
// ("fr") matches any regional variant ("fr-FR", "fr_CA").
func SelectVoice(voices []Voice, locale string) (Voice, bool) {
	if locale == "" {
		return Voice{}, false
	}

	want := normalizeLocale(locale)
	for _, v := range voices {
		have := normalizeLocale(v.Locale)
		if have == "" {
			continue
		}
		if have == want || (!strings.Contains(want, "-") && strings.HasPrefix(have, want+"-")) {
			return v, true
		}
	}
	return Voice{}, false
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
}
