package domain_test

import (
	"testing"

	"speak-translate/internal/domain"
)

func TestSelectVoice(t *testing.T) {
	voices := []domain.Voice{
		{Name: "en-us", Locale: "en-US"},
		{Name: "fr-fr", Locale: "fr_FR"},
		{Name: "fr-ca", Locale: "fr-CA"},
	}

	tests := []struct {
		locale string
		want   string
		found  bool
	}{
		{locale: "fr", want: "fr-fr", found: true},
		{locale: "fr-CA", want: "fr-ca", found: true},
		{locale: "FR_ca", want: "fr-ca", found: true},
		{locale: "de", found: false},
		{locale: "", found: false},
	}

	for _, tt := range tests {
		v, ok := domain.SelectVoice(voices, tt.locale)
		if ok != tt.found {
			t.Errorf("%q: found %t, want %t", tt.locale, ok, tt.found)
			continue
		}
		if ok && v.Name != tt.want {
			t.Errorf("%q: got %s, want %s", tt.locale, v.Name, tt.want)
		}
	}
}
