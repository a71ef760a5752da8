package speech

import (
	"reflect"
	"testing"

	"speak-translate/internal/domain"
)

func TestSynthesisArgs(t *testing.T) {
	got := synthesisArgs("bonjour", domain.VoiceSettings{Voice: "fr-fr", Pitch: 1.2, Rate: 0.8})
	want := []string{"--stdout", "-v", "fr-fr", "-p", "60", "-s", "140", "--", "bonjour"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args: got %v, want %v", got, want)
	}

	got = synthesisArgs("hi", domain.VoiceSettings{Language: "en-US", Pitch: 3, Rate: 0.1})
	want = []string{"--stdout", "-v", "en-US", "-p", "99", "-s", "80", "--", "hi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clamped args: got %v, want %v", got, want)
	}
}

func TestParseVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 5  fr-fr           --/M      French_(France)    roa/fr               (fr 5)
 5  ar              --/M      Arabic             sem/ar
`)

	voices := parseVoices(out)
	if len(voices) != 3 {
		t.Fatalf("voices: got %d, want 3", len(voices))
	}

	v, ok := domain.SelectVoice(voices, "fr")
	if !ok || v.Name != "fr-fr" {
		t.Errorf("select fr: got %+v (%t)", v, ok)
	}
}
