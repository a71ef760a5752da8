package domain

type EventKind string

const (
	EventReady          EventKind = "ready"
	EventSpeechBegin    EventKind = "speech_begin"
	EventVolumeChange   EventKind = "volume_change"
	EventBuffer         EventKind = "buffer"
	EventSpeechEnd      EventKind = "speech_end"
	EventError          EventKind = "error"
	EventPartialResults EventKind = "partial_results"
	EventFinalResults   EventKind = "final_results"
	EventGeneric        EventKind = "generic"
)

// RecognitionEvent is a single lifecycle notification from a recognizer.
// Only the fields relevant to Kind are set.
type RecognitionEvent struct {
	Kind       EventKind
	Hypotheses []Hypothesis
	RMSdB      float64
	Buffer     []byte
	Err        error
	EventType  int
	Params     map[string]any
}

// Hypothesis is one ranked alternative for an utterance, best first.
type Hypothesis struct {
	Transcript string
	Confidence float64
}

// TopHypothesis returns the best transcript of a ranked list.
func TopHypothesis(hypotheses []Hypothesis) (string, bool) {
	if len(hypotheses) == 0 || hypotheses[0].Transcript == "" {
		return "", false
	}
	return hypotheses[0].Transcript, true
}

// RecognitionConfig describes what the recognizer should listen for.
type RecognitionConfig struct {
	Language        string
	Model           string
	MaxAlternatives int
}

const LanguageModelFreeForm = "free_form"

// TextClipPrefix marks a clip that already carries its transcript and
// bypasses speech-to-text.
const TextClipPrefix = "__TEXT__:"

// TextFromClip reports whether data is a text clip and returns its text.
func TextFromClip(data []byte) (string, bool) {
	if len(data) > len(TextClipPrefix) && string(data[:len(TextClipPrefix)]) == TextClipPrefix {
		return string(data[len(TextClipPrefix):]), true
	}
	return "", false
}
