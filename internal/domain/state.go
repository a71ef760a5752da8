package domain

type State int

const (
	StateIdle State = iota
	StateListening
	StateTranslating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranslating:
		return "translating"
	default:
		return "unknown"
	}
}

// Snapshot is the visible state of the controller: its state and the two
// text fields.
type Snapshot struct {
	State          string `json:"state"`
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
}
