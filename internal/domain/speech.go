package domain

import "io"

const (
	EncodingPCM16 = "pcm_s16le"
	EncodingWAV   = "wav"
)

// VoiceSettings is the fixed speech output configuration.
type VoiceSettings struct {
	Language string
	Voice    string
	Pitch    float64
	Rate     float64
}

// AudioClip is synthesized audio. Body is owned by the consumer, which must
// close it.
type AudioClip struct {
	Encoding   string
	SampleRate int
	Channels   int
	Body       io.ReadCloser
}
