package application

import (
	"context"
	"fmt"

	"speak-translate/internal/domain"
)

// SpeechToText turns a clip into a ranked list of hypotheses, best first.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, cfg domain.RecognitionConfig) ([]domain.Hypothesis, error)
}

// NoopSTT is used with text-only sources.
// It returns an error if called with actual audio data.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ []byte, _ domain.RecognitionConfig) ([]domain.Hypothesis, error) {
	return nil, fmt.Errorf("speech-to-text not configured: set recognizer.provider to enable audio transcription")
}

// Recognizer is a speech recognition session. Lifecycle notifications are
// delivered on Events until Close.
type Recognizer interface {
	Open(ctx context.Context) error
	StartListening(ctx context.Context, cfg domain.RecognitionConfig) error
	StopListening() error
	Events() <-chan domain.RecognitionEvent
	Close() error
}

// SpeechOutput speaks text. Speak flushes whatever is currently playing.
type SpeechOutput interface {
	Init(ctx context.Context)
	Speak(ctx context.Context, text string) error
	IsSpeaking() bool
	Stop() error
	Shutdown() error
}
