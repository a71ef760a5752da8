//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"speak-translate/internal/domain"
)

// Speaker stub when portaudio is not available
type Speaker struct {
	logger *slog.Logger
}

func NewSpeaker(logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger}
}

func (s *Speaker) Name() string {
	return "speaker"
}

func (s *Speaker) Play(_ context.Context, clip *domain.AudioClip) error {
	clip.Body.Close()
	return fmt.Errorf("speaker not available: rebuild with -tags portaudio")
}

func (s *Speaker) Close() error {
	return nil
}
