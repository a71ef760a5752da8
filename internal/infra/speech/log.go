package speech

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"speak-translate/internal/domain"
)

// LogSynthesizer produces no audio; it only logs what would be said.
type LogSynthesizer struct {
	logger *slog.Logger
}

func NewLogSynthesizer(logger *slog.Logger) *LogSynthesizer {
	return &LogSynthesizer{logger: logger}
}

func (s *LogSynthesizer) Name() string {
	return "log"
}

func (s *LogSynthesizer) Voices(_ context.Context) ([]domain.Voice, error) {
	return nil, nil
}

func (s *LogSynthesizer) Synthesize(_ context.Context, text string, settings domain.VoiceSettings) (*domain.AudioClip, error) {
	s.logger.Info("speak", "text", text, "voice", settings.Voice, "pitch", settings.Pitch, "rate", settings.Rate)
	return &domain.AudioClip{
		Encoding:   domain.EncodingPCM16,
		SampleRate: 16000,
		Channels:   1,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

// DiscardPlayer drains clips without playing them.
type DiscardPlayer struct{}

func (DiscardPlayer) Name() string {
	return "discard"
}

func (DiscardPlayer) Play(ctx context.Context, clip *domain.AudioClip) error {
	defer clip.Body.Close()
	if _, err := io.Copy(io.Discard, clip.Body); err != nil {
		return err
	}
	return ctx.Err()
}

func (DiscardPlayer) Close() error {
	return nil
}
