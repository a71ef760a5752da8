package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"speak-translate/internal/domain"
)

const (
	espeakDefaultPitch = 50
	espeakDefaultWPM   = 175
)

// EspeakSynthesizer runs espeak-ng locally. It is the only synthesizer that
// honours the pitch multiplier.
type EspeakSynthesizer struct {
	command string
}

func NewEspeakSynthesizer(command string) *EspeakSynthesizer {
	if command == "" {
		command = "espeak-ng"
	}
	return &EspeakSynthesizer{command: command}
}

func (s *EspeakSynthesizer) Name() string {
	return "espeak"
}

func (s *EspeakSynthesizer) Voices(ctx context.Context) ([]domain.Voice, error) {
	out, err := exec.CommandContext(ctx, s.command, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("listing espeak voices: %w", err)
	}
	return parseVoices(out), nil
}

func (s *EspeakSynthesizer) Synthesize(ctx context.Context, text string, settings domain.VoiceSettings) (*domain.AudioClip, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.command, synthesisArgs(text, settings)...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w: %s", s.command, err, strings.TrimSpace(stderr.String()))
	}

	return &domain.AudioClip{
		Encoding: domain.EncodingWAV,
		Channels: 1,
		Body:     io.NopCloser(bytes.NewReader(out)),
	}, nil
}

func synthesisArgs(text string, settings domain.VoiceSettings) []string {
	args := []string{"--stdout"}

	voice := settings.Voice
	if voice == "" {
		voice = settings.Language
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}

	if settings.Pitch > 0 {
		pitch := int(math.Round(espeakDefaultPitch * settings.Pitch))
		args = append(args, "-p", strconv.Itoa(min(max(pitch, 0), 99)))
	}
	if settings.Rate > 0 {
		wpm := int(math.Round(espeakDefaultWPM * settings.Rate))
		args = append(args, "-s", strconv.Itoa(max(wpm, 80)))
	}

	return append(args, "--", text)
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File
//	 5  fr-fr           --/M      French_(France)    roa/fr
func parseVoices(out []byte) []domain.Voice {
	var voices []domain.Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, domain.Voice{Name: fields[1], Locale: fields[1]})
	}
	return voices
}
