//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"speak-translate/internal/domain"
)

// Speaker plays 16-bit PCM on the default output device. Playback checks
// ctx between buffers, so cancelling it cuts the audio within one buffer.
type Speaker struct {
	logger *slog.Logger
	mu     sync.Mutex
	inited bool
}

func NewSpeaker(logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger}
}

func (s *Speaker) Name() string {
	return "speaker"
}

func (s *Speaker) Play(ctx context.Context, clip *domain.AudioClip) error {
	defer clip.Body.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initializing portaudio: %w", err)
		}
		s.inited = true
	}

	reader, sampleRate, channels, err := pcmReader(clip)
	if err != nil {
		return err
	}

	out := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}

	for {
		if ctx.Err() != nil {
			stream.Abort()
			return ctx.Err()
		}

		err := binary.Read(reader, binary.LittleEndian, out)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// binary.Read leaves a partial buffer undefined; pad with silence.
			clear(out)
		} else if err != nil {
			stream.Abort()
			return fmt.Errorf("reading audio: %w", err)
		}

		if err := stream.Write(); err != nil {
			stream.Abort()
			return fmt.Errorf("writing audio: %w", err)
		}
	}

	return stream.Stop()
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited {
		return nil
	}
	s.inited = false
	return portaudio.Terminate()
}
