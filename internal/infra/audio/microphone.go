//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// MicrophoneSource records one utterance per NextClip from the default
// input device: it waits for speech, then stops after a second of silence,
// at the maximum duration, or when ctx is cancelled.
type MicrophoneSource struct {
	sampleRate       int
	maxDuration      time.Duration
	silenceThreshold int16
	logger           *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []int16
}

func NewMicrophoneSource(sampleRate int, maxDuration time.Duration, logger *slog.Logger) *MicrophoneSource {
	if maxDuration <= 0 {
		maxDuration = 10 * time.Second
	}
	return &MicrophoneSource{
		sampleRate:       sampleRate,
		maxDuration:      maxDuration,
		silenceThreshold: 500,
		logger:           logger,
		buffer:           make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

// Start opens the default input device. Failure here means the device is
// missing or access was denied.
func (m *MicrophoneSource) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), len(m.buffer), m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening input stream: %w", err)
	}

	m.stream = stream
	m.logger.Info("microphone opened", "sample_rate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}
	err := m.stream.Close()
	m.stream = nil
	portaudio.Terminate()
	return err
}

func (m *MicrophoneSource) NextClip(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil, fmt.Errorf("microphone not open")
	}

	if err := m.stream.Start(); err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	defer m.stream.Stop()

	maxSamples := int(m.maxDuration.Seconds() * float64(m.sampleRate))
	samples := make([]int16, 0, m.sampleRate*5)
	heard := false
	silent := 0

	for len(samples) < maxSamples {
		if ctx.Err() != nil {
			if heard {
				break
			}
			return nil, ctx.Err()
		}

		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		quiet := isSilent(m.buffer, m.silenceThreshold)
		if !heard {
			if quiet {
				continue
			}
			heard = true
		}

		samples = append(samples, m.buffer...)

		if quiet {
			silent += len(m.buffer)
		} else {
			silent = 0
		}
		if silent > m.sampleRate {
			break
		}
	}

	m.logger.Debug("captured utterance", "samples", len(samples))
	return EncodeWAV(samples, m.sampleRate), nil
}
