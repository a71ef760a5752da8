package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
	"speak-translate/internal/infra/audio"
)

var (
	ErrBusy    = application.ErrRecognizerBusy
	ErrNoMatch = errors.New("no recognition result matched")
	ErrClosed  = errors.New("recognizer closed")
)

// Session is a speech recognizer built from an audio source and a
// speech-to-text backend. Each listening cycle captures one clip and ends
// with either final results or an error event.
type Session struct {
	source application.AudioSource
	stt    application.SpeechToText
	logger *slog.Logger

	events chan domain.RecognitionEvent
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	cancel    context.CancelFunc
	cycle     int
	opened    bool
	closed    bool
	closeOnce sync.Once
}

var _ application.Recognizer = (*Session)(nil)

func NewSession(source application.AudioSource, stt application.SpeechToText, logger *slog.Logger) *Session {
	return &Session{
		source: source,
		stt:    stt,
		logger: logger,
		events: make(chan domain.RecognitionEvent, 16),
		done:   make(chan struct{}),
	}
}

// Open acquires the audio source.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.source.Start(ctx); err != nil {
		return fmt.Errorf("starting %s audio source: %w", s.source.Name(), err)
	}
	s.opened = true
	s.logger.Info("audio source started", "source", s.source.Name())
	return nil
}

func (s *Session) Events() <-chan domain.RecognitionEvent {
	return s.events
}

func (s *Session) StartListening(ctx context.Context, cfg domain.RecognitionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrClosed
	case !s.opened:
		return fmt.Errorf("audio source not started")
	case s.cancel != nil:
		return ErrBusy
	}

	captureCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.cycle++

	s.wg.Add(1)
	go s.listen(ctx, captureCtx, s.cycle, cfg)
	return nil
}

// StopListening stops waiting for audio. A clip already captured is still
// transcribed and reported.
func (s *Session) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		opened := s.opened
		s.mu.Unlock()

		close(s.done)
		s.wg.Wait()
		close(s.events)

		if opened {
			err = s.source.Stop()
		}
	})
	return err
}

func (s *Session) listen(ctx, captureCtx context.Context, cycle int, cfg domain.RecognitionConfig) {
	defer s.wg.Done()
	defer s.finish(cycle)

	s.emit(domain.RecognitionEvent{Kind: domain.EventReady})

	clip, err := s.source.NextClip(captureCtx)
	if err != nil {
		if captureCtx.Err() != nil {
			s.logger.Debug("listening stopped before any audio")
			return
		}
		s.emit(domain.RecognitionEvent{Kind: domain.EventError, Err: err})
		return
	}

	if text, ok := domain.TextFromClip(clip); ok {
		s.emit(domain.RecognitionEvent{Kind: domain.EventSpeechBegin})
		s.emit(domain.RecognitionEvent{Kind: domain.EventSpeechEnd})
		s.emit(domain.RecognitionEvent{
			Kind:       domain.EventFinalResults,
			Hypotheses: []domain.Hypothesis{{Transcript: text, Confidence: 1}},
		})
		return
	}

	s.emit(domain.RecognitionEvent{Kind: domain.EventSpeechBegin})
	if samples, _, err := audio.DecodeWAV(clip); err == nil {
		s.emit(domain.RecognitionEvent{Kind: domain.EventVolumeChange, RMSdB: audio.RMSdB(samples)})
	}
	s.emit(domain.RecognitionEvent{Kind: domain.EventBuffer, Buffer: clip})
	s.emit(domain.RecognitionEvent{Kind: domain.EventSpeechEnd})

	hyps, err := s.stt.Transcribe(ctx, clip, cfg)
	if err != nil {
		s.emit(domain.RecognitionEvent{Kind: domain.EventError, Err: fmt.Errorf("transcribing: %w", err)})
		return
	}
	if _, ok := domain.TopHypothesis(hyps); !ok {
		s.emit(domain.RecognitionEvent{Kind: domain.EventError, Err: ErrNoMatch})
		return
	}

	s.emit(domain.RecognitionEvent{Kind: domain.EventFinalResults, Hypotheses: hyps})
}

// finish releases the cycle's capture context unless a newer cycle owns it.
func (s *Session) finish(cycle int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cycle == cycle && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) emit(ev domain.RecognitionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
