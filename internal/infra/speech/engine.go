package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
)

var ErrShutdown = errors.New("speech output shut down")

type Synthesizer interface {
	Name() string
	Voices(ctx context.Context) ([]domain.Voice, error)
	Synthesize(ctx context.Context, text string, settings domain.VoiceSettings) (*domain.AudioClip, error)
}

type Player interface {
	Name() string
	Play(ctx context.Context, clip *domain.AudioClip) error
	Close() error
}

type Config struct {
	Language    string
	VoiceLocale string
	Voice       string
	Pitch       float64
	Rate        float64
	Greeting    string
}

type utterance struct {
	text   string
	cancel context.CancelFunc
	done   chan struct{}
	prev   *utterance
}

// Engine speaks one utterance at a time. Speak flushes: the utterance in
// progress is cancelled and the new one starts once it has let go of the
// player.
type Engine struct {
	synth  Synthesizer
	player Player
	logger *slog.Logger
	cfg    Config

	ready    chan struct{}
	initOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	settings domain.VoiceSettings
	current  *utterance
	last     *utterance
	shutdown bool
}

var _ application.SpeechOutput = (*Engine)(nil)

func NewEngine(synth Synthesizer, player Player, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		synth:  synth,
		player: player,
		logger: logger,
		cfg:    cfg,
		ready:  make(chan struct{}),
		settings: domain.VoiceSettings{
			Language: cfg.Language,
			Voice:    cfg.Voice,
			Pitch:    cfg.Pitch,
			Rate:     cfg.Rate,
		},
	}
}

// Init selects a voice in the background. Utterances requested before it
// finishes wait for it.
func (e *Engine) Init(ctx context.Context) {
	e.initOnce.Do(func() {
		go e.init(ctx)
	})
}

func (e *Engine) init(ctx context.Context) {
	defer close(e.ready)

	voices, err := e.synth.Voices(ctx)
	if err != nil {
		e.logger.Error("listing voices", "synthesizer", e.synth.Name(), "error", err)
		return
	}

	if e.cfg.Language != "" && !languageAvailable(voices, e.cfg.Language) {
		e.logger.Warn("language not available", "language", e.cfg.Language)
	}

	if voice, ok := domain.SelectVoice(voices, e.cfg.VoiceLocale); ok {
		e.mu.Lock()
		e.settings.Voice = voice.Name
		e.mu.Unlock()
		e.logger.Info("voice selected", "voice", voice.Name, "locale", voice.Locale)
	} else if e.cfg.VoiceLocale != "" {
		e.logger.Info("no voice for locale, using default", "locale", e.cfg.VoiceLocale, "voice", e.cfg.Voice)
	}

	if e.cfg.Greeting != "" {
		go func() {
			<-e.ready
			if err := e.Speak(ctx, e.cfg.Greeting); err != nil {
				e.logger.Debug("greeting skipped", "error", err)
			}
		}()
	}
}

// languageAvailable is permissive when the synthesizer reports no locales.
func languageAvailable(voices []domain.Voice, language string) bool {
	anyLocale := false
	for _, v := range voices {
		if v.Locale != "" {
			anyLocale = true
			break
		}
	}
	if !anyLocale {
		return true
	}
	if _, ok := domain.SelectVoice(voices, language); ok {
		return true
	}
	base := language
	for i, r := range language {
		if r == '-' || r == '_' {
			base = language[:i]
			break
		}
	}
	_, ok := domain.SelectVoice(voices, base)
	return ok
}

func (e *Engine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return ErrShutdown
	}

	if e.current != nil {
		e.logger.Debug("flushing utterance", "text", e.current.text)
		e.current.cancel()
	}

	uctx, cancel := context.WithCancel(ctx)
	u := &utterance{
		text:   text,
		cancel: cancel,
		done:   make(chan struct{}),
		prev:   e.last,
	}
	e.current = u
	e.last = u
	e.wg.Add(1)
	e.mu.Unlock()

	go e.play(uctx, u)
	return nil
}

func (e *Engine) play(ctx context.Context, u *utterance) {
	defer e.wg.Done()
	defer close(u.done)
	defer e.release(u)

	select {
	case <-e.ready:
	case <-ctx.Done():
		return
	}

	e.mu.Lock()
	settings := e.settings
	e.mu.Unlock()

	clip, err := e.synth.Synthesize(ctx, u.text, settings)
	if err != nil {
		e.report(ctx, "synthesizing", err)
		return
	}

	if u.prev != nil {
		<-u.prev.done
		u.prev = nil
	}

	if err := e.player.Play(ctx, clip); err != nil {
		e.report(ctx, "playing", err)
		return
	}
	e.logger.Debug("utterance finished", "text", u.text)
}

func (e *Engine) report(ctx context.Context, stage string, err error) {
	if ctx.Err() != nil {
		e.logger.Debug("utterance cancelled", "stage", stage)
		return
	}
	e.logger.Error(fmt.Sprintf("%s utterance", stage), "synthesizer", e.synth.Name(), "player", e.player.Name(), "error", err)
}

// release keeps done ordered: an utterance is not done before the one it
// replaced, even when it never reached the player.
func (e *Engine) release(u *utterance) {
	u.cancel()
	if u.prev != nil {
		<-u.prev.done
		u.prev = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == u {
		e.current = nil
	}
	if e.last == u {
		e.last = nil
	}
}

func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Stop cancels the current utterance and waits for it to release the player.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cur := e.current
	e.current = nil
	e.mu.Unlock()

	if cur != nil {
		cur.cancel()
		<-cur.done
	}
	return nil
}

func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return nil
	}
	e.shutdown = true
	e.mu.Unlock()

	if err := e.Stop(); err != nil {
		return err
	}
	e.wg.Wait()

	if err := e.player.Close(); err != nil {
		return fmt.Errorf("closing %s player: %w", e.player.Name(), err)
	}
	return nil
}
