package speech_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"speak-translate/internal/domain"
	"speak-translate/internal/infra/speech"
)

type mockSynth struct {
	mu       sync.Mutex
	voices   []domain.Voice
	settings []domain.VoiceSettings
}

func (m *mockSynth) Name() string { return "mock" }

func (m *mockSynth) Voices(_ context.Context) ([]domain.Voice, error) {
	return m.voices, nil
}

func (m *mockSynth) Synthesize(_ context.Context, text string, settings domain.VoiceSettings) (*domain.AudioClip, error) {
	m.mu.Lock()
	m.settings = append(m.settings, settings)
	m.mu.Unlock()
	return &domain.AudioClip{
		Encoding: domain.EncodingPCM16,
		Body:     io.NopCloser(bytes.NewReader([]byte(text))),
	}, nil
}

func (m *mockSynth) lastSettings() domain.VoiceSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[len(m.settings)-1]
}

type playEvent struct {
	text string
	kind string // "start", "cancelled", "finished"
}

// blockingPlayer plays until the utterance is cancelled or finish is closed.
type blockingPlayer struct {
	mu      sync.Mutex
	events  chan playEvent
	active  int
	overlap bool
	finish  chan struct{}
	closed  bool
}

func newBlockingPlayer() *blockingPlayer {
	return &blockingPlayer{events: make(chan playEvent, 16), finish: make(chan struct{})}
}

func (p *blockingPlayer) Name() string { return "blocking" }

func (p *blockingPlayer) Play(ctx context.Context, clip *domain.AudioClip) error {
	defer clip.Body.Close()
	data, _ := io.ReadAll(clip.Body)
	text := string(data)

	p.mu.Lock()
	p.active++
	if p.active > 1 {
		p.overlap = true
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	p.events <- playEvent{text: text, kind: "start"}
	select {
	case <-ctx.Done():
		p.events <- playEvent{text: text, kind: "cancelled"}
		return ctx.Err()
	case <-p.finish:
		p.events <- playEvent{text: text, kind: "finished"}
		return nil
	}
}

func (p *blockingPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *blockingPlayer) next(t *testing.T) playEvent {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for player")
		return playEvent{}
	}
}

func newEngine(synth *mockSynth, player *blockingPlayer, cfg speech.Config) *speech.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return speech.NewEngine(synth, player, cfg, logger)
}

func TestEngine_SpeakFlushesCurrentUtterance(t *testing.T) {
	player := newBlockingPlayer()
	engine := newEngine(&mockSynth{}, player, speech.Config{})
	engine.Init(context.Background())
	defer engine.Shutdown()

	ctx := context.Background()

	if err := engine.Speak(ctx, "one"); err != nil {
		t.Fatalf("speak one: %v", err)
	}
	if ev := player.next(t); ev != (playEvent{"one", "start"}) {
		t.Fatalf("got %+v, want one start", ev)
	}

	if err := engine.Speak(ctx, "two"); err != nil {
		t.Fatalf("speak two: %v", err)
	}

	if ev := player.next(t); ev != (playEvent{"one", "cancelled"}) {
		t.Fatalf("got %+v, want one cancelled", ev)
	}
	if ev := player.next(t); ev != (playEvent{"two", "start"}) {
		t.Fatalf("got %+v, want two start", ev)
	}

	close(player.finish)
	if ev := player.next(t); ev != (playEvent{"two", "finished"}) {
		t.Fatalf("got %+v, want two finished", ev)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if player.overlap {
		t.Error("utterances overlapped")
	}
}

func TestEngine_SelectsVoiceByLocale(t *testing.T) {
	synth := &mockSynth{voices: []domain.Voice{
		{Name: "en-us", Locale: "en-US"},
		{Name: "fr-fr", Locale: "fr-FR"},
	}}
	player := newBlockingPlayer()
	close(player.finish)

	engine := newEngine(synth, player, speech.Config{
		Language:    "en-US",
		VoiceLocale: "fr",
		Voice:       "default",
		Pitch:       1.2,
		Rate:        0.8,
	})
	engine.Init(context.Background())
	defer engine.Shutdown()

	if err := engine.Speak(context.Background(), "bonjour"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	player.next(t)

	got := synth.lastSettings()
	if got.Voice != "fr-fr" {
		t.Errorf("voice: got %s, want fr-fr", got.Voice)
	}
	if got.Pitch != 1.2 || got.Rate != 0.8 {
		t.Errorf("pitch/rate: got %v/%v", got.Pitch, got.Rate)
	}
}

func TestEngine_KeepsDefaultVoiceWithoutMatch(t *testing.T) {
	synth := &mockSynth{voices: []domain.Voice{{Name: "alloy"}}}
	player := newBlockingPlayer()
	close(player.finish)

	engine := newEngine(synth, player, speech.Config{VoiceLocale: "fr", Voice: "alloy"})
	engine.Init(context.Background())
	defer engine.Shutdown()

	engine.Speak(context.Background(), "bonjour")
	player.next(t)

	if got := synth.lastSettings().Voice; got != "alloy" {
		t.Errorf("voice: got %s, want alloy", got)
	}
}

func TestEngine_StopAndShutdown(t *testing.T) {
	player := newBlockingPlayer()
	engine := newEngine(&mockSynth{}, player, speech.Config{})
	engine.Init(context.Background())

	engine.Speak(context.Background(), "long sentence")
	player.next(t)

	if !engine.IsSpeaking() {
		t.Error("engine should be speaking")
	}

	if err := engine.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ev := player.next(t); ev.kind != "cancelled" {
		t.Errorf("got %+v, want cancelled", ev)
	}
	if engine.IsSpeaking() {
		t.Error("engine should not be speaking after stop")
	}

	if err := engine.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := engine.Speak(context.Background(), "again"); !errors.Is(err, speech.ErrShutdown) {
		t.Errorf("speak after shutdown: got %v, want ErrShutdown", err)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if !player.closed {
		t.Error("player was not closed")
	}
}

func TestEngine_Greeting(t *testing.T) {
	player := newBlockingPlayer()
	close(player.finish)

	engine := newEngine(&mockSynth{}, player, speech.Config{Greeting: "Hello, how are you?"})
	engine.Init(context.Background())
	defer engine.Shutdown()

	if ev := player.next(t); ev.text != "Hello, how are you?" {
		t.Errorf("greeting: got %+v", ev)
	}
}
