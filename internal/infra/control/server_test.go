package control_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
	"speak-translate/internal/infra/audio"
	"speak-translate/internal/infra/control"
	"speak-translate/internal/infra/recognition"
	"speak-translate/internal/infra/translation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockController struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	snapshot domain.Snapshot
}

func (m *mockController) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.snapshot.State = domain.StateListening.String()
	return nil
}

func (m *mockController) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.snapshot.State = domain.StateIdle.String()
	return nil
}

func (m *mockController) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func newTestServer(t *testing.T, ctrl control.Controller, opts control.Options) (*httptest.Server, *control.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := control.NewHub(discardLogger())
	go hub.Run(ctx)

	srv := control.NewServer(":0", ctrl, hub, opts, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func decodeSnapshot(t *testing.T, body io.Reader) domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	return snap
}

func TestServer_StartStop(t *testing.T) {
	ctrl := &mockController{snapshot: domain.Snapshot{State: "idle"}}
	ts, _ := newTestServer(t, ctrl, control.Options{})

	resp, err := http.Post(ts.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status: got %d", resp.StatusCode)
	}
	if snap := decodeSnapshot(t, resp.Body); snap.State != "listening" {
		t.Errorf("state after start: got %s", snap.State)
	}

	resp, err = http.Post(ts.URL+"/stop", "", nil)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	defer resp.Body.Close()
	if snap := decodeSnapshot(t, resp.Body); snap.State != "idle" {
		t.Errorf("state after stop: got %s", snap.State)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.starts != 1 || ctrl.stops != 1 {
		t.Errorf("presses: got %d starts, %d stops", ctrl.starts, ctrl.stops)
	}
}

func TestServer_StartWithoutCapture(t *testing.T) {
	ctrl := &mockController{startErr: application.ErrCaptureUnavailable}
	ts, _ := newTestServer(t, ctrl, control.Options{})

	resp, err := http.Post(ts.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestServer_StartWhileBusy(t *testing.T) {
	ctrl := &mockController{startErr: application.ErrRecognizerBusy}
	ts, _ := newTestServer(t, ctrl, control.Options{})

	resp, err := http.Post(ts.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status: got %d, want 409", resp.StatusCode)
	}
}

func TestServer_AuthToken(t *testing.T) {
	ctrl := &mockController{}
	ts, _ := newTestServer(t, ctrl, control.Options{AuthToken: "secret"})

	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without token: got %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	req.Header.Set("X-Auth-Token", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with header token: got %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/state?token=secret")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with query token: got %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: got %d, want 200", resp.StatusCode)
	}
}

func TestServer_RateLimit(t *testing.T) {
	ts, _ := newTestServer(t, &mockController{}, control.Options{RateLimit: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := http.Get(ts.URL + "/state")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes: got %v", codes)
	}
}

func TestHub_PushesSnapshots(t *testing.T) {
	ts, hub := newTestServer(t, &mockController{}, control.Options{})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap domain.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}
	if snap.State != "idle" {
		t.Errorf("initial state: got %s", snap.State)
	}

	hub.SetSourceText("hello")
	hub.SetTranslatedText("bonjour")

	for snap.TranslatedText != "bonjour" {
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("reading update: %v", err)
		}
	}
	if snap.SourceText != "hello" {
		t.Errorf("source text: got %q", snap.SourceText)
	}
}

type recordingOutput struct {
	spoken chan string
}

func (r *recordingOutput) Init(_ context.Context) {}

func (r *recordingOutput) Speak(_ context.Context, text string) error {
	r.spoken <- text
	return nil
}

func (r *recordingOutput) IsSpeaking() bool { return false }
func (r *recordingOutput) Stop() error      { return nil }
func (r *recordingOutput) Shutdown() error  { return nil }

func TestServer_TranslatesCapturedText(t *testing.T) {
	queries := make(chan string, 1)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query().Get("text")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"translatedText":"bonjour"}`)
	}))
	defer backend.Close()

	logger := discardLogger()
	source := audio.NewHTTPSource(logger)
	session := recognition.NewSession(source, &application.NoopSTT{}, logger)
	client := translation.NewClient(backend.URL, logger)
	output := &recordingOutput{spoken: make(chan string, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := control.NewHub(logger)
	go hub.Run(ctx)

	ctrl := application.NewController(session, client, output, hub, logger, application.ControllerOptions{})
	go ctrl.Run(ctx)

	srv := control.NewServer(":0", ctrl, hub, control.Options{Capture: source.Handler()}, logger)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status: got %d", resp.StatusCode)
	}

	// The session may not be waiting for a clip yet.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Post(ts.URL+"/capture/text", "text/plain", strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("capture: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusAccepted {
			break
		}
		if resp.StatusCode != http.StatusConflict || time.Now().After(deadline) {
			t.Fatalf("capture status: got %d", resp.StatusCode)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case spoken := <-output.spoken:
		if spoken != "bonjour" {
			t.Errorf("spoken: got %q, want bonjour", spoken)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("translation was not spoken")
	}

	if got := <-queries; got != "hello" {
		t.Errorf("query text: got %q, want hello", got)
	}

	resp, err = http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	defer resp.Body.Close()
	snap := decodeSnapshot(t, resp.Body)
	if snap.SourceText != "hello" || snap.TranslatedText != "bonjour" {
		t.Errorf("snapshot: got %+v", snap)
	}
}
