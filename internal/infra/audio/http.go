package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"speak-translate/internal/domain"
)

const (
	maxClipBytes = 10 * 1024 * 1024
	maxTextBytes = 4096
)

// HTTPSource receives clips pushed by a remote client. Clips are only
// accepted while a capture session is waiting for one.
type HTTPSource struct {
	clips     chan []byte
	logger    *slog.Logger
	mux       *http.ServeMux
	waiting   atomic.Int32
	mu        sync.Mutex
	running   bool
	closeOnce sync.Once
}

func NewHTTPSource(logger *slog.Logger) *HTTPSource {
	h := &HTTPSource{
		clips:  make(chan []byte, 1),
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /audio", h.handleAudio)
	h.mux.HandleFunc("POST /text", h.handleText)
	return h
}

func (h *HTTPSource) Name() string {
	return "http"
}

func (h *HTTPSource) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
	return nil
}

func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}
	h.closeOnce.Do(func() {
		close(h.clips)
	})
	h.running = false
	return nil
}

func (h *HTTPSource) NextClip(ctx context.Context) ([]byte, error) {
	h.waiting.Add(1)
	defer h.waiting.Add(-1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case clip, ok := <-h.clips:
		if !ok {
			return nil, fmt.Errorf("audio source stopped")
		}
		return clip, nil
	}
}

// Handler serves POST /audio and POST /text.
func (h *HTTPSource) Handler() http.Handler {
	return h.mux
}

// Inject offers a clip to a waiting session and reports whether it was taken.
func (h *HTTPSource) Inject(data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running || h.waiting.Load() == 0 {
		return false
	}
	select {
	case h.clips <- data:
		return true
	default:
		return false
	}
}

func (h *HTTPSource) handleAudio(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxClipBytes))
	if err != nil {
		h.logger.Error("reading audio body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if len(data) == 0 {
		http.Error(w, "empty audio", http.StatusBadRequest)
		return
	}

	if !h.Inject(data) {
		http.Error(w, "not listening", http.StatusConflict)
		return
	}

	h.logger.Info("received audio via HTTP", "bytes", len(data))
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "received", "bytes": len(data)})
}

func (h *HTTPSource) handleText(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxTextBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}

	if !h.Inject(textClip(text)) {
		http.Error(w, "not listening", http.StatusConflict)
		return
	}

	h.logger.Info("received text via HTTP", "text", text)
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "received", "text": text})
}

func textClip(text string) []byte {
	return []byte(domain.TextClipPrefix + strings.TrimSpace(text))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
