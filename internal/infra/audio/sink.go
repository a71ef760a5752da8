package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"speak-translate/internal/domain"
)

// FileSink writes every spoken utterance to dir as a WAV file. A cancelled
// utterance leaves no file behind.
type FileSink struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
	seq    int
}

func NewFileSink(dir string, logger *slog.Logger) *FileSink {
	return &FileSink{dir: dir, logger: logger}
}

func (f *FileSink) Name() string {
	return "file"
}

func (f *FileSink) Play(ctx context.Context, clip *domain.AudioClip) error {
	defer clip.Body.Close()

	reader, sampleRate, channels, err := pcmReader(clip)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	f.mu.Lock()
	f.seq++
	name := fmt.Sprintf("%s-%03d.wav", time.Now().Format("20060102-150405"), f.seq)
	f.mu.Unlock()

	path := filepath.Join(f.dir, name)
	tmp := path + ".part"

	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	pcm, err := readAllContext(ctx, reader)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}

	writeWAVHeader(out, len(pcm), sampleRate, channels)
	if _, err := out.Write(pcm); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}

	f.logger.Info("wrote utterance", "path", path, "bytes", len(pcm))
	return nil
}

func (f *FileSink) Close() error {
	return nil
}

func readAllContext(ctx context.Context, r io.Reader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading audio: %w", err)
		}
	}
}
