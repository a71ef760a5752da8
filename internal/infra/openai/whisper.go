package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
	"speak-translate/internal/infra"
)

const defaultBaseURL = "https://api.openai.com/v1"

// WhisperClient transcribes clips with the OpenAI transcription API. Whisper
// returns a single hypothesis per clip.
type WhisperClient struct {
	client *goopenai.Client
	model  string
	retry  infra.RetryConfig
}

var _ application.SpeechToText = (*WhisperClient)(nil)

func NewWhisperClient(apiKey, model string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, model, defaultBaseURL)
}

func NewWhisperClientWithURL(apiKey, model, baseURL string) *WhisperClient {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &WhisperClient{
		client: newClient(apiKey, baseURL),
		model:  model,
		retry:  infra.DefaultRetryConfig(),
	}
}

func newClient(apiKey, baseURL string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, cfg domain.RecognitionConfig) ([]domain.Hypothesis, error) {
	var resp goopenai.AudioResponse

	err := infra.WithRetry(ctx, c.retry, func() error {
		var err error
		resp, err = c.client.CreateTranscription(ctx, goopenai.AudioRequest{
			Model:    c.model,
			FilePath: "audio.wav",
			Reader:   bytes.NewReader(audio),
			Language: baseLanguage(cfg.Language),
			Format:   goopenai.AudioResponseFormatJSON,
		})
		return classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, nil
	}
	return []domain.Hypothesis{{Transcript: text}}, nil
}

// classify marks client errors as permanent so only server-side failures
// are retried.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && !infra.IsRetryableHTTPStatus(apiErr.HTTPStatusCode) {
		return infra.Permanent(err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 && !infra.IsRetryableHTTPStatus(reqErr.HTTPStatusCode) {
		return infra.Permanent(err)
	}

	return err
}

// baseLanguage reduces a locale such as "ar-AR" to the ISO-639-1 code the
// API expects.
func baseLanguage(locale string) string {
	locale = strings.ReplaceAll(locale, "_", "-")
	if i := strings.Index(locale, "-"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}
