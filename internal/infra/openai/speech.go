package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"speak-translate/internal/domain"
)

// PCM output of the speech endpoint is 24kHz signed 16-bit mono.
const speechSampleRate = 24000

var voices = []goopenai.SpeechVoice{
	goopenai.VoiceAlloy,
	goopenai.VoiceEcho,
	goopenai.VoiceFable,
	goopenai.VoiceOnyx,
	goopenai.VoiceNova,
	goopenai.VoiceShimmer,
}

type SpeechClient struct {
	client *goopenai.Client
	model  goopenai.SpeechModel
}

func NewSpeechClient(apiKey, model string) *SpeechClient {
	return NewSpeechClientWithURL(apiKey, model, defaultBaseURL)
}

func NewSpeechClientWithURL(apiKey, model, baseURL string) *SpeechClient {
	if model == "" {
		model = string(goopenai.TTSModel1)
	}
	return &SpeechClient{
		client: newClient(apiKey, baseURL),
		model:  goopenai.SpeechModel(model),
	}
}

func (c *SpeechClient) Name() string {
	return "openai"
}

// Voices lists the built-in voices. They are multilingual, so none carries
// a locale.
func (c *SpeechClient) Voices(_ context.Context) ([]domain.Voice, error) {
	out := make([]domain.Voice, 0, len(voices))
	for _, v := range voices {
		out = append(out, domain.Voice{Name: string(v)})
	}
	return out, nil
}

// Synthesize streams PCM audio. Pitch is not supported by the API and is
// ignored; Rate maps to speed.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, settings domain.VoiceSettings) (*domain.AudioClip, error) {
	voice := goopenai.SpeechVoice(settings.Voice)
	if voice == "" {
		voice = goopenai.VoiceAlloy
	}

	speed := settings.Rate
	if speed < 0.25 {
		speed = 0.25
	}
	if speed > 4.0 {
		speed = 4.0
	}

	resp, err := c.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: goopenai.SpeechResponseFormatPcm,
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("creating speech: %w", err)
	}

	return &domain.AudioClip{
		Encoding:   domain.EncodingPCM16,
		SampleRate: speechSampleRate,
		Channels:   1,
		Body:       resp.ReadCloser,
	}, nil
}
