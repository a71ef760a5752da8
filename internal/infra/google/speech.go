package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
)

// SpeechClient recognizes clips with Google Cloud Speech-to-Text using
// application default credentials.
type SpeechClient struct {
	client     *speech.Client
	encoding   speechpb.RecognitionConfig_AudioEncoding
	sampleRate int
}

var _ application.SpeechToText = (*SpeechClient)(nil)

func NewSpeechClient(ctx context.Context, encoding string, sampleRate int) (*SpeechClient, error) {
	enc, err := audioEncoding(encoding)
	if err != nil {
		return nil, err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}

	return &SpeechClient{
		client:     client,
		encoding:   enc,
		sampleRate: sampleRate,
	}, nil
}

func (c *SpeechClient) Close() error {
	return c.client.Close()
}

func (c *SpeechClient) Transcribe(ctx context.Context, audio []byte, cfg domain.RecognitionConfig) ([]domain.Hypothesis, error) {
	resp, err := c.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(c.encoding, c.sampleRate, cfg),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recognizing: %w", err)
	}

	return hypotheses(resp.GetResults()), nil
}

func recognitionConfig(enc speechpb.RecognitionConfig_AudioEncoding, sampleRate int, cfg domain.RecognitionConfig) *speechpb.RecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		Encoding:        enc,
		LanguageCode:    cfg.Language,
		MaxAlternatives: int32(cfg.MaxAlternatives),
	}
	// WAV headers carry their own rate.
	if sampleRate > 0 {
		rc.SampleRateHertz = int32(sampleRate)
	}
	if cfg.Model != "" && cfg.Model != domain.LanguageModelFreeForm {
		rc.Model = cfg.Model
	}
	return rc
}

// hypotheses flattens a response into a ranked list. A single result keeps
// all of its alternatives; consecutive results are stitched from their best
// alternative.
func hypotheses(results []*speechpb.SpeechRecognitionResult) []domain.Hypothesis {
	switch len(results) {
	case 0:
		return nil
	case 1:
		alts := results[0].GetAlternatives()
		out := make([]domain.Hypothesis, 0, len(alts))
		for _, alt := range alts {
			out = append(out, domain.Hypothesis{
				Transcript: strings.TrimSpace(alt.GetTranscript()),
				Confidence: float64(alt.GetConfidence()),
			})
		}
		return out
	}

	var parts []string
	var confidence float64
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		confidence += float64(alts[0].GetConfidence())
	}
	if len(parts) == 0 {
		return nil
	}
	return []domain.Hypothesis{{
		Transcript: strings.Join(parts, " "),
		Confidence: confidence / float64(len(parts)),
	}}
}

func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
