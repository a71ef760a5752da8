package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"speak-translate/internal/domain"
)

// pcmReader exposes clip as raw little-endian 16-bit PCM.
func pcmReader(clip *domain.AudioClip) (io.Reader, int, int, error) {
	switch clip.Encoding {
	case domain.EncodingPCM16:
		channels := clip.Channels
		if channels == 0 {
			channels = 1
		}
		return clip.Body, clip.SampleRate, channels, nil

	case domain.EncodingWAV:
		data, err := io.ReadAll(clip.Body)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("reading wav: %w", err)
		}
		samples, rate, err := DecodeWAV(data)
		if err != nil {
			return nil, 0, 0, err
		}
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, samples)
		return &buf, rate, 1, nil

	default:
		return nil, 0, 0, fmt.Errorf("unsupported audio encoding: %s", clip.Encoding)
	}
}
