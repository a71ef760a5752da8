package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var ErrNotWAV = errors.New("not a PCM WAV file")

// EncodeWAV wraps signed 16-bit mono samples in a WAV container.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer
	writeWAVHeader(&buf, len(samples)*2, sampleRate, 1)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

func writeWAVHeader(w io.Writer, dataSize, sampleRate, channels int) {
	blockAlign := channels * 2

	io.WriteString(w, "RIFF")
	binary.Write(w, binary.LittleEndian, int32(36+dataSize))
	io.WriteString(w, "WAVE")

	io.WriteString(w, "fmt ")
	binary.Write(w, binary.LittleEndian, int32(16))
	binary.Write(w, binary.LittleEndian, int16(1))
	binary.Write(w, binary.LittleEndian, int16(channels))
	binary.Write(w, binary.LittleEndian, int32(sampleRate))
	binary.Write(w, binary.LittleEndian, int32(sampleRate*blockAlign))
	binary.Write(w, binary.LittleEndian, int16(blockAlign))
	binary.Write(w, binary.LittleEndian, int16(16))

	io.WriteString(w, "data")
	binary.Write(w, binary.LittleEndian, int32(dataSize))
}

// DecodeWAV extracts 16-bit PCM samples from a canonical WAV file.
func DecodeWAV(data []byte) (samples []int16, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var bitsPerSample int
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, fmt.Errorf("%w: format %d", ErrNotWAV, format)
			}
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			if bitsPerSample != 16 {
				return nil, 0, fmt.Errorf("%w: %d bits per sample", ErrNotWAV, bitsPerSample)
			}
			samples = make([]int16, size/2)
			binary.Read(bytes.NewReader(data[body:body+size-size%2]), binary.LittleEndian, samples)
			return samples, sampleRate, nil
		}

		pos = body + size + size%2
	}

	return nil, 0, fmt.Errorf("%w: no data chunk", ErrNotWAV)
}

// RMSdB is the root mean square level of samples in dBFS.
func RMSdB(samples []int16) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

func isSilent(samples []int16, threshold int16) bool {
	for _, s := range samples {
		if s > threshold || s < -threshold {
			return false
		}
	}
	return true
}
