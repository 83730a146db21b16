// Package serialize writes rendered mono float buffers to disk as either
// a standard 44-byte-header WAV file or a C source header suitable for
// embedding in firmware, per spec.md §4.11.
package serialize

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WAV header layout (44-byte canonical RIFF/WAVE PCM header):
//
// Offset | Size | Field
// -------|------|------------------------------------------
// 0      | 4    | "RIFF"
// 4      | 4    | chunk size = 36 + data size
// 8      | 4    | "WAVE"
// 12     | 4    | "fmt "
// 16     | 4    | subchunk1 size = 16
// 20     | 2    | audio format = 1 (PCM)
// 22     | 2    | num channels = 1
// 24     | 4    | sample rate
// 28     | 4    | byte rate = sampleRate * blockAlign
// 32     | 2    | block align = numChannels * bitsPerSample/8
// 34     | 2    | bits per sample = 16
// 36     | 4    | "data"
// 40     | 4    | data size = numSamples * 2
const (
	wavHeaderSize    = 44
	wavBitsPerSample = 16
	wavNumChannels   = 1
	wavAudioFormat   = 1
)

// ToInt16 clamps x to [-1, 1] and converts to a 16-bit PCM sample via
// round(x * 32767) (spec.md §4.11).
func ToInt16(x float32) int16 {
	f := float64(x)
	if f > 1 {
		f = 1
	}
	if f < -1 {
		f = -1
	}
	return int16(math.Round(f * 32767))
}

// WriteWAV writes samples as a mono 16-bit PCM WAV file at sampleRate.
func WriteWAV(w io.Writer, samples []float32, sampleRate uint32) error {
	dataSize := uint32(len(samples)) * 2
	byteRate := sampleRate * wavNumChannels * (wavBitsPerSample / 8)
	blockAlign := uint16(wavNumChannels * (wavBitsPerSample / 8))

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavAudioFormat)
	binary.LittleEndian.PutUint16(header[22:24], wavNumChannels)
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], wavBitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("serialize: writing WAV header: %w", err)
	}

	pcm := make([]byte, dataSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(ToInt16(s)))
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("serialize: writing PCM data: %w", err)
	}
	return nil
}
