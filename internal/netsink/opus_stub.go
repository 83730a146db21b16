//go:build !opus

package netsink

import "encoding/binary"

// OpusEncoder is the stub used when the binary is built without the
// `opus` tag: it reports disabled and Encode falls back to raw
// little-endian PCM bytes, matching the teacher's opus_stub.go.
type OpusEncoder struct{}

// NewOpusEncoder returns a disabled stub encoder.
func NewOpusEncoder(sampleRate, bitrate int) *OpusEncoder {
	return &OpusEncoder{}
}

// Encode returns pcm re-packed as little-endian bytes; format negotiation
// is the caller's responsibility (IsEnabled reports false).
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	out := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out, nil
}

// IsEnabled always returns false in the stub build.
func (e *OpusEncoder) IsEnabled() bool { return false }
