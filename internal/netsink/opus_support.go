//go:build opus

package netsink

import (
	"log"

	opus "gopkg.in/hraban/opus.v2"
)

// OpusEncoder wraps libopus, matching the teacher's build-tag-gated
// opus_support.go/opus_stub.go split.
type OpusEncoder struct {
	encoder *opus.Encoder
	enabled bool
}

// NewOpusEncoder builds an encoder at the given sample rate and bitrate.
// If construction fails, it logs a warning and returns a disabled
// encoder so callers can fall back to raw PCM without special-casing.
func NewOpusEncoder(sampleRate, bitrate int) *OpusEncoder {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.Application(2049)) // OPUS_APPLICATION_AUDIO
	if err != nil {
		log.Printf("netsink: opus encoder init failed: %v, falling back to PCM", err)
		return &OpusEncoder{enabled: false}
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		log.Printf("netsink: opus SetBitrate: %v", err)
	}
	return &OpusEncoder{encoder: enc, enabled: true}
}

// Encode encodes a frame of PCM samples to Opus. len(pcm) must match
// one of libopus's supported frame durations for the configured sample
// rate (e.g. 960 samples at 48kHz for 20ms).
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	out := make([]byte, 4000)
	n, err := e.encoder.Encode(pcm, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// IsEnabled reports whether Opus encoding is available and active.
func (e *OpusEncoder) IsEnabled() bool { return e.enabled }
