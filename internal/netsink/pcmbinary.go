package netsink

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Hybrid binary PCM framing, ported from the teacher's pcm_binary.go: a
// full metadata header on the first packet or whenever the sample rate
// changes, and a minimal timestamp-only header otherwise, optionally
// zstd-compressed end to end.
//
// Full header (24 bytes):
//
//	0  2  uint16  magic 0x5043 ("PC")
//	2  1  uint8   version
//	3  1  uint8   format: 0=PCM, 1=PCM-zstd
//	4  8  uint64  sample index (monotonic)
//	12 8  uint64  wall-clock time, ms
//	20 4  uint32  sample rate, Hz
//	24 N  []byte  PCM data (little-endian int16)
//
// Minimal header (11 bytes):
//
//	0  2  uint16  magic 0x504D ("PM")
//	2  1  uint8   version
//	3  8  uint64  sample index
//	11 N  []byte  PCM data
const (
	pcmMagicFull    uint16 = 0x5043
	pcmMagicMinimal uint16 = 0x504D
	pcmVersion      uint8  = 1

	pcmFormatUncompressed uint8 = 0
	pcmFormatZstd         uint8 = 1

	pcmFullHeaderSize    = 24
	pcmMinimalHeaderSize = 11
)

// PCMEncoder encodes mix-bus output into the hybrid binary PCM framing.
type PCMEncoder struct {
	useCompression bool
	encoderMu      sync.Mutex
	zstdEncoder    *zstd.Encoder

	lastSampleRate int
	sampleIndex    uint64
}

// NewPCMEncoder builds an encoder for the given sample rate.
func NewPCMEncoder(sampleRate int, useCompression bool) *PCMEncoder {
	e := &PCMEncoder{useCompression: useCompression, lastSampleRate: -1}
	if useCompression {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		e.zstdEncoder = enc
	}
	return e
}

// EncodeBlock converts a block of float32 samples in [-1, 1] to the
// wire framing and advances the encoder's running sample index.
func (e *PCMEncoder) EncodeBlock(samples []float32, sampleRate int) []byte {
	e.encoderMu.Lock()
	defer e.encoderMu.Unlock()

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clampToInt16(s))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	needFull := e.lastSampleRate != sampleRate
	var packet []byte
	if needFull {
		packet = e.buildFullHeader(pcm, sampleRate)
		e.lastSampleRate = sampleRate
	} else {
		packet = e.buildMinimalHeader(pcm)
	}
	e.sampleIndex += uint64(len(samples))

	if e.useCompression && e.zstdEncoder != nil {
		return e.zstdEncoder.EncodeAll(packet, make([]byte, 0, len(packet)))
	}
	return packet
}

func (e *PCMEncoder) buildFullHeader(pcm []byte, sampleRate int) []byte {
	packet := make([]byte, pcmFullHeaderSize+len(pcm))
	binary.LittleEndian.PutUint16(packet[0:], pcmMagicFull)
	packet[2] = pcmVersion
	if e.useCompression {
		packet[3] = pcmFormatZstd
	} else {
		packet[3] = pcmFormatUncompressed
	}
	binary.LittleEndian.PutUint64(packet[4:], e.sampleIndex)
	binary.LittleEndian.PutUint64(packet[12:], uint64(time.Now().UnixMilli()))
	binary.LittleEndian.PutUint32(packet[20:], uint32(sampleRate))
	copy(packet[pcmFullHeaderSize:], pcm)
	return packet
}

func (e *PCMEncoder) buildMinimalHeader(pcm []byte) []byte {
	packet := make([]byte, pcmMinimalHeaderSize+len(pcm))
	binary.LittleEndian.PutUint16(packet[0:], pcmMagicMinimal)
	packet[2] = pcmVersion
	binary.LittleEndian.PutUint64(packet[3:], e.sampleIndex)
	copy(packet[pcmMinimalHeaderSize:], pcm)
	return packet
}

// Close releases the encoder's compression resources.
func (e *PCMEncoder) Close() {
	if e.zstdEncoder != nil {
		e.zstdEncoder.Close()
	}
}

func clampToInt16(s float32) int32 {
	v := s
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int32(v * 32767)
}
