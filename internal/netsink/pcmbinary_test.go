package netsink

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeBlockFirstPacketUsesFullHeader(t *testing.T) {
	enc := NewPCMEncoder(48000, false)
	packet := enc.EncodeBlock([]float32{0.5, -0.5}, 48000)

	require.Equal(t, pcmMagicFull, binary.LittleEndian.Uint16(packet[0:]))
	require.Equal(t, pcmFullHeaderSize+4, len(packet))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(packet[20:]))
}

func TestEncodeBlockSubsequentPacketUsesMinimalHeader(t *testing.T) {
	enc := NewPCMEncoder(48000, false)
	enc.EncodeBlock([]float32{0.1}, 48000)
	packet := enc.EncodeBlock([]float32{0.1, 0.2}, 48000)

	require.Equal(t, pcmMagicMinimal, binary.LittleEndian.Uint16(packet[0:]))
	require.Equal(t, pcmMinimalHeaderSize+4, len(packet))
}

func TestEncodeBlockSampleRateChangeForcesFullHeader(t *testing.T) {
	enc := NewPCMEncoder(48000, false)
	enc.EncodeBlock([]float32{0.1}, 48000)
	packet := enc.EncodeBlock([]float32{0.1}, 44100)

	require.Equal(t, pcmMagicFull, binary.LittleEndian.Uint16(packet[0:]))
}

func TestEncodeBlockAdvancesSampleIndex(t *testing.T) {
	enc := NewPCMEncoder(48000, false)
	p1 := enc.EncodeBlock([]float32{0, 0, 0}, 48000)
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(p1[4:]))

	p2 := enc.EncodeBlock([]float32{0}, 48000)
	require.Equal(t, uint64(3), binary.LittleEndian.Uint64(p2[3:]))
}

func TestEncodeBlockCompressedProducesValidZstdStream(t *testing.T) {
	enc := NewPCMEncoder(48000, true)
	defer enc.Close()
	packet := enc.EncodeBlock(make([]float32, 256), 48000)
	require.NotEmpty(t, packet)
	// zstd frames begin with the magic number 0x28, 0xB5, 0x2F, 0xFD (LE).
	require.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, packet[:4])
}

func TestClampToInt16SaturatesOutOfRangeInput(t *testing.T) {
	require.Equal(t, int32(32767), clampToInt16(2.0))
	require.Equal(t, int32(-32767), clampToInt16(-2.0))
}
