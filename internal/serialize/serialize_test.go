package serialize

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToInt16ClampsAndRounds(t *testing.T) {
	require.Equal(t, int16(32767), ToInt16(2.0))
	require.Equal(t, int16(-32767), ToInt16(-2.0))
	require.Equal(t, int16(0), ToInt16(0))
	require.Equal(t, int16(16384), ToInt16(0.5))
}

func TestWriteWAVHeaderFields(t *testing.T) {
	var buf bytes.Buffer
	samples := []float32{0, 0.5, -0.5, 1, -1}
	require.NoError(t, WriteWAV(&buf, samples, 48000))

	data := buf.Bytes()
	require.Equal(t, wavHeaderSize+len(samples)*2, len(data))
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "fmt ", string(data[12:16]))
	require.Equal(t, "data", string(data[36:40]))

	sr := binary.LittleEndian.Uint32(data[24:28])
	require.Equal(t, uint32(48000), sr)

	bits := binary.LittleEndian.Uint16(data[34:36])
	require.Equal(t, uint16(16), bits)

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	require.Equal(t, uint32(len(samples)*2), dataSize)

	chunkSize := binary.LittleEndian.Uint32(data[4:8])
	require.Equal(t, uint32(36+len(samples)*2), chunkSize)
}

func TestIncludeGuardSanitizesFilename(t *testing.T) {
	g := includeGuard("my-noise.export.h")
	require.Equal(t, "MY_NOISE_EXPORT_H_H", g)
}

func TestWriteCHeaderContainsExpectedMacrosAndArrays(t *testing.T) {
	var buf bytes.Buffer
	buffers := [][]int16{
		{1, 2, 3, 4, 5, 6, 7, 8, 9},
		{10, 20, 30, 40, 50, 60, 70, 80, 90},
	}
	cfg := CHeaderConfig{Filename: "noise_data.h", SampleRate: 48000, SilenceMS: 100}
	require.NoError(t, WriteCHeader(&buf, buffers, cfg))

	out := buf.String()
	require.Contains(t, out, "#define SAMPLE_RATE 48000")
	require.Contains(t, out, "#define NUM_BUFFERS 2")
	require.Contains(t, out, "#define MONO_SAMPLES 9")
	require.Contains(t, out, "#define STEREO_SAMPLES 18")
	require.Contains(t, out, "#define SILENCE_SAMPLES 4800")
	require.Contains(t, out, "buffer1[9]")
	require.Contains(t, out, "buffer2[9]")
	require.Contains(t, out, "silenceBuffer[9600]")
	require.Contains(t, out, "noiseBuffers[NUM_BUFFERS]")
	require.True(t, strings.HasPrefix(out, "#ifndef"))
	require.Contains(t, out, "#endif")
}

func TestWriteCHeaderRejectsMismatchedBufferLengths(t *testing.T) {
	var buf bytes.Buffer
	buffers := [][]int16{{1, 2}, {1, 2, 3}}
	err := WriteCHeader(&buf, buffers, CHeaderConfig{Filename: "x.h", SampleRate: 48000})
	require.Error(t, err)
}

func TestInt16RowsAreRightJustifiedToSixChars(t *testing.T) {
	var buf bytes.Buffer
	buffers := [][]int16{{1, -2, 100, -100, 12345, -12345, 0, 7, 8}}
	require.NoError(t, WriteCHeader(&buf, buffers, CHeaderConfig{Filename: "x.h", SampleRate: 1000}))
	out := buf.String()
	// Every formatted value is exactly 6 characters wide.
	require.Contains(t, out, "     1,")
	require.Contains(t, out, "    -2,")
	require.Contains(t, out, " 12345,")
	require.Contains(t, out, "-12345,")
}
