package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000.0

// processInBlocks feeds buf to tr in blocks of at most
// maxHostBlockSamples, the largest block Track.Process accepts.
func processInBlocks(tr *Track, buf []float32) {
	for off := 0; off < len(buf); off += maxHostBlockSamples {
		end := off + maxHostBlockSamples
		if end > len(buf) {
			end = len(buf)
		}
		tr.Process(buf[off:end])
	}
}

func TestNewTrackDefaults(t *testing.T) {
	tr, err := New(0, testSampleRate, 42)
	require.NoError(t, err)
	require.False(t, tr.Playing())
	require.False(t, tr.Muted())
	require.Equal(t, 1.0, tr.GainLinear())
}

func TestSilentWhenStoppedOrMuted(t *testing.T) {
	tr, err := New(0, testSampleRate, 42)
	require.NoError(t, err)

	out := make([]float32, 512)
	processInBlocks(tr, out)
	for _, v := range out {
		require.Equal(t, float32(0), v)
	}

	tr.Start()
	// Run past the 10ms ramp-in, so the mute below ramps down from full
	// gain.
	warm := make([]float32, int(testSampleRate*0.05))
	processInBlocks(tr, warm)

	tr.SetMuted(true)
	muted := make([]float32, int(testSampleRate*0.05))
	processInBlocks(tr, muted)
	// After the mute ramp completes the tail should be silent.
	tailStart := len(muted) - 128
	for _, v := range muted[tailStart:] {
		require.InDelta(t, 0, v, 1e-6)
	}
}

func TestStartRampsUpFromZero(t *testing.T) {
	tr, err := New(0, testSampleRate, 7)
	require.NoError(t, err)
	tr.Start()

	out := make([]float32, 8)
	tr.Process(out)
	require.Equal(t, float32(0), out[0])
}

func TestSetGainClampsRange(t *testing.T) {
	tr, err := New(0, testSampleRate, 1)
	require.NoError(t, err)

	tr.SetGain(5)
	require.Equal(t, 1.0, tr.GainLinear())

	tr.SetGain(-3)
	require.Equal(t, 0.0, tr.GainLinear())
}

func TestStopIsIdempotent(t *testing.T) {
	tr, err := New(0, testSampleRate, 1)
	require.NoError(t, err)
	tr.Stop()
	tr.Stop()
	require.False(t, tr.Playing())
}

func TestEventsAreNonBlocking(t *testing.T) {
	tr, err := New(0, testSampleRate, 1)
	require.NoError(t, err)
	// Fill the event channel well past capacity; none of these calls
	// should block the test.
	for i := 0; i < 100; i++ {
		tr.SetGain(float64(i%2))
	}
}

func TestAddFilterPublishesMaskToProcessor(t *testing.T) {
	tr, err := New(0, testSampleRate, 1)
	require.NoError(t, err)
	tr.AddFilter(2, nil) // Parabolic, default config
	require.Equal(t, 1, tr.Chain().Len())
}
