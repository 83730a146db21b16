package mixer

import (
	"errors"
	"testing"

	"github.com/shapedsignal/noiseforge/internal/errs"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000.0

func TestAddReturnsAscendingIDs(t *testing.T) {
	m := New(testSampleRate)
	id0, err := m.Add()
	require.NoError(t, err)
	id1, err := m.Add()
	require.NoError(t, err)
	require.Equal(t, 0, id0)
	require.Equal(t, 1, id1)
}

func TestRemoveBadIndex(t *testing.T) {
	m := New(testSampleRate)
	err := m.Remove(99)
	require.True(t, errors.Is(err, errs.ErrBadIndex))
}

func TestTrackBadIndex(t *testing.T) {
	m := New(testSampleRate)
	_, err := m.Track(3)
	require.True(t, errors.Is(err, errs.ErrBadIndex))
}

func TestSoftJoinStartsNewTrackWhenPlaying(t *testing.T) {
	m := New(testSampleRate)
	m.StartAll()

	id, err := m.Add()
	require.NoError(t, err)
	tr, err := m.Track(id)
	require.NoError(t, err)
	require.True(t, tr.Playing())
}

func TestNewTrackNotStartedWhenBusStopped(t *testing.T) {
	m := New(testSampleRate)
	id, err := m.Add()
	require.NoError(t, err)
	tr, err := m.Track(id)
	require.NoError(t, err)
	require.False(t, tr.Playing())
}

func TestProcessSumsAllTracks(t *testing.T) {
	m := New(testSampleRate)
	_, _ = m.Add()
	_, _ = m.Add()
	m.StartAll()

	out := make([]float32, maxHostBlockSamples)
	// Run several blocks to move past the STFT's internal warm-up.
	for i := 0; i < 64; i++ {
		m.Process(out)
	}
	// With two unmuted playing tracks summed, output shouldn't be
	// identically zero once ramps and STFT latency have settled.
	nonZero := false
	for _, v := range out {
		if v != 0 {
			nonZero = true
			break
		}
	}
	require.True(t, nonZero)
}

func TestAnalyzerTapSeesPreGainMix(t *testing.T) {
	m := New(testSampleRate)
	_, _ = m.Add()
	m.StartAll()
	m.SetMasterGain(0)

	var tapped []float32
	m.SetAnalyzerTap(func(mix []float32) {
		tapped = append(tapped, mix...)
	})

	out := make([]float32, maxHostBlockSamples)
	for i := 0; i < 64; i++ {
		m.Process(out)
	}

	for _, v := range out {
		require.Equal(t, float32(0), v)
	}
	require.NotEmpty(t, tapped)
}

func TestSetMasterGainClamps(t *testing.T) {
	m := New(testSampleRate)
	m.SetMasterGain(-1)
	require.Equal(t, 0.0, m.MasterGain())
	m.SetMasterGain(10)
	require.Equal(t, 2.0, m.MasterGain())
}
