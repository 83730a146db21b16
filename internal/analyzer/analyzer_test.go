package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000.0

func feedTone(a *Analyzer, freq float64, n int) {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / testSampleRate))
	}
	a.Feed(buf)
}

func TestSetFrameSizeRejectsInvalidSize(t *testing.T) {
	a := New(testSampleRate)
	err := a.SetFrameSize(999)
	require.Error(t, err)
}

func TestSetFrameSizeAcceptsAllValidSizes(t *testing.T) {
	a := New(testSampleRate)
	for _, n := range ValidSizes {
		require.NoError(t, a.SetFrameSize(n))
	}
}

func TestGetDisplayDataReturnsRequestedWidth(t *testing.T) {
	a := New(testSampleRate)
	feedTone(a, 1000, 8192)
	data := a.GetDisplayData(128)
	require.Len(t, data, 128)
}

func TestGetDisplayDataNeverBelowFloor(t *testing.T) {
	a := New(testSampleRate)
	feedTone(a, 440, 8192)
	data := a.GetDisplayData(64)
	for _, v := range data {
		require.GreaterOrEqual(t, v, floorDB)
	}
}

func TestSmoothingReducesFrameToFrameDelta(t *testing.T) {
	a := New(testSampleRate)
	a.SetSmoothing(0.9)

	feedTone(a, 1000, 8192)
	first := append([]float64(nil), a.GetDisplayData(32)...)

	feedTone(a, 5000, 8192)
	second := a.GetDisplayData(32)

	var maxDelta float64
	for i := range first {
		d := math.Abs(second[i] - first[i])
		if d > maxDelta {
			maxDelta = d
		}
	}
	require.Less(t, maxDelta, 120.0)
}

func TestFrameSizeChangeResetsHistory(t *testing.T) {
	a := New(testSampleRate)
	a.SetMovingAverage(5)
	feedTone(a, 1000, 8192)
	a.GetDisplayData(32)

	require.NoError(t, a.SetFrameSize(2048))
	for _, frame := range a.history {
		require.Nil(t, frame)
	}
}

func TestLogScaleMapsFirstColumnNearMinFreq(t *testing.T) {
	a := New(testSampleRate)
	a.SetScale(ScaleLog)
	freq := a.columnFreq(0, 100)
	require.InDelta(t, minFreq, freq, 1e-6)
}

func TestLogScaleMapsLastColumnNearMaxFreq(t *testing.T) {
	a := New(testSampleRate)
	a.SetScale(ScaleLog)
	freq := a.columnFreq(99, 100)
	require.InDelta(t, maxFreq, freq, 1e-6)
}

func TestLinearScaleIsMonotonic(t *testing.T) {
	a := New(testSampleRate)
	a.SetScale(ScaleLinear)
	prev := -1.0
	for x := 0; x < 50; x++ {
		f := a.columnFreq(x, 50)
		require.Greater(t, f, prev)
		prev = f
	}
}
