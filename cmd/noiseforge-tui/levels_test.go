package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstantaneousLevelsSilence(t *testing.T) {
	peak, rms := instantaneousLevels(make([]float32, 8))
	require.Equal(t, -120.0, peak)
	require.Equal(t, -120.0, rms)
}

func TestInstantaneousLevelsFullScale(t *testing.T) {
	block := []float32{1, -1, 1, -1}
	peak, rms := instantaneousLevels(block)
	require.InDelta(t, 0, peak, 1e-6)
	require.InDelta(t, 0, rms, 1e-6)
}

func TestInstantaneousLevelsEmptyBlock(t *testing.T) {
	peak, rms := instantaneousLevels(nil)
	require.Equal(t, -120.0, peak)
	require.Equal(t, -120.0, rms)
}

func TestBarIndexClampsToRange(t *testing.T) {
	require.Equal(t, 0, barIndex(-200))
	require.Equal(t, len(barLevels)-1, barIndex(10))
	require.Equal(t, len(barLevels)-1, barIndex(0))
}
