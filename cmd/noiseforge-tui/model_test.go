package main

import (
	"io"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/shapedsignal/noiseforge/internal/mixer"
)

func init() {
	logger = charmlog.New(io.Discard)
}

func newTestBus(t *testing.T, n int) *mixer.MixBus {
	t.Helper()
	bus := mixer.New(48000)
	for i := 0; i < n; i++ {
		_, err := bus.Add()
		require.NoError(t, err)
	}
	return bus
}

func TestSelectNextWraps(t *testing.T) {
	bus := newTestBus(t, 3)
	m := newModel(bus)
	m.tracks = trackRows(bus)

	m.selectNext(1)
	require.Equal(t, 1, m.selected)
	m.selectNext(1)
	m.selectNext(1)
	require.Equal(t, 0, m.selected)
	m.selectNext(-1)
	require.Equal(t, 2, m.selected)
}

func TestSelectNextNoopWhenEmpty(t *testing.T) {
	bus := newTestBus(t, 0)
	m := newModel(bus)
	m.selectNext(1)
	require.Equal(t, 0, m.selected)
}

func TestAdjustGainChangesTrackGain(t *testing.T) {
	bus := newTestBus(t, 1)
	m := newModel(bus)
	m.tracks = trackRows(bus)

	m.adjustGain(0.1)

	tr, err := bus.Track(0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, tr.GainLinear(), 1e-9)
}

func TestToggleMuteFlipsMuteState(t *testing.T) {
	bus := newTestBus(t, 1)
	m := newModel(bus)
	m.tracks = trackRows(bus)

	m.toggleMute()

	tr, err := bus.Track(0)
	require.NoError(t, err)
	require.True(t, tr.Muted())

	m.tracks = trackRows(bus)
	m.toggleMute()
	require.False(t, tr.Muted())
}
