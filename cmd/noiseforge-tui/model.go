package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shapedsignal/noiseforge/internal/mixer"
)

// trackRow is a display-only snapshot of one track, refreshed from
// mixer.Snapshots() on every tracksMsg.
type trackRow struct {
	ID      int
	Gain    float64
	Muted   bool
	Playing bool
}

type spectrumMsg struct{ Columns []float64 }
type levelMsg struct{ PeakDB, RMSDB float64 }
type tracksMsg struct{ Tracks []trackRow }

// model is the Bubbletea model for the monitor. It holds the live
// *mixer.MixBus directly and mutates tracks through it in response to key
// presses, the same way the control plane does (spec.md's track
// gain/mute operations), rather than round-tripping through a channel.
type model struct {
	bus *mixer.MixBus

	spectrum []float64
	peakDB   float64
	rmsDB    float64
	tracks   []trackRow
	selected int

	width, height int
	quitting      bool
}

func newModel(bus *mixer.MixBus) model {
	return model{bus: bus, peakDB: -120, rmsDB: -120}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up":
			m.adjustGain(0.05)
		case "down":
			m.adjustGain(-0.05)
		case "m":
			m.toggleMute()
		case "tab", "right":
			m.selectNext(1)
		case "shift+tab", "left":
			m.selectNext(-1)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case spectrumMsg:
		m.spectrum = msg.Columns

	case levelMsg:
		m.peakDB, m.rmsDB = msg.PeakDB, msg.RMSDB

	case tracksMsg:
		m.tracks = msg.Tracks
		if m.selected >= len(m.tracks) {
			m.selected = 0
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Starting noiseforge-tui...\n"
	}
	return renderMonitor(m)
}

func (m model) selectedTrack() (trackRow, bool) {
	if m.selected < 0 || m.selected >= len(m.tracks) {
		return trackRow{}, false
	}
	return m.tracks[m.selected], true
}

func (m *model) selectNext(delta int) {
	if len(m.tracks) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.tracks)) % len(m.tracks)
}

func (m *model) adjustGain(delta float64) {
	row, ok := m.selectedTrack()
	if !ok {
		return
	}
	tr, err := m.bus.Track(row.ID)
	if err != nil {
		logger.Debug("track lookup failed", "id", row.ID, "err", err)
		return
	}
	g := tr.GainLinear() + delta
	tr.SetGain(g)
	logger.Debug("gain adjusted", "track", row.ID, "gain", g)
}

func (m *model) toggleMute() {
	row, ok := m.selectedTrack()
	if !ok {
		return
	}
	tr, err := m.bus.Track(row.ID)
	if err != nil {
		logger.Debug("track lookup failed", "id", row.ID, "err", err)
		return
	}
	tr.SetMuted(!row.Muted)
	logger.Debug("mute toggled", "track", row.ID, "muted", !row.Muted)
}
