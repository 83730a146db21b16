package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var barLevels = []rune("▁▂▃▄▅▆▇█")

func renderMonitor(m model) string {
	var b strings.Builder

	b.WriteString(renderHeader())
	b.WriteString("\n\n")
	b.WriteString(renderSpectrum(m.spectrum))
	b.WriteString("\n\n")
	b.WriteString(renderLevels(m.peakDB, m.rmsDB))
	b.WriteString("\n\n")
	b.WriteString(renderTracks(m.tracks, m.selected))
	b.WriteString("\n\n")
	b.WriteString(renderFooter())

	return b.String()
}

func renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00D7FF")).
		Render("noiseforge-tui — shaped-noise monitor")
	return title
}

// renderSpectrum draws one row of Unicode block bars, each column mapped
// from [-80, 0] dBFS onto the eight block levels.
func renderSpectrum(columns []float64) string {
	if len(columns) == 0 {
		return "spectrum: (waiting for data)"
	}
	var bars strings.Builder
	for _, db := range columns {
		bars.WriteRune(barLevels[barIndex(db)])
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	return style.Render(bars.String())
}

func barIndex(db float64) int {
	const floor = -80.0
	t := (db - floor) / -floor
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	idx := int(t * float64(len(barLevels)-1))
	return idx
}

func renderLevels(peakDB, rmsDB float64) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	return style.Render(fmt.Sprintf("peak %6.1f dBFS   rms %6.1f dBFS", peakDB, rmsDB))
}

func renderTracks(tracks []trackRow, selected int) string {
	if len(tracks) == 0 {
		return "no tracks"
	}
	var b strings.Builder
	for i, t := range tracks {
		cursor := "  "
		if i == selected {
			cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D7FF")).Render("> ")
		}
		state := "playing"
		if t.Muted {
			state = "muted"
		} else if !t.Playing {
			state = "stopped"
		}
		line := fmt.Sprintf("%strack %2d  gain %.2f  %s", cursor, t.ID, t.Gain, state)
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFooter() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	return style.Render("tab/shift+tab select track · up/down gain · m mute · q quit")
}
