// Command noiseforge-tui is a terminal spectrum and track monitor: it
// runs its own in-process mix bus and analyzer (no connection to a
// running noiseforged), and drives a Bubbletea UI off it. Composition
// mirrors the teacher's jivetalking main.go: a single kong-tagged CLI
// struct, a tea.Program driven by a background producer goroutine that
// calls p.Send. Debug logging goes through charmbracelet/log, confined
// to this binary.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"

	"github.com/shapedsignal/noiseforge/internal/analyzer"
	"github.com/shapedsignal/noiseforge/internal/config"
	"github.com/shapedsignal/noiseforge/internal/mask"
	"github.com/shapedsignal/noiseforge/internal/mixer"
)

var version = "dev"

// CLI is the command-line surface. Without --config, a single plateau
// track centered on the band is started so the monitor is usable with
// zero setup.
type CLI struct {
	Version bool `short:"v" help:"Show version information"`

	Config     string  `short:"c" help:"YAML config file supplying tracks/filters (daemon config format)" type:"existingfile" optional:""`
	SampleRate float64 `help:"Sample rate in Hz, used when --config is omitted" default:"48000"`
	BlockSize  int     `help:"Simulated host callback block size" default:"128"`
	Debug      bool    `short:"d" help:"Write verbose debug logging to noiseforge-tui-debug.log"`
}

var logger *charmlog.Logger

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("noiseforge-tui"),
		kong.Description("Terminal spectrum and track monitor"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cli.Version {
		fmt.Printf("noiseforge-tui %s\n", version)
		os.Exit(0)
	}

	logger = newLogger(cli.Debug)

	bus, sampleRate, blockSize, err := buildBus(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "noiseforge-tui: %v\n", err)
		os.Exit(1)
	}

	an := analyzer.New(sampleRate)
	bus.SetAnalyzerTap(func(mix []float32) {
		an.Feed(mix)
	})

	bus.StartAll()
	defer bus.StopAll()

	p := tea.NewProgram(newModel(bus), tea.WithAltScreen())

	go driveMix(p, bus, an, sampleRate, blockSize)

	if _, err := p.Run(); err != nil {
		logger.Error("ui exited with error", "err", err)
		fmt.Fprintf(os.Stderr, "noiseforge-tui: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *charmlog.Logger {
	f, err := os.OpenFile("noiseforge-tui-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return charmlog.New(os.Stderr)
	}
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	return charmlog.NewWithOptions(f, charmlog.Options{Level: level, ReportTimestamp: true})
}

// buildBus constructs the monitor's own mix bus, either from a daemon
// config file's tracks/filters or, absent one, a single demo track with
// one plateau filter.
func buildBus(cli *CLI) (*mixer.MixBus, float64, int, error) {
	if cli.Config == "" {
		sr := cli.SampleRate
		if sr <= 0 {
			sr = 48000
		}
		bus := mixer.New(sr)
		id, err := bus.Add()
		if err != nil {
			return nil, 0, 0, err
		}
		tr, err := bus.Track(id)
		if err != nil {
			return nil, 0, 0, err
		}
		idx := tr.AddFilter(mask.Plateau, &mask.Config{
			Type:       mask.Plateau,
			CenterFreq: sr / 4,
			Width:      sr / 4,
			FlatWidth:  sr / 8,
		})
		if err := tr.SetFilterEnabled(idx, true); err != nil {
			return nil, 0, 0, err
		}
		return bus, sr, cli.BlockSize, nil
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, 0, 0, err
	}

	bus := mixer.New(cfg.Audio.SampleRate)
	bus.SetMasterGain(cfg.Audio.MasterGain)
	for _, tc := range cfg.Tracks {
		id, err := bus.Add()
		if err != nil {
			return nil, 0, 0, fmt.Errorf("adding track %q: %w", tc.Name, err)
		}
		tr, err := bus.Track(id)
		if err != nil {
			return nil, 0, 0, err
		}
		tr.SetGain(tc.Gain)
		tr.SetMuted(tc.Muted)
		for _, fc := range tc.Filters {
			ft, ok := filterType(fc.Type)
			if !ok {
				return nil, 0, 0, fmt.Errorf("track %q: unknown filter type %q", tc.Name, fc.Type)
			}
			idx := tr.AddFilter(ft, &mask.Config{
				Type:       ft,
				CenterFreq: fc.CenterFreq,
				Width:      fc.Width,
				GainDB:     fc.GainDB,
				FlatWidth:  fc.FlatWidth,
				Skew:       fc.Skew,
				Kurtosis:   fc.Kurtosis,
				Flatness:   fc.Flatness,
			})
			if err := tr.SetFilterEnabled(idx, fc.Enabled); err != nil {
				return nil, 0, 0, err
			}
		}
	}
	blockSize := cfg.Audio.BlockSize
	if cli.BlockSize > 0 {
		blockSize = cli.BlockSize
	}
	return bus, cfg.Audio.SampleRate, blockSize, nil
}

func filterType(s string) (mask.Type, bool) {
	switch s {
	case "plateau":
		return mask.Plateau, true
	case "gaussian":
		return mask.Gaussian, true
	case "parabolic":
		return mask.Parabolic, true
	default:
		return 0, false
	}
}

// driveMix simulates the audio host's callback cadence, advancing the mix
// bus one block at a time, and periodically pushes spectrum/level/track
// updates into the Bubbletea program at a UI-friendly ~20 Hz.
func driveMix(p *tea.Program, bus *mixer.MixBus, an *analyzer.Analyzer, sampleRate float64, blockSize int) {
	if blockSize <= 0 {
		blockSize = 128
	}
	block := make([]float32, blockSize)
	blockDuration := time.Duration(float64(blockSize) / sampleRate * float64(time.Second))
	audioTicker := time.NewTicker(blockDuration)
	defer audioTicker.Stop()

	uiTicker := time.NewTicker(50 * time.Millisecond)
	defer uiTicker.Stop()

	var peakDB, rmsDB = -120.0, -120.0

	for {
		select {
		case <-audioTicker.C:
			bus.Process(block)
			peakDB, rmsDB = instantaneousLevels(block)
		case <-uiTicker.C:
			p.Send(spectrumMsg{Columns: an.GetDisplayData(64)})
			p.Send(levelMsg{PeakDB: peakDB, RMSDB: rmsDB})
			p.Send(tracksMsg{Tracks: trackRows(bus)})
		}
	}
}

func trackRows(bus *mixer.MixBus) []trackRow {
	snaps := bus.Snapshots()
	rows := make([]trackRow, len(snaps))
	for i, s := range snaps {
		rows[i] = trackRow{ID: s.ID, Gain: s.Gain, Muted: s.Muted, Playing: s.Playing}
	}
	return rows
}
