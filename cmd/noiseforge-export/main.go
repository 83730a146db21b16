// Command noiseforge-export renders tracks to a fixed-length audio file
// offline: no mix bus, no real-time audio thread, just render.Render
// followed by fades/normalization/clip sequencing and a serializer. CLI
// parsing follows the teacher's jivetalking CLI: a single kong-tagged
// struct, kong.Parse with UsageOnError, version/help via kong.Vars.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/shapedsignal/noiseforge/internal/config"
	"github.com/shapedsignal/noiseforge/internal/mask"
	"github.com/shapedsignal/noiseforge/internal/mixer"
	"github.com/shapedsignal/noiseforge/internal/postprocess"
	"github.com/shapedsignal/noiseforge/internal/render"
	"github.com/shapedsignal/noiseforge/internal/serialize"
	"github.com/shapedsignal/noiseforge/internal/track"
)

var version = "dev"

// CLI is the command-line surface for one offline render. Track and
// filter composition is read from the same YAML shape as the daemon's
// configuration file, so a tracklist tuned live against noiseforged can
// be exported verbatim.
type CLI struct {
	Version bool `short:"v" help:"Show version information"`

	Config     string  `short:"c" help:"YAML config file supplying tracks/filters (daemon config format)" type:"existingfile" optional:""`
	SampleRate float64 `help:"Sample rate in Hz (ignored when --config is given)" default:"48000"`

	Duration float64 `short:"d" help:"Render length in seconds (ignored when --clips > 1)" default:"10"`
	Clips    int     `help:"Number of clips to render and concatenate" default:"1"`
	ClipMS   float64 `help:"Per-clip duration in milliseconds, used when --clips > 1" default:"1000"`
	GapMS    float64 `help:"Inter-clip silence in milliseconds" default:"0"`
	FinalGap bool    `help:"Append trailing silence after the last clip"`

	Parallel      bool   `help:"Render chunked mode across a worker pool" default:"true" negatable:""`
	ChunkBoundary string `help:"Chunk-boundary stitching mode" enum:"independent,ola" default:"independent"`
	MaxWorkers    int    `help:"Worker pool size override (0 = automatic)"`

	FadeInMS     float64 `help:"Fade-in length in milliseconds"`
	FadeOutMS    float64 `help:"Fade-out length in milliseconds"`
	FadeInPower  float64 `help:"Fade-in curve exponent" default:"1"`
	FadeOutPower float64 `help:"Fade-out curve exponent" default:"1"`
	FadeOrder    string  `help:"Apply fade before or after normalization" enum:"fade_first,normalize_first" default:"fade_first"`

	Normalize       bool    `help:"Peak-normalize the render" default:"true" negatable:""`
	NormalizeTarget float64 `help:"Peak normalization target (0-1]" default:"1.0"`
	NormalizeScope  string  `help:"Normalize per clip or across the whole sequence" enum:"global,per_clip" default:"global"`

	Format string `help:"Output container" enum:"wav,cheader" default:"wav"`

	Out string `arg:"" name:"out" help:"Output file path"`
}

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("noiseforge-export"),
		kong.Description("Offline shaped-noise renderer"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cli.Version {
		fmt.Printf("noiseforge-export %s\n", version)
		os.Exit(0)
	}

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "noiseforge-export: %v\n", err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	tracks, sampleRate, err := loadTracks(cli)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := render.Options{
		Boundary:   boundaryFromFlag(cli.ChunkBoundary),
		Parallel:   cli.Parallel,
		MaxWorkers: cli.MaxWorkers,
		Progress:   reportProgress,
	}

	var out []float32
	if cli.Clips <= 1 {
		out, err = renderAndFinish(ctx, tracks, sampleRate, cli.Duration, opts, cli)
	} else {
		out, err = renderSequence(ctx, tracks, sampleRate, opts, cli)
	}
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	f, err := os.Create(cli.Out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", cli.Out, err)
	}
	defer f.Close()

	switch cli.Format {
	case "cheader":
		return writeCHeader(f, out, cli, sampleRate)
	default:
		return serialize.WriteWAV(f, out, uint32(sampleRate))
	}
}

// loadTracks builds the track snapshots to render, either from a daemon
// config file's tracks/filters or, absent one, a single unfiltered noise
// track so the tool is usable with zero setup.
func loadTracks(cli *CLI) ([]track.Snapshot, float64, error) {
	if cli.Config == "" {
		sampleRate := cli.SampleRate
		if sampleRate <= 0 {
			sampleRate = 48000
		}
		tr, err := track.New(0, sampleRate, 1)
		if err != nil {
			return nil, 0, err
		}
		return []track.Snapshot{tr.Snapshot()}, sampleRate, nil
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, 0, err
	}

	bus := mixer.New(cfg.Audio.SampleRate)
	for _, tc := range cfg.Tracks {
		id, err := bus.Add()
		if err != nil {
			return nil, 0, fmt.Errorf("adding track %q: %w", tc.Name, err)
		}
		tr, err := bus.Track(id)
		if err != nil {
			return nil, 0, err
		}
		tr.SetGain(tc.Gain)
		tr.SetMuted(tc.Muted)
		for _, fc := range tc.Filters {
			ft, ok := filterType(fc.Type)
			if !ok {
				return nil, 0, fmt.Errorf("track %q: unknown filter type %q", tc.Name, fc.Type)
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
				return nil, 0, err
			}
		}
	}
	return bus.Snapshots(), cfg.Audio.SampleRate, nil
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

func boundaryFromFlag(s string) render.BoundaryMode {
	if s == "ola" {
		return render.ChunkBoundaryOLA
	}
	return render.ChunkBoundaryIndependent
}

func fadeOrderFromFlag(s string) postprocess.FadeOrder {
	if s == "normalize_first" {
		return postprocess.NormalizeThenFade
	}
	return postprocess.FadeThenNormalize
}

func normalizeScopeFromFlag(s string) postprocess.NormalizeScope {
	if s == "per_clip" {
		return postprocess.NormalizePerClip
	}
	return postprocess.NormalizeGlobal
}

func msToSamples(ms, sampleRate float64) int {
	return int(ms * sampleRate / 1000)
}

func fadeConfig(cli *CLI, sampleRate float64) postprocess.FadeConfig {
	return postprocess.FadeConfig{
		FadeInSamples:  msToSamples(cli.FadeInMS, sampleRate),
		FadeOutSamples: msToSamples(cli.FadeOutMS, sampleRate),
		PowerIn:        cli.FadeInPower,
		PowerOut:       cli.FadeOutPower,
	}
}

// renderAndFinish renders a single clip and applies the fade/normalize
// pipeline directly, honoring --no-normalize (postprocess.Process always
// normalizes, so a disabled normalize step bypasses it and applies only
// the fade).
func renderAndFinish(ctx context.Context, tracks []track.Snapshot, sampleRate, duration float64, opts render.Options, cli *CLI) ([]float32, error) {
	buf, err := render.Render(ctx, tracks, sampleRate, duration, opts)
	if err != nil {
		return nil, err
	}
	fade := fadeConfig(cli, sampleRate)
	if cli.Normalize {
		postprocess.Process(buf, fade, fadeOrderFromFlag(cli.FadeOrder), cli.NormalizeTarget)
	} else {
		postprocess.ApplyFade(buf, fade)
	}
	return buf, nil
}

// renderSequence renders cli.Clips independent clips of cli.ClipMS length
// each and concatenates them with inter-clip silence. When normalization
// is disabled, the clips are stitched manually so fade-only processing is
// still honored without postprocess.Sequence's unconditional normalize.
func renderSequence(ctx context.Context, tracks []track.Snapshot, sampleRate float64, opts render.Options, cli *CLI) ([]float32, error) {
	clipSeconds := cli.ClipMS / 1000
	clips := make([][]float32, cli.Clips)
	for i := 0; i < cli.Clips; i++ {
		buf, err := render.Render(ctx, tracks, sampleRate, clipSeconds, opts)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		clips[i] = buf
	}

	fade := fadeConfig(cli, sampleRate)
	if !cli.Normalize {
		return concatenateWithSilence(clips, fade, sampleRate, cli), nil
	}

	cfg := postprocess.ClipSequencerConfig{
		SampleRate:          sampleRate,
		SilenceMillis:       cli.GapMS,
		FinalSilenceEnabled: cli.FinalGap,
		NormalizeScope:      normalizeScopeFromFlag(cli.NormalizeScope),
		PeakTarget:          cli.NormalizeTarget,
		Fade:                fade,
		FadeOrder:           fadeOrderFromFlag(cli.FadeOrder),
	}
	return postprocess.Sequence(clips, cfg), nil
}

func concatenateWithSilence(clips [][]float32, fade postprocess.FadeConfig, sampleRate float64, cli *CLI) []float32 {
	silence := msToSamples(cli.GapMS, sampleRate)
	total := 0
	for i, c := range clips {
		total += len(c)
		if i < len(clips)-1 {
			total += silence
		}
	}
	if cli.FinalGap {
		total += silence
	}

	out := make([]float32, 0, total)
	for i, c := range clips {
		out = append(out, c...)
		if i < len(clips)-1 || cli.FinalGap {
			out = append(out, make([]float32, silence)...)
		}
	}
	postprocess.ApplyFade(out, fade)
	return out
}

func writeCHeader(f *os.File, samples []float32, cli *CLI, sampleRate float64) error {
	int16s := make([]int16, len(samples))
	for i, s := range samples {
		int16s[i] = serialize.ToInt16(s)
	}
	return serialize.WriteCHeader(f, [][]int16{int16s}, serialize.CHeaderConfig{
		Filename:      cli.Out,
		SampleRate:    int(sampleRate),
		SilenceMS:     0,
		BuffersPerSec: 1,
	})
}

func reportProgress(p render.Progress) {
	if p.ChunksTotal > 0 {
		fmt.Fprintf(os.Stderr, "\r%s: chunk %d/%d (%.0f%%)", p.Phase, p.ChunksCompleted, p.ChunksTotal, p.OverallProgressPct)
	} else {
		fmt.Fprintf(os.Stderr, "\r%s", p.Phase)
	}
	if p.Phase == render.PhaseComplete || p.Phase == render.PhaseCancelled {
		fmt.Fprintln(os.Stderr)
	}
}
