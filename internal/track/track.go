// Package track implements the per-voice signal path of spec.md §4.6: a
// noise source feeding a filter chain feeding a gain stage, with
// click-suppressing ramps on start/stop/mute/gain transitions.
package track

import (
	"github.com/shapedsignal/noiseforge/internal/filterchain"
	"github.com/shapedsignal/noiseforge/internal/mask"
	"github.com/shapedsignal/noiseforge/internal/noise"
	"github.com/shapedsignal/noiseforge/internal/stft"
)

// rampMillis is the click-suppression ramp duration for start, stop, and
// gain/mute transitions (spec.md §4.6).
const rampMillis = 10.0

// maxHostBlockSamples is the largest host callback block size the audio
// host callback contract allows (spec.md §6: "contract: 64, 128, or 256").
// noiseBuf is sized to this at construction so Process never allocates.
const maxHostBlockSamples = 256

// Event is a diagnostic notification emitted on state transitions, for a
// control-plane or telemetry consumer. The audio thread never blocks
// publishing one.
type Event struct {
	TrackID int
	Kind    string // "started", "stopped", "gain_changed", "muted", "unmuted"
}

// Track owns exactly one noise source and one filter chain (spec.md §3:
// "A track owns exactly one noise source and exactly one filter chain").
type Track struct {
	ID int

	sampleRate float64
	chain      *filterchain.Chain
	proc       *stft.Processor
	src        *noise.LCG
	seed       int64

	gainLinear float64
	muted      bool
	playing    bool

	rampFrom, rampTo float64
	rampRemaining    int
	rampTotal        int

	noiseBuf []float32

	Events chan Event
}

// New builds a Track with its own filter chain (sized to the STFT
// processor's fixed analysis block) and STFT processor, seeded noise
// source, and a buffered, non-blocking diagnostic event channel.
func New(id int, sampleRate float64, seed int64) (*Track, error) {
	proc, err := stft.NewProcessor()
	if err != nil {
		return nil, err
	}
	t := &Track{
		ID:         id,
		sampleRate: sampleRate,
		chain:      filterchain.New(proc.N(), sampleRate),
		proc:       proc,
		src:        noise.NewLCG(seed),
		seed:       seed,
		gainLinear: 1.0,
		noiseBuf:   make([]float32, maxHostBlockSamples),
		Events:     make(chan Event, 16),
	}
	return t, nil
}

// Chain exposes the track's filter chain for filter management operations
// (add/remove/move/set_enabled/set_parameter all live on filterchain.Chain
// itself; Track only wires its composite mask into the STFT processor).
func (t *Track) Chain() *filterchain.Chain { return t.chain }

// AddFilter is a convenience wrapper that adds a filter to the track's
// chain and republishes the composite mask to the STFT processor.
func (t *Track) AddFilter(ft mask.Type, cfg *mask.Config) int {
	idx := t.chain.Add(ft, cfg)
	t.proc.SetMask(t.chain.Composite())
	return idx
}

// SetFilterParameter updates a filter parameter and republishes the
// composite mask.
func (t *Track) SetFilterParameter(index int, name string, value float64) (mask.Config, error) {
	cfg, err := t.chain.SetParameter(index, name, value)
	if err != nil {
		return cfg, err
	}
	t.proc.SetMask(t.chain.Composite())
	return cfg, nil
}

// SetFilterEnabled toggles a filter and republishes the composite mask.
func (t *Track) SetFilterEnabled(index int, enabled bool) error {
	if err := t.chain.SetEnabled(index, enabled); err != nil {
		return err
	}
	t.proc.SetMask(t.chain.Composite())
	return nil
}

// Snapshot captures this track's configuration for the offline renderer,
// independent of the live STFT's fixed analysis size (spec.md §4.9: the
// renderer applies filters via a bulk FFT sized to the render buffer, not
// the real-time N=4096 block).
type Snapshot struct {
	ID      int
	Gain    float64
	Muted   bool
	Playing bool
	Seed    int64
	Filters []filterchain.FilterSnapshot
}

// Snapshot returns the track's current render-relevant state.
func (t *Track) Snapshot() Snapshot {
	return Snapshot{
		ID:      t.ID,
		Gain:    t.gainLinear,
		Muted:   t.muted,
		Playing: t.playing,
		Seed:    t.seed,
		Filters: t.chain.Snapshot(),
	}
}

func (t *Track) rampSamples() int {
	n := int(rampMillis / 1000.0 * t.sampleRate)
	if n < 1 {
		n = 1
	}
	return n
}

// Start resumes the noise source (it never truly "pauses" its generator
// state — LCG is reseed-free across start/stop per spec.md §4.3 reuse of
// the same stream) and ramps gain from 0 to gain_linear over 10 ms. A
// muted track starts silently (it will play once unmuted).
func (t *Track) Start() {
	t.playing = true
	t.beginRamp(0, t.effectiveTarget())
	t.notify("started")
}

// Stop ramps gain to 0 over 10 ms and marks the track paused. Idempotent:
// calling Stop on an already-stopped track is a no-op ramp to the same
// target.
func (t *Track) Stop() {
	t.beginRamp(t.currentGain(), 0)
	t.playing = false
	t.notify("stopped")
}

// SetGain clamps g to [0, 1] and, while playing, ramps to it over 10 ms.
func (t *Track) SetGain(g float64) {
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	t.gainLinear = g
	if t.playing {
		t.beginRamp(t.currentGain(), t.effectiveTarget())
	}
	t.notify("gain_changed")
}

// SetMuted sets the mute flag. Muting ramps the audible output to 0
// without stopping the noise source or filter state; unmuting while
// playing ramps back to gain_linear.
func (t *Track) SetMuted(m bool) {
	if m == t.muted {
		return
	}
	t.muted = m
	if t.playing {
		t.beginRamp(t.currentGain(), t.effectiveTarget())
	}
	if m {
		t.notify("muted")
	} else {
		t.notify("unmuted")
	}
}

// Muted reports the current mute flag.
func (t *Track) Muted() bool { return t.muted }

// Playing reports whether the track is currently running.
func (t *Track) Playing() bool { return t.playing }

// GainLinear reports the track's target (post-ramp) linear gain.
func (t *Track) GainLinear() float64 { return t.gainLinear }

func (t *Track) effectiveTarget() float64 {
	if t.muted || !t.playing {
		return 0
	}
	return t.gainLinear
}

func (t *Track) beginRamp(from, to float64) {
	t.rampFrom = from
	t.rampTo = to
	t.rampTotal = t.rampSamples()
	t.rampRemaining = t.rampTotal
}

func (t *Track) currentGain() float64 {
	if t.rampRemaining <= 0 {
		return t.rampTo
	}
	progress := float64(t.rampTotal-t.rampRemaining) / float64(t.rampTotal)
	return t.rampFrom + (t.rampTo-t.rampFrom)*progress
}

func (t *Track) notify(kind string) {
	select {
	case t.Events <- Event{TrackID: t.ID, Kind: kind}:
	default:
	}
}

// Process fills output with this track's contribution to the mix: noise
// through the filter chain's STFT processor, through the current gain
// ramp. A track contributes silence exactly when muted or not playing
// (spec.md §4.6), but the noise source and STFT state still advance so
// re-enabling produces no discontinuity in filter state.
func (t *Track) Process(output []float32) {
	// noiseBuf is pre-sized to maxHostBlockSamples in New; the host
	// callback contract (spec.md §6) bounds len(output) to 64/128/256,
	// so this never grows the backing array on the audio thread.
	noiseBuf := t.noiseBuf[:len(output)]
	t.src.Fill(noiseBuf)

	t.proc.Process(noiseBuf, output)

	for i := range output {
		g := t.currentGain()
		if t.rampRemaining > 0 {
			t.rampRemaining--
		}
		output[i] *= float32(g)
	}
}
