// Package postprocess applies spec.md §4.10's final-signal operations to
// an assembled render: fade envelopes, peak normalization, and
// multi-clip sequencing with inter-clip silence.
package postprocess

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FadeOrder selects whether the fade envelope or peak normalization is
// applied first.
type FadeOrder int

const (
	FadeThenNormalize FadeOrder = iota
	NormalizeThenFade
)

// NormalizeScope selects whether clip-sequencer normalization applies to
// the whole concatenated buffer or to each clip independently.
type NormalizeScope int

const (
	NormalizeGlobal NormalizeScope = iota
	NormalizePerClip
)

// FadeConfig parameterizes the fade envelope of spec.md §4.10.
type FadeConfig struct {
	FadeInSamples  int
	FadeOutSamples int
	PowerIn        float64
	PowerOut       float64
}

// Envelope computes env(i) for a buffer of length l under cfg, per the
// exact formula in spec.md §4.10, including the f_in+f_out >= L rescaling
// so two fades on a very short buffer never exceed the sample count.
func Envelope(l int, cfg FadeConfig) []float64 {
	env := make([]float64, l)
	fIn, fOut := cfg.FadeInSamples, cfg.FadeOutSamples
	if fIn+fOut >= l && fIn+fOut > 0 {
		scale := float64(l-1) / float64(fIn+fOut)
		fIn = int(math.Round(float64(fIn) * scale))
		fOut = int(math.Round(float64(fOut) * scale))
	}
	for i := 0; i < l; i++ {
		switch {
		case fIn > 0 && i < fIn:
			env[i] = math.Pow(0.5*(1-math.Cos(math.Pi*float64(i)/float64(fIn))), cfg.PowerIn)
		case fOut > 0 && i >= l-fOut:
			t := float64(l-1-i) / float64(fOut)
			env[i] = math.Pow(0.5*(1-math.Cos(math.Pi*t)), cfg.PowerOut)
		default:
			env[i] = 1
		}
	}
	return env
}

// ApplyFade multiplies buf in place by its fade envelope.
func ApplyFade(buf []float32, cfg FadeConfig) {
	env := Envelope(len(buf), cfg)
	for i := range buf {
		buf[i] = float32(float64(buf[i]) * env[i])
	}
}

// PeakNormalize scales buf in place so its peak absolute sample equals
// target. A silent buffer (peak 0) passes through unchanged (spec.md
// §4.10). Peak detection and scaling go through gonum/floats so the
// normalization path shares its vector-math primitives with the rest of
// the ecosystem rather than hand-rolled loops.
func PeakNormalize(buf []float32, target float64) {
	if len(buf) == 0 {
		return
	}
	f64 := make([]float64, len(buf))
	for i, v := range buf {
		f64[i] = math.Abs(float64(v))
	}
	peak := floats.Max(f64)
	if peak == 0 {
		return
	}
	scale := target / peak
	for i := range f64 {
		f64[i] = float64(buf[i])
	}
	floats.Scale(scale, f64)
	for i, v := range f64 {
		buf[i] = float32(v)
	}
}

// Process applies the fade envelope and peak normalization to buf in the
// given order (spec.md §4.10 "Ordering").
func Process(buf []float32, fade FadeConfig, order FadeOrder, peakTarget float64) {
	switch order {
	case FadeThenNormalize:
		ApplyFade(buf, fade)
		PeakNormalize(buf, peakTarget)
	default:
		PeakNormalize(buf, peakTarget)
		ApplyFade(buf, fade)
	}
}

// ClipSequencerConfig parameterizes multi-clip concatenation (spec.md
// §4.10's "Clip sequencer").
type ClipSequencerConfig struct {
	SampleRate          float64
	SilenceMillis       float64
	FinalSilenceEnabled bool
	NormalizeScope      NormalizeScope
	PeakTarget          float64
	Fade                FadeConfig
	FadeOrder           FadeOrder
}

// SilenceSamples returns floor(silence_ms * sr / 1000).
func (c ClipSequencerConfig) SilenceSamples() int {
	return int(math.Floor(c.SilenceMillis * c.SampleRate / 1000))
}

// Sequence concatenates clips with inter-clip silence. Only normalization
// scope varies with cfg.NormalizeScope (per_clip normalizes each clip
// before concatenation; global normalizes the concatenated whole); the
// fade envelope always applies exactly once, to the fully assembled
// signal, per spec.md §4.10 ("applies after all chunks are assembled, to
// the full signal") — a per-clip fade would otherwise fade in and out at
// every interior clip boundary instead of just the outer edges.
func Sequence(clips [][]float32, cfg ClipSequencerConfig) []float32 {
	silence := cfg.SilenceSamples()

	if cfg.NormalizeScope == NormalizePerClip {
		processed := make([][]float32, len(clips))
		for i, c := range clips {
			cp := append([]float32(nil), c...)
			PeakNormalize(cp, cfg.PeakTarget)
			processed[i] = cp
		}
		clips = processed
	}

	total := 0
	for i, c := range clips {
		total += len(c)
		if i < len(clips)-1 {
			total += silence
		}
	}
	if cfg.FinalSilenceEnabled {
		total += silence
	}

	out := make([]float32, 0, total)
	for i, c := range clips {
		out = append(out, c...)
		if i < len(clips)-1 || cfg.FinalSilenceEnabled {
			out = append(out, make([]float32, silence)...)
		}
	}

	if cfg.NormalizeScope == NormalizeGlobal {
		Process(out, cfg.Fade, cfg.FadeOrder, cfg.PeakTarget)
	} else {
		ApplyFade(out, cfg.Fade)
	}
	return out
}
