package mask

import "math"

// Mask is a non-negative real gain per FFT bin, conjugate-symmetric by
// construction because it is derived solely from |frequency|.
type Mask []float64

// binFreq implements spec.md §3's negative-frequency bin layout: bin i <=
// N/2 maps to i*sr/N; bin i > N/2 maps to (i-N)*sr/N.
func binFreq(i, n int, sampleRate float64) float64 {
	if i <= n/2 {
		return float64(i) * sampleRate / float64(n)
	}
	return float64(i-n) * sampleRate / float64(n)
}

// Generate builds a Mask of length n at the given sample rate for the
// (already-clamped) configuration cfg.
func Generate(cfg Config, n int, sampleRate float64) Mask {
	cfg = cfg.Clamp()
	m := make(Mask, n)
	gainLinear := math.Pow(10, cfg.GainDB/20)

	for i := 0; i < n; i++ {
		f := binFreq(i, n, sampleRate)
		var mag float64
		switch cfg.Type {
		case Plateau:
			mag = plateauMagnitude(cfg, f)
		case Gaussian:
			mag = gaussianMagnitude(cfg, f)
		case Parabolic:
			mag = parabolicMagnitude(cfg, f)
		}
		if mag < 0 {
			mag = 0
		}
		m[i] = mag * gainLinear
	}
	return m
}

// plateauMagnitude implements spec.md §4.2's plateau shape.
func plateauMagnitude(cfg Config, f float64) float64 {
	d := math.Abs(f - cfg.CenterFreq)
	w := cfg.Width
	fw := cfg.FlatWidth

	if w <= fw {
		// Edge case: pure plateau, no rolloff region.
		if d <= w/2 {
			return 1
		}
		return 0
	}

	if d < fw/2 {
		return 1
	}
	if d <= w/2 {
		return 0.5 * (1 + math.Cos(math.Pi*(d-fw/2)/((w-fw)/2)))
	}
	return 0
}

// gaussianMagnitude implements spec.md §4.2's Gaussian shape, using the
// erf-based skew formulation mandated by §9 Open Question 3 for both the
// real-time and offline paths.
func gaussianMagnitude(cfg Config, f float64) float64 {
	const eps = 1e-10
	z := (f - cfg.CenterFreq) / (cfg.Width + eps)

	base := math.Exp(-math.Pow(z*z, cfg.Kurtosis) / 2)
	skewFactor := 1 + erf(cfg.Skew*z/math.Sqrt2)
	if skewFactor < 0 {
		skewFactor = 0
	}
	return base * skewFactor
}

// parabolicMagnitude implements spec.md §4.2's parabolic shape.
func parabolicMagnitude(cfg Config, f float64) float64 {
	d := math.Abs(f - cfg.CenterFreq)
	n := d / cfg.Width
	if n > 1 {
		return 0
	}

	if cfg.Skew == 0 {
		return 1 - math.Pow(n, 2/cfg.Flatness)
	}

	s := 1 + math.Abs(cfg.Skew)/5
	sameSign := sign(cfg.Skew) == sign(f-cfg.CenterFreq)
	if sameSign {
		return 1 - math.Pow(n, 2*s/cfg.Flatness)
	}
	return 1 - math.Pow(n, 2/(cfg.Flatness*s))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Composite multiplies a set of masks pointwise into a single composite
// mask, per spec.md §4.4's "chain composes masks to avoid cascading
// STFTs". Disabled filters should be excluded by the caller before
// calling Composite; an empty input yields an all-ones (unity) mask of
// length n.
func Composite(n int, masks ...Mask) Mask {
	out := make(Mask, n)
	for i := range out {
		out[i] = 1
	}
	for _, m := range masks {
		for i := 0; i < n && i < len(m); i++ {
			out[i] *= m[i]
		}
	}
	return out
}
