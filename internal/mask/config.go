// Package mask generates and composes per-bin spectral gain masks for the
// plateau, Gaussian and parabolic filter shapes defined in spec.md §3-4.2.
package mask

import "math"

// Type selects the spectral shape a FilterConfig parameterizes.
type Type int

const (
	Plateau Type = iota
	Gaussian
	Parabolic
)

func (t Type) String() string {
	switch t {
	case Plateau:
		return "plateau"
	case Gaussian:
		return "gaussian"
	case Parabolic:
		return "parabolic"
	default:
		return "unknown"
	}
}

// Config is the tagged-variant filter configuration of spec.md §3. Only
// the fields relevant to Type are meaningful; the rest are ignored.
//
// All numeric fields are clamped to their documented ranges by Clamp; no
// field is ever rejected outright (spec.md §4.5, §9 Open Question 4 —
// clamping must be observable on read-back, never silently dropped nor
// surfaced as an error).
type Config struct {
	Type Type

	CenterFreq float64 // Hz, [20, 20000]
	Width      float64 // Hz, [50, 10000]
	GainDB     float64 // dB, [-40, 40]

	FlatWidth float64 // Hz, [10, 2000]; plateau only, must not exceed Width

	Skew     float64 // [-5, 5]; gaussian and parabolic
	Kurtosis float64 // [0.2, 5]; gaussian only

	Flatness float64 // [0.5, 3]; parabolic only
}

// DefaultConfig returns the zero-value-safe default configuration for a
// given filter type, used by filterchain.Chain.Add when the caller omits
// an explicit config.
func DefaultConfig(t Type) Config {
	c := Config{
		Type:       t,
		CenterFreq: 1000,
		Width:      400,
		GainDB:     0,
	}
	switch t {
	case Plateau:
		c.FlatWidth = 200
	case Gaussian:
		c.Skew = 0
		c.Kurtosis = 1
	case Parabolic:
		c.Skew = 0
		c.Flatness = 1
	}
	return c
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp returns a copy of c with every field clamped to its documented
// range. Width is clamped before FlatWidth so the plateau
// FlatWidth-must-not-exceed-Width rule can be enforced against the final
// Width.
func (c Config) Clamp() Config {
	out := c
	out.CenterFreq = clamp(c.CenterFreq, 20, 20000)
	out.Width = clamp(c.Width, 50, 10000)
	out.GainDB = clamp(c.GainDB, -40, 40)

	switch c.Type {
	case Plateau:
		out.FlatWidth = clamp(c.FlatWidth, 10, 2000)
		if out.FlatWidth > out.Width {
			out.FlatWidth = out.Width
		}
	case Gaussian:
		out.Skew = clamp(c.Skew, -5, 5)
		out.Kurtosis = clamp(c.Kurtosis, 0.2, 5)
	case Parabolic:
		out.Skew = clamp(c.Skew, -5, 5)
		out.Flatness = clamp(c.Flatness, 0.5, 3)
	}
	return out
}

// SetParameter applies a named parameter update and returns the new,
// clamped configuration. Unknown parameter names for the config's variant
// return ok=false so callers can surface errs.ErrBadParameter.
func (c Config) SetParameter(name string, value float64) (Config, bool) {
	next := c
	switch name {
	case "center_freq":
		next.CenterFreq = value
	case "width":
		next.Width = value
	case "gain_db":
		next.GainDB = value
	case "flat_width":
		if c.Type != Plateau {
			return c, false
		}
		next.FlatWidth = value
	case "skew":
		if c.Type != Gaussian && c.Type != Parabolic {
			return c, false
		}
		next.Skew = value
	case "kurtosis":
		if c.Type != Gaussian {
			return c, false
		}
		next.Kurtosis = value
	case "flatness":
		if c.Type != Parabolic {
			return c, false
		}
		next.Flatness = value
	default:
		return c, false
	}
	return next.Clamp(), true
}
