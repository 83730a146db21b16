// Package noise generates uniform [-1, 1] white noise samples, per
// spec.md §4.3: a deterministic multiplicative LCG, shared by the
// real-time path (reproducible, reseedable, allocation-free) and the
// offline renderer, which uses Skip to continue a track's stream across
// chunk boundaries instead of reseeding from sample zero.
package noise

const (
	lcgMultiplier = 16807
	lcgModulus    = 2147483647 // 2^31 - 1
)

// LCG is a 31-bit multiplicative linear congruential generator producing
// samples uniform on [-1, 1]. It is the real-time noise source: no
// allocation, no locking, reentrant only via separate instances (one per
// track, per spec.md §3's "a track owns exactly one noise source").
type LCG struct {
	state int64
}

// NewLCG creates an LCG seeded with the given value. A zero or otherwise
// degenerate seed is mapped to 1, since 0 is a fixed point of the
// recurrence (0*16807 mod M == 0 forever).
func NewLCG(seed int64) *LCG {
	s := seed % lcgModulus
	if s < 0 {
		s += lcgModulus
	}
	if s == 0 {
		s = 1
	}
	return &LCG{state: s}
}

// Reseed reseeds the generator, per spec.md §4.3's "reseeded on each
// playback start".
func (l *LCG) Reseed(seed int64) {
	s := seed % lcgModulus
	if s < 0 {
		s += lcgModulus
	}
	if s == 0 {
		s = 1
	}
	l.state = s
}

// Next returns the next sample in [-1, 1].
func (l *LCG) Next() float32 {
	l.state = (lcgMultiplier * l.state) % lcgModulus
	return float32(2*float64(l.state)/float64(lcgModulus) - 1)
}

// Fill fills buf with consecutive samples.
func (l *LCG) Fill(buf []float32) {
	for i := range buf {
		buf[i] = l.Next()
	}
}

// Skip advances the generator by n samples as if Next had been called n
// times, without materializing the skipped samples. Implemented via
// modular exponentiation of the multiplier, so it costs O(log n) instead
// of O(n). The offline renderer uses this to continue a track's noise
// stream from its chunk's global sample offset, so chunked rendering
// produces the same stream as direct rendering instead of restarting it
// at every chunk.
func (l *LCG) Skip(n int64) {
	if n <= 0 {
		return
	}
	l.state = (modPow(lcgMultiplier, n, lcgModulus) * l.state) % lcgModulus
}

func modPow(base, exp, mod int64) int64 {
	result := int64(1)
	base %= mod
	for exp > 0 {
		if exp&1 == 1 {
			result = (result * base) % mod
		}
		exp >>= 1
		base = (base * base) % mod
	}
	return result
}
