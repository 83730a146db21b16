package stft

import "math"

// HannWindow builds a length-n periodic-style Hann window as used for
// analysis/synthesis in spec.md §4.4.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// windowNorm computes the re-windowing step's normalization scalar: the
// overlap-added squared window at 75% overlap, 4·mean(w²) (about 1.5 for
// Hann), so that after analysis and synthesis windowing a unity mask
// yields unity output amplitude.
func windowNorm(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v * v
	}
	return 4 * sum / float64(len(w))
}
