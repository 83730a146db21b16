package mask

import "math"

// Abramowitz-Stegun 5-term rational approximation of erf, formula 7.1.26.
// Maximum error ~1.5e-7. spec.md §9 Open Question 3 requires this specific
// approximation (not math.Erf) so the real-time and offline Gaussian mask
// paths agree on a reproducible, documented formula.
const (
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
	erfP  = 0.3275911
)

func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + erfP*x)
	poly := ((((erfA5*t+erfA4)*t+erfA3)*t+erfA2)*t + erfA1) * t
	y := 1.0 - poly*math.Exp(-x*x)

	return sign * y
}
