package main

import "math"

// instantaneousLevels computes peak and RMS level in dBFS for one block,
// matching the daemon's level tracker but without the tracker's own
// state (the TUI only needs the latest reading, not a running average).
func instantaneousLevels(block []float32) (peakDB, rmsDB float64) {
	if len(block) == 0 {
		return -120, -120
	}
	var peak, sumSq float64
	for _, s := range block {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(len(block)))
	return toDB(peak), toDB(rms)
}

func toDB(v float64) float64 {
	if v <= 0 {
		return -120
	}
	db := 20 * math.Log10(v)
	if db < -120 {
		return -120
	}
	return db
}
