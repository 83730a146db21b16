package main

import (
	"math"
	"sync"
	"time"

	"github.com/shapedsignal/noiseforge/internal/telemetry"
)

// levelTracker maintains the mix bus's instantaneous peak/RMS level in
// dBFS, updated from the analyzer tap (audio-thread-adjacent) and read
// by the MQTT publishing goroutine (control-thread-adjacent), guarded by
// a mutex since the two run concurrently.
type levelTracker struct {
	mu     sync.Mutex
	peakDB float64
	rmsDB  float64
}

func newLevelTracker() *levelTracker {
	return &levelTracker{peakDB: -120, rmsDB: -120}
}

func (l *levelTracker) update(block []float32) {
	if len(block) == 0 {
		return
	}
	var peak float64
	var sumSq float64
	for _, s := range block {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(len(block)))

	l.mu.Lock()
	l.peakDB = toDB(peak)
	l.rmsDB = toDB(rms)
	l.mu.Unlock()
}

func (l *levelTracker) snapshot() (peakDB, rmsDB float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peakDB, l.rmsDB
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

// publishLevelsLoop publishes the mix bus's instantaneous levels to MQTT
// once per second until the process exits.
func publishLevelsLoop(pub *telemetry.Publisher, levels *levelTracker) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		peak, rms := levels.snapshot()
		_ = pub.PublishMixLevels(time.Now(), telemetry.MixLevelsPayload{PeakDB: peak, RMSDB: rms})
	}
}
