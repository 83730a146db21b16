// Package analyzer implements the real-time FFT analyzer of spec.md
// §4.8: a windowed magnitude-spectrum tap over the mix bus, with optional
// exponential and moving-average smoothing, and a pixel-column display
// projection over a configurable frequency scale.
package analyzer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/shapedsignal/noiseforge/internal/errs"
	"github.com/shapedsignal/noiseforge/internal/fftkernel"
	"github.com/shapedsignal/noiseforge/internal/stft"
)

// ValidSizes enumerates the allowed analysis frame sizes (spec.md §4.8).
var ValidSizes = [...]int{512, 1024, 2048, 4096, 8192}

// Scale selects the frequency axis mapping used by GetDisplayData.
type Scale int

const (
	ScaleLog Scale = iota
	ScaleLinear
)

const (
	minFreq = 20.0
	maxFreq = 20000.0
	floorDB = -120.0
)

// Analyzer maintains a ring of recent mix samples, computes a windowed
// magnitude spectrum on demand, and smooths it across calls.
//
// Feed (the audio thread) only ever touches ringPtr, and only through
// atomic operations, so it never locks. Every other field is guarded by
// reconfMu, taken by the Set* reconfiguration methods and by
// GetDisplayData — none of which run on the audio thread, so reconfMu
// never stalls it (spec.md §5).
type Analyzer struct {
	sampleRate float64

	ringPtr atomic.Pointer[ring]

	reconfMu sync.Mutex

	n      int
	fft    *fftkernel.Kernel
	window []float64

	re, im     []float64
	magDB      []float64
	smoothedDB []float64

	history   [][]float64
	historyN  int
	historyAt int

	tau   float64
	scale Scale
}

// New builds an analyzer at the given sample rate with the default frame
// size (4096) and no smoothing.
func New(sampleRate float64) *Analyzer {
	a := &Analyzer{sampleRate: sampleRate, historyN: 1, scale: ScaleLog}
	a.reconfigure(4096)
	return a
}

// FrameSize reports the analyzer's current N_a.
func (a *Analyzer) FrameSize() int {
	a.reconfMu.Lock()
	defer a.reconfMu.Unlock()
	return a.n
}

func isValidSize(n int) bool {
	for _, v := range ValidSizes {
		if v == n {
			return true
		}
	}
	return false
}

// SetFrameSize changes N_a, resetting all averaging state (spec.md §4.8:
// "resets averaging state on N_a change"). Returns ErrBadParameter for any
// size outside ValidSizes.
func (a *Analyzer) SetFrameSize(n int) error {
	if !isValidSize(n) {
		return errs.ErrBadParameter
	}
	a.reconfMu.Lock()
	defer a.reconfMu.Unlock()
	a.reconfigure(n)
	return nil
}

func (a *Analyzer) reconfigure(n int) {
	fft, err := fftkernel.New(n)
	if err != nil {
		panic(err) // ValidSizes are always powers of two >= 512
	}
	a.n = n
	a.fft = fft
	a.window = stft.HannWindow(n)
	a.ringPtr.Store(newRing(2 * n))
	a.re = make([]float64, n)
	a.im = make([]float64, n)
	a.magDB = make([]float64, n/2+1)
	a.smoothedDB = make([]float64, n/2+1)
	for i := range a.smoothedDB {
		a.smoothedDB[i] = floorDB
	}
	a.resetHistory()
}

// SetSmoothing sets the EMA time constant tau (clamped to [0, 0.95]; 0
// disables smoothing).
func (a *Analyzer) SetSmoothing(tau float64) {
	a.reconfMu.Lock()
	defer a.reconfMu.Unlock()
	if tau < 0 {
		tau = 0
	}
	if tau > 0.95 {
		tau = 0.95
	}
	a.tau = tau
}

// SetMovingAverage sets the moving-average window length in frames
// (clamped to [1, 10]) and resets the history buffer.
func (a *Analyzer) SetMovingAverage(frames int) {
	a.reconfMu.Lock()
	defer a.reconfMu.Unlock()
	if frames < 1 {
		frames = 1
	}
	if frames > 10 {
		frames = 10
	}
	a.historyN = frames
	a.resetHistory()
}

func (a *Analyzer) resetHistory() {
	a.history = make([][]float64, a.historyN)
	a.historyAt = 0
}

// SetScale selects the frequency axis used by GetDisplayData.
func (a *Analyzer) SetScale(s Scale) {
	a.reconfMu.Lock()
	defer a.reconfMu.Unlock()
	a.scale = s
}

// Feed writes samples from the mix tap into the analyzer's sample ring.
// Called from the audio thread (typically as a mixer.TapFunc): it loads
// the current ring with a single atomic pointer read, then writes into
// it using only atomic cursor updates, so it never locks, blocks, or
// allocates (spec.md §5).
func (a *Analyzer) Feed(samples []float32) {
	a.ringPtr.Load().write(samples)
}

// computeLocked requires reconfMu held. It windows and FFTs the most
// recent n samples (or what's available, zero-padded), producing dB
// magnitudes in a.magDB, then applies EMA and moving-average smoothing
// into a.smoothedDB.
func (a *Analyzer) computeLocked() {
	peek := make([]float32, a.n)
	a.ringPtr.Load().peekLast(peek)

	for i := 0; i < a.n; i++ {
		a.re[i] = float64(peek[i]) * a.window[i]
		a.im[i] = 0
	}
	a.fft.Forward(a.re, a.im)

	for i := range a.magDB {
		mag := math.Hypot(a.re[i], a.im[i]) / float64(a.n)
		db := 20 * math.Log10(mag+1e-20)
		if db < floorDB {
			db = floorDB
		}
		a.magDB[i] = db
	}

	if a.tau > 0 {
		for i := range a.smoothedDB {
			a.smoothedDB[i] = a.tau*a.smoothedDB[i] + (1-a.tau)*a.magDB[i]
		}
	} else {
		copy(a.smoothedDB, a.magDB)
	}

	if a.historyN > 1 {
		cp := append([]float64(nil), a.smoothedDB...)
		a.history[a.historyAt%a.historyN] = cp
		a.historyAt++
	}
}

// averagedLocked requires reconfMu held. Returns the moving-average of
// the smoothed spectrum across up to historyN frames, or smoothedDB
// directly if averaging is disabled (historyN == 1) or no history yet
// exists.
func (a *Analyzer) averagedLocked() []float64 {
	if a.historyN <= 1 {
		return a.smoothedDB
	}
	sum := make([]float64, len(a.smoothedDB))
	count := 0
	for _, frame := range a.history {
		if frame == nil {
			continue
		}
		for i, v := range frame {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return a.smoothedDB
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}

// GetDisplayData computes the current spectrum and projects it onto
// pixelWidth columns via the configured frequency scale (spec.md §4.8).
// Out-of-[minFreq,maxFreq] columns don't occur: the mapping is defined
// exactly onto that band. Clipping to a display's min/max dB range is the
// caller's responsibility, not the analyzer's (spec.md §4.8). Runs on the
// control/display thread, not the audio thread, so taking reconfMu here
// never stalls Feed.
func (a *Analyzer) GetDisplayData(pixelWidth int) []float64 {
	a.reconfMu.Lock()
	defer a.reconfMu.Unlock()

	a.computeLocked()
	spectrum := a.averagedLocked()

	out := make([]float64, pixelWidth)
	for x := 0; x < pixelWidth; x++ {
		freq := a.columnFreq(x, pixelWidth)
		out[x] = a.sampleSpectrum(spectrum, freq)
	}
	return out
}

func (a *Analyzer) columnFreq(x, pixelWidth int) float64 {
	if pixelWidth <= 1 {
		return minFreq
	}
	t := float64(x) / float64(pixelWidth-1)
	switch a.scale {
	case ScaleLinear:
		return minFreq + t*(maxFreq-minFreq)
	default:
		logMin := math.Log10(minFreq)
		logMax := math.Log10(maxFreq)
		return math.Pow(10, logMin+t*(logMax-logMin))
	}
}

func (a *Analyzer) sampleSpectrum(spectrum []float64, freq float64) float64 {
	binHz := a.sampleRate / float64(a.n)
	bin := freq / binHz
	lo := int(math.Floor(bin))
	hi := lo + 1
	if lo < 0 {
		lo = 0
	}
	if hi >= len(spectrum) {
		hi = len(spectrum) - 1
	}
	if lo >= len(spectrum) {
		lo = len(spectrum) - 1
	}
	frac := bin - math.Floor(bin)
	return spectrum[lo]*(1-frac) + spectrum[hi]*frac
}
