package stft

import (
	"sync/atomic"

	"github.com/shapedsignal/noiseforge/internal/fftkernel"
	"github.com/shapedsignal/noiseforge/internal/mask"
)

// Default analysis parameters from spec.md §4.4: N=4096, 75% overlap
// (H = N/4).
const (
	BlockSize = 4096
	HopSize   = BlockSize / 4
)

// Processor converts between a host's fixed small block size and the
// internal N=4096 analysis block, applying a composite spectral mask via
// Hann-windowed overlap-add reconstruction. All buffers are pre-allocated
// at construction; Process performs no allocation, so it is safe to drive
// from the real-time audio thread per spec.md §5.
type Processor struct {
	n, h int

	inputRing  *RingBuffer
	outputRing *RingBuffer

	window     []float64
	windowNorm float64

	fft *fftkernel.Kernel

	peekBuf  []float32
	timeRe   []float64
	timeIm   []float64
	windowed []float64

	accumulator []float64
	hopOut      []float32

	currentMask atomic.Pointer[mask.Mask]

	// Diagnostics: counts blocks where the output ring underran (zero
	// fill emitted). Read by the control thread; written only by the
	// audio-thread Process call, so it's a plain counter, not atomic —
	// Process is never called concurrently with itself.
	Underruns uint64
}

// NewProcessor builds a Processor for the fixed N=4096, H=N/4 analysis
// parameters. Both ring buffers have a fixed capacity of 2N (spec.md §4.4
// specifies capacity 2N).
func NewProcessor() (*Processor, error) {
	n := BlockSize
	h := HopSize

	fft, err := fftkernel.New(n)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		n:           n,
		h:           h,
		inputRing:   NewRingBuffer(2 * n),
		outputRing:  NewRingBuffer(2 * n),
		window:      HannWindow(n),
		fft:         fft,
		peekBuf:     make([]float32, n),
		timeRe:      make([]float64, n),
		timeIm:      make([]float64, n),
		windowed:    make([]float64, n),
		accumulator: make([]float64, n),
		hopOut:      make([]float32, h),
	}
	p.windowNorm = windowNorm(p.window)

	unity := make(mask.Mask, n)
	for i := range unity {
		unity[i] = 1
	}
	p.currentMask.Store(&unity)

	return p, nil
}

// N returns the analysis block size.
func (p *Processor) N() int { return p.n }

// Hop returns the OLA hop size (N/4).
func (p *Processor) Hop() int { return p.h }

// LatencySamples returns the fixed processing latency in samples
// (spec.md §4.4 invariant a: N/sr seconds).
func (p *Processor) LatencySamples() int { return p.n }

// SetMask atomically publishes a new composite mask for subsequent
// iterations. Called from the control thread; the audio thread observes
// it via a pointer swap, never a lock (spec.md §5).
func (p *Processor) SetMask(m mask.Mask) {
	cp := append(mask.Mask(nil), m...)
	p.currentMask.Store(&cp)
}

// Process accepts one host-sized input block, advances internal STFT
// state by as many N-sample analysis iterations as the input ring now
// permits, and fills output with a host-sized block of reconstructed
// signal. output is zero-filled past whatever the output ring can supply
// (an underrun), per spec.md §6.
func (p *Processor) Process(input, output []float32) {
	// Output is read before the new input is analyzed: a hop produced by
	// this call is first emitted by the next one, which makes the latency
	// exactly N samples for any host block size that divides N.
	got := p.outputRing.DequeueInto(output)
	if got < len(output) {
		p.Underruns++
		for i := got; i < len(output); i++ {
			output[i] = 0
		}
	}

	p.inputRing.Enqueue(input)

	for p.inputRing.Size() >= p.n {
		p.runIteration()
	}
}

func (p *Processor) runIteration() {
	// Step 1: peek N samples without consuming.
	p.inputRing.PeekInto(p.peekBuf)

	// Step 2: window.
	for i := 0; i < p.n; i++ {
		p.windowed[i] = float64(p.peekBuf[i]) * p.window[i]
	}
	copy(p.timeRe, p.windowed)
	for i := range p.timeIm {
		p.timeIm[i] = 0
	}

	// Step 3: forward FFT.
	p.fft.Forward(p.timeRe, p.timeIm)

	// Step 4: apply composite mask (same real gain to real and imaginary
	// parts).
	m := *p.currentMask.Load()
	for i := 0; i < p.n && i < len(m); i++ {
		g := m[i]
		p.timeRe[i] *= g
		p.timeIm[i] *= g
	}

	// Step 5: inverse FFT; real part is the filtered time-domain signal.
	p.fft.Inverse(p.timeRe, p.timeIm)

	// Step 6: re-window and normalize.
	for i := 0; i < p.n; i++ {
		p.windowed[i] = p.timeRe[i] * p.window[i] / p.windowNorm
	}

	// Step 7: add into overlap accumulator.
	for i := 0; i < p.n; i++ {
		p.accumulator[i] += p.windowed[i]
	}

	// Step 8: emit the oldest H samples.
	for i := 0; i < p.h; i++ {
		p.hopOut[i] = float32(p.accumulator[i])
	}
	p.outputRing.Enqueue(p.hopOut)

	// Step 9: shift left by H, zero-fill the new tail.
	copy(p.accumulator, p.accumulator[p.h:])
	for i := p.n - p.h; i < p.n; i++ {
		p.accumulator[i] = 0
	}

	// Step 10: advance input ring by H, realizing the 75% overlap.
	p.inputRing.Advance(p.h)
}
