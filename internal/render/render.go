// Package render implements the offline renderer of spec.md §4.9: bulk
// FFT filtering of a full noise buffer (direct mode) or of independent
// time chunks dispatched across a worker pool (chunked mode), selected by
// an estimated memory threshold.
package render

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/shapedsignal/noiseforge/internal/errs"
	"github.com/shapedsignal/noiseforge/internal/fftkernel"
	"github.com/shapedsignal/noiseforge/internal/filterchain"
	"github.com/shapedsignal/noiseforge/internal/noise"
	"github.com/shapedsignal/noiseforge/internal/track"
)

// directModeThresholdBytes is the estimated-memory cutoff above which the
// renderer switches to chunked mode (spec.md §4.9: "estimate memory ≈
// 5·T·sr·4 bytes. If > 500 MiB use chunked mode").
const directModeThresholdBytes = 500 * 1024 * 1024

// BoundaryMode selects how chunked mode stitches chunk boundaries
// together. Open Question 1 in spec.md §9 leaves this unresolved; both
// behaviors are implemented and selectable (see DESIGN.md).
type BoundaryMode int

const (
	// ChunkBoundaryIndependent applies each chunk's filters via its own
	// independent bulk FFT and concatenates outputs with no blending,
	// matching spec.md §4.9's literal description (discontinuities are a
	// known, accepted artifact for narrow-bandwidth filters).
	ChunkBoundaryIndependent BoundaryMode = iota
	// ChunkBoundaryOLA overlaps adjacent chunks by olaOverlapSamples (256)
	// samples and linearly cross-fades the overlap region, trading a small compute and
	// memory overhead for continuity across chunk boundaries.
	ChunkBoundaryOLA
)

// EstimateMemoryBytes returns spec.md §4.9's memory estimate for
// rendering durationSeconds at sampleRate: 5 buffers (noise, 2×FFT
// work arrays, output, scratch) of 4-byte samples.
func EstimateMemoryBytes(durationSeconds, sampleRate float64) float64 {
	return 5 * durationSeconds * sampleRate * 4
}

// Phase names reported via Progress (spec.md §4.9: "phase ∈ {starting,
// processing, finalizing}"), plus a terminal "complete"/"cancelled" value
// this implementation adds so a consumer can distinguish a finished
// render from one still finalizing.
const (
	PhaseStarting   = "starting"
	PhaseProcessing = "processing"
	PhaseFinalizing = "finalizing"
	PhaseComplete   = "complete"
	PhaseCancelled  = "cancelled"
)

// Progress reports render status for a long-running offline render
// (spec.md §4.9's worker pool progress reporting contract). RenderID
// identifies the Render call this progress belongs to, so a consumer
// watching several concurrent renders (e.g. telemetry or a log stream)
// can attribute each update without inventing its own correlation id.
type Progress struct {
	RenderID           string
	Phase              string
	ChunksCompleted    int
	ChunksTotal        int
	OverallProgressPct float64
}

// ProgressFunc receives Progress updates. Called from the renderer's
// coordinating goroutine, never concurrently.
type ProgressFunc func(Progress)

// Options configures a render beyond the default mode selection.
type Options struct {
	// Boundary selects chunked-mode stitching. Ignored in direct mode.
	Boundary BoundaryMode
	// Parallel requests worker-pool dispatch for chunked mode (spec.md
	// §4.9: "when ≥ 2 chunks and worker support is available"). When
	// false, chunks run sequentially on the calling goroutine.
	Parallel bool
	// MaxWorkers overrides the worker pool size; 0 selects
	// min(hardware_concurrency, 8) automatically.
	MaxWorkers int
	// Progress, if non-nil, receives progress updates.
	Progress ProgressFunc
}

// Render produces T seconds of the given tracks' mix at sampleRate,
// selecting direct or chunked mode per spec.md §4.9's memory threshold.
func Render(ctx context.Context, tracks []track.Snapshot, sampleRate, durationSeconds float64, opts Options) ([]float32, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: non-positive duration", errs.ErrBadParameter)
	}

	renderID := uuid.NewString()

	estBytes := EstimateMemoryBytes(durationSeconds, sampleRate)
	totalSamples := int(math.Round(durationSeconds * sampleRate))

	if opts.Progress != nil {
		opts.Progress(Progress{RenderID: renderID, Phase: PhaseStarting, ChunksTotal: 0})
	}

	if estBytes <= directModeThresholdBytes {
		out, err := renderDirect(ctx, tracks, sampleRate, totalSamples, 0)
		reportDone(opts.Progress, renderID, err)
		return out, err
	}

	out, err := renderChunked(ctx, tracks, sampleRate, totalSamples, renderID, opts)
	reportDone(opts.Progress, renderID, err)
	return out, err
}

func reportDone(p ProgressFunc, renderID string, err error) {
	if p == nil {
		return
	}
	if err != nil {
		p(Progress{RenderID: renderID, Phase: PhaseCancelled, OverallProgressPct: 100})
		return
	}
	p(Progress{RenderID: renderID, Phase: PhaseComplete, OverallProgressPct: 100})
}

// renderDirect implements spec.md §4.9 direct mode: per enabled track,
// generate a full T·sr-sample noise buffer, filter it with a single bulk
// FFT sized to the next power of two ≥ buffer length, apply gain, and sum
// into the mix. globalOffset is this buffer's position, in samples, on
// the track's overall noise stream — nonzero when called per-chunk by
// the chunked renderer, so each chunk continues rather than restarts the
// stream (spec.md §8 property 10, chunked/direct equivalence).
func renderDirect(ctx context.Context, tracks []track.Snapshot, sampleRate float64, nSamples int, globalOffset int64) ([]float32, error) {
	mix := make([]float32, nSamples)
	for _, tr := range tracks {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrCancelled, ctx.Err())
		}
		if !tr.Playing || tr.Muted {
			continue
		}
		buf, err := renderTrackBuffer(tr, sampleRate, nSamples, globalOffset)
		if err != nil {
			return nil, err
		}
		gain := float32(tr.Gain)
		for i := range mix {
			mix[i] += buf[i] * gain
		}
	}
	return mix, nil
}

// renderTrackBuffer generates nSamples of white noise for tr starting at
// globalOffset samples into its stream, applies its composite filter mask
// via a single bulk FFT/IFFT pass, and returns the filtered buffer
// trimmed back to nSamples.
func renderTrackBuffer(tr track.Snapshot, sampleRate float64, nSamples int, globalOffset int64) ([]float32, error) {
	src := noise.NewLCG(tr.Seed)
	src.Skip(globalOffset)
	raw := make([]float32, nSamples)
	src.Fill(raw)

	if len(tr.Filters) == 0 {
		return raw, nil
	}

	n := nextPowerOfTwo(nSamples)
	fft, err := fftkernel.New(n)
	if err != nil {
		return nil, err
	}

	re := make([]float64, n)
	im := make([]float64, n)
	for i := 0; i < nSamples; i++ {
		re[i] = float64(raw[i])
	}

	fft.Forward(re, im)

	m := filterchain.CompositeAt(tr.Filters, n, sampleRate)
	for i := 0; i < n; i++ {
		re[i] *= m[i]
		im[i] *= m[i]
	}

	fft.Inverse(re, im)

	out := make([]float32, nSamples)
	for i := 0; i < nSamples; i++ {
		out[i] = float32(re[i])
	}
	return out, nil
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	if p < 2 {
		p = 2
	}
	return p
}
