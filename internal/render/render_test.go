package render

import (
	"context"
	"testing"

	"github.com/shapedsignal/noiseforge/internal/filterchain"
	"github.com/shapedsignal/noiseforge/internal/mask"
	"github.com/shapedsignal/noiseforge/internal/track"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000.0

func playingTrack(id int, seed int64, withFilter bool) track.Snapshot {
	s := track.Snapshot{ID: id, Gain: 1.0, Muted: false, Playing: true, Seed: seed}
	if withFilter {
		cfg := mask.DefaultConfig(mask.Plateau)
		s.Filters = []filterchain.FilterSnapshot{{Config: cfg, Enabled: true}}
	}
	return s
}

func TestEstimateMemoryBytesMatchesFormula(t *testing.T) {
	got := EstimateMemoryBytes(10, 48000)
	require.Equal(t, 5*10*48000*4.0, got)
}

func TestModeSelectionUsesDirectBelowThreshold(t *testing.T) {
	tracks := []track.Snapshot{playingTrack(0, 1, false)}
	out, err := Render(context.Background(), tracks, testSampleRate, 0.1, Options{})
	require.NoError(t, err)
	require.Len(t, out, int(0.1*testSampleRate))
}

func TestMutedAndStoppedTracksContributeSilence(t *testing.T) {
	muted := track.Snapshot{ID: 0, Gain: 1, Muted: true, Playing: true, Seed: 1}
	stopped := track.Snapshot{ID: 1, Gain: 1, Muted: false, Playing: false, Seed: 2}
	out, err := Render(context.Background(), []track.Snapshot{muted, stopped}, testSampleRate, 0.05, Options{})
	require.NoError(t, err)
	for _, v := range out {
		require.Equal(t, float32(0), v)
	}
}

func TestRenderRejectsNonPositiveDuration(t *testing.T) {
	_, err := Render(context.Background(), nil, testSampleRate, 0, Options{})
	require.Error(t, err)
}

func TestPartitionChunksCoversFullRange(t *testing.T) {
	jobs := partitionChunks(1000, 300, 0)
	total := 0
	for _, j := range jobs {
		total += j.length
	}
	require.Equal(t, 1000, total)
}

func TestPartitionChunksWithOverlapExtendsLaterJobs(t *testing.T) {
	jobs := partitionChunks(1000, 300, 50)
	require.Equal(t, 0, jobs[0].start)
	require.Equal(t, 300, jobs[0].length)
	require.Equal(t, 300-50, jobs[1].start)
	require.Equal(t, 350, jobs[1].length)
}

func TestChunkedIndependentMatchesDirectForPassThrough(t *testing.T) {
	tracks := []track.Snapshot{playingTrack(0, 42, false)}
	direct, err := renderDirect(context.Background(), tracks, testSampleRate, 2000, 0)
	require.NoError(t, err)

	chunked, err := renderChunked(context.Background(), tracks, testSampleRate, 2000, "test-render", Options{Boundary: ChunkBoundaryIndependent})
	require.NoError(t, err)
	require.Equal(t, direct, chunked)
}

// TestRenderTrackBufferContinuesNoiseStreamAcrossOffset exercises the
// property the chunked renderer depends on: rendering a track's buffer
// in two pieces at the right global offsets must reproduce exactly the
// buffer rendered in one piece, so multi-chunk offline renders don't
// replay the same noise from sample zero in every chunk.
func TestRenderTrackBufferContinuesNoiseStreamAcrossOffset(t *testing.T) {
	tracks := []track.Snapshot{playingTrack(0, 1234, false)}

	whole, err := renderDirect(context.Background(), tracks, testSampleRate, 5000, 0)
	require.NoError(t, err)

	first, err := renderDirect(context.Background(), tracks, testSampleRate, 3000, 0)
	require.NoError(t, err)
	second, err := renderDirect(context.Background(), tracks, testSampleRate, 2000, 3000)
	require.NoError(t, err)

	require.Equal(t, whole, append(first, second...))
}

// TestChunkedMultiChunkMatchesDirectForPassThrough forces the renderer
// through more than one chunk (by requesting parallel chunking, which
// uses the shorter 10s chunk duration) and checks the chunked/direct
// equivalence property holds end-to-end, not just within a single
// chunk's worth of samples.
func TestChunkedMultiChunkMatchesDirectForPassThrough(t *testing.T) {
	tracks := []track.Snapshot{playingTrack(0, 55, false)}
	total := int(10.5 * testSampleRate) // spans two 10s parallel chunks

	direct, err := renderDirect(context.Background(), tracks, testSampleRate, total, 0)
	require.NoError(t, err)

	chunked, err := renderChunked(context.Background(), tracks, testSampleRate, total, "test-render", Options{Parallel: true, Boundary: ChunkBoundaryIndependent, MaxWorkers: 2})
	require.NoError(t, err)
	require.Equal(t, direct, chunked)
}

func TestWorkerPoolSizeBoundedByEight(t *testing.T) {
	require.LessOrEqual(t, workerPoolSize(), maxWorkers)
	require.GreaterOrEqual(t, workerPoolSize(), 1)
}

func TestCancellationPropagatesCancelledError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracks := []track.Snapshot{playingTrack(0, 1, false)}
	_, err := Render(ctx, tracks, testSampleRate, 0.05, Options{})
	require.Error(t, err)
}

func TestParallelDispatchAssemblesInOrder(t *testing.T) {
	tracks := []track.Snapshot{playingTrack(0, 9, false)}
	out, err := renderChunked(context.Background(), tracks, testSampleRate, 2000, "test-render", Options{Parallel: true, Boundary: ChunkBoundaryIndependent, MaxWorkers: 2})
	require.NoError(t, err)
	require.Len(t, out, 2000)
}

func TestProgressCallbackReceivesCompletion(t *testing.T) {
	var phases []string
	tracks := []track.Snapshot{playingTrack(0, 1, false)}
	_, err := Render(context.Background(), tracks, testSampleRate, 0.05, Options{
		Progress: func(p Progress) { phases = append(phases, p.Phase) },
	})
	require.NoError(t, err)
	require.Contains(t, phases, PhaseComplete)
}

func TestProgressCallbackCarriesConsistentRenderID(t *testing.T) {
	var ids []string
	tracks := []track.Snapshot{playingTrack(0, 1, false)}
	_, err := Render(context.Background(), tracks, testSampleRate, 0.05, Options{
		Progress: func(p Progress) { ids = append(ids, p.RenderID) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	require.NotEmpty(t, ids[0])
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestSuccessiveRendersGetDistinctRenderIDs(t *testing.T) {
	tracks := []track.Snapshot{playingTrack(0, 1, false)}
	var first, second string
	_, err := Render(context.Background(), tracks, testSampleRate, 0.05, Options{
		Progress: func(p Progress) { first = p.RenderID },
	})
	require.NoError(t, err)
	_, err = Render(context.Background(), tracks, testSampleRate, 0.05, Options{
		Progress: func(p Progress) { second = p.RenderID },
	})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
