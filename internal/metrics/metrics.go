// Package metrics exposes Prometheus gauges/counters for the mix bus,
// analyzer, and offline renderer, grounded on the teacher's
// promauto.NewGaugeVec construction style (prometheus.go).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics owns every Prometheus collector this daemon registers.
type Metrics struct {
	Registry *prometheus.Registry

	tracksActive      prometheus.Gauge
	masterGain        prometheus.Gauge
	analyzerFrameSize prometheus.Gauge
	stftUnderrunsTotal *prometheus.CounterVec

	renderChunksTotal     prometheus.Counter
	renderChunksCompleted prometheus.Counter
	renderChunkRetries    prometheus.Counter
	renderDurationSeconds prometheus.Histogram
	renderActive          prometheus.Gauge

	workerPoolSize prometheus.Gauge
}

// New creates and registers all collectors against a fresh registry
// (exposed as the Registry field, for the Prometheus HTTP handler to serve), rather
// than the global default registry, so multiple Metrics instances -
// including in tests - never collide on duplicate collector names.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates and registers all collectors against reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		tracksActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "noiseforge_tracks_active",
			Help: "Number of tracks currently playing and unmuted.",
		}),
		masterGain: factory.NewGauge(prometheus.GaugeOpts{
			Name: "noiseforge_master_gain_linear",
			Help: "Current master gain (linear).",
		}),
		analyzerFrameSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "noiseforge_analyzer_frame_size",
			Help: "Current real-time analyzer FFT frame size.",
		}),
		stftUnderrunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "noiseforge_stft_underruns_total",
			Help: "Count of STFT processor output-ring underruns, per track.",
		}, []string{"track_id"}),
		renderChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "noiseforge_render_chunks_total",
			Help: "Total chunks submitted across all offline renders.",
		}),
		renderChunksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "noiseforge_render_chunks_completed_total",
			Help: "Total chunks completed (successfully or after retry) across all offline renders.",
		}),
		renderChunkRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "noiseforge_render_chunk_retries_total",
			Help: "Total chunk retry attempts across all offline renders.",
		}),
		renderDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "noiseforge_render_duration_seconds",
			Help:    "Wall-clock duration of completed offline renders.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		renderActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "noiseforge_render_active",
			Help: "1 while an offline render is in progress, else 0.",
		}),
		workerPoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "noiseforge_render_worker_pool_size",
			Help: "Current offline-render worker pool size.",
		}),
	}
}

// SetTracksActive records the current count of playing, unmuted tracks.
func (m *Metrics) SetTracksActive(n int) { m.tracksActive.Set(float64(n)) }

// SetMasterGain records the current master gain.
func (m *Metrics) SetMasterGain(g float64) { m.masterGain.Set(g) }

// SetAnalyzerFrameSize records the analyzer's current N_a.
func (m *Metrics) SetAnalyzerFrameSize(n int) { m.analyzerFrameSize.Set(float64(n)) }

// IncStftUnderrun increments the underrun counter for a track.
func (m *Metrics) IncStftUnderrun(trackID string) { m.stftUnderrunsTotal.WithLabelValues(trackID).Inc() }

// RenderStarted marks an offline render as in progress and records its
// chunk count.
func (m *Metrics) RenderStarted(totalChunks int) {
	m.renderActive.Set(1)
	m.renderChunksTotal.Add(float64(totalChunks))
}

// RenderChunkCompleted increments the completed-chunk counter.
func (m *Metrics) RenderChunkCompleted() { m.renderChunksCompleted.Inc() }

// RenderChunkRetried increments the chunk-retry counter.
func (m *Metrics) RenderChunkRetried() { m.renderChunkRetries.Inc() }

// RenderFinished marks the render as no longer in progress and observes
// its total duration.
func (m *Metrics) RenderFinished(durationSeconds float64) {
	m.renderActive.Set(0)
	m.renderDurationSeconds.Observe(durationSeconds)
}

// SetWorkerPoolSize records the offline-render worker pool's current
// size.
func (m *Metrics) SetWorkerPoolSize(n int) { m.workerPoolSize.Set(float64(n)) }
