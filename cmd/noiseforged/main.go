// Command noiseforged is the long-running noise-generator daemon: it
// wires together the mix bus, real-time analyzer, control plane, metrics,
// telemetry, and network sinks, then drives the mix at the configured
// host block cadence. Composition follows the teacher's main.go: flag
// parsing, sequential subsystem construction with log.Fatalf on hard
// failures and log.Printf warnings on soft ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shapedsignal/noiseforge/internal/analyzer"
	"github.com/shapedsignal/noiseforge/internal/config"
	"github.com/shapedsignal/noiseforge/internal/controlplane"
	"github.com/shapedsignal/noiseforge/internal/mask"
	"github.com/shapedsignal/noiseforge/internal/metrics"
	"github.com/shapedsignal/noiseforge/internal/mixer"
	"github.com/shapedsignal/noiseforge/internal/netsink"
	"github.com/shapedsignal/noiseforge/internal/serialize"
	"github.com/shapedsignal/noiseforge/internal/session"
	"github.com/shapedsignal/noiseforge/internal/stft"
	"github.com/shapedsignal/noiseforge/internal/telemetry"
)

// DebugMode gates verbose DEBUG: prefixed log lines, matching the
// teacher's package-level flag (main.go: "Global debug flag").
var DebugMode bool

func debugf(format string, args ...any) {
	if DebugMode {
		log.Printf("DEBUG: "+format, args...)
	}
}

// controlSessionTimeout bounds how long an idle control-plane client's
// session bookkeeping entry survives.
const controlSessionTimeout = 5 * time.Minute

func main() {
	configPath := flag.String("config", "noiseforge.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	DebugMode = *debug
	if v := os.Getenv("DEBUG"); v != "" {
		DebugMode = v == "true" || v == "1" || v == "yes"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting noiseforged...")
	log.Printf("Sample rate: %.0f Hz, block size: %d", cfg.Audio.SampleRate, cfg.Audio.BlockSize)

	bus, err := buildMixBus(cfg)
	if err != nil {
		log.Fatalf("Failed to build mix bus: %v", err)
	}

	an := analyzer.New(cfg.Audio.SampleRate)
	if err := an.SetFrameSize(orDefault(cfg.Analyzer.FrameSize, 4096)); err != nil {
		log.Printf("Warning: invalid analyzer.frame_size %d, using 4096: %v", cfg.Analyzer.FrameSize, err)
	}
	an.SetSmoothing(cfg.Analyzer.Smoothing)
	if cfg.Analyzer.MovingAverage > 0 {
		an.SetMovingAverage(cfg.Analyzer.MovingAverage)
	}
	if cfg.Analyzer.Scale == "linear" {
		an.SetScale(analyzer.ScaleLinear)
	}

	levels := newLevelTracker()

	var hub *netsink.Hub
	if cfg.Netsink.WebSocketListen != "" {
		hub = netsink.NewHub()
	}

	var rtpSender *netsink.RTPSender
	if cfg.Netsink.RTPTarget != "" {
		rtpSender, err = netsink.NewRTPSender(cfg.Netsink.RTPTarget, 96)
		if err != nil {
			log.Printf("Warning: RTP sink disabled: %v", err)
		} else {
			defer rtpSender.Close()
		}
	}
	var opusEnc *netsink.OpusEncoder
	if cfg.Netsink.OpusEnabled {
		opusEnc = netsink.NewOpusEncoder(int(cfg.Audio.SampleRate), 32000)
		if !opusEnc.IsEnabled() {
			log.Printf("Warning: Opus encoding requested but unavailable; RTP sink will carry raw PCM")
		}
	}

	bus.SetAnalyzerTap(func(mix []float32) {
		an.Feed(mix)
		levels.update(mix)
	})

	var met *metrics.Metrics
	if cfg.Prometheus.Enabled {
		met = metrics.New()
		go serveMetrics(cfg.Prometheus.Listen, met)
	}

	var pub *telemetry.Publisher
	if cfg.MQTT.Enabled {
		pub, err = telemetry.New(telemetry.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain,
		})
		if err != nil {
			log.Printf("Warning: MQTT telemetry disabled: %v", err)
			pub = nil
		} else {
			defer pub.Close()
			go publishLevelsLoop(pub, levels)
		}
	}

	var sessions *session.Manager
	if cfg.MCP.Enabled {
		sessions = session.NewManager(controlSessionTimeout)
		defer sessions.Shutdown()

		srv := controlplane.New(bus, an, cfg.Audio.BlockSize)
		mux := http.NewServeMux()
		mux.Handle("/mcp", sessionMiddleware(sessions, srv.HandleMCP))
		go serveHTTP("control plane", cfg.MCP.Listen, mux)
	}

	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/ws/spectrum", hub)
		go serveHTTP("websocket spectrum sink", cfg.Netsink.WebSocketListen, mux)
	}

	if cfg.Audio.RealtimePriority {
		stft.ElevatePriority()
	}

	bus.StartAll()
	log.Printf("Mix bus running: %d track(s), master gain %.2f", len(bus.Snapshots()), bus.MasterGain())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runRealtimeLoop(ctx, bus, an, hub, rtpSender, opusEnc, met, cfg)

	log.Printf("noiseforged shutting down")
	bus.StopAll()
}

func orDefault(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}

// buildMixBus constructs the mix bus and its initial tracks/filters from
// the loaded configuration.
func buildMixBus(cfg *config.Config) (*mixer.MixBus, error) {
	bus := mixer.New(cfg.Audio.SampleRate)
	bus.SetMasterGain(cfg.Audio.MasterGain)

	for _, tc := range cfg.Tracks {
		id, err := bus.Add()
		if err != nil {
			return nil, fmt.Errorf("adding track %q: %w", tc.Name, err)
		}
		tr, err := bus.Track(id)
		if err != nil {
			return nil, err
		}
		tr.SetGain(tc.Gain)
		tr.SetMuted(tc.Muted)

		for _, fc := range tc.Filters {
			ft, ok := filterType(fc.Type)
			if !ok {
				return nil, fmt.Errorf("track %q: unknown filter type %q", tc.Name, fc.Type)
			}
			idx := tr.AddFilter(ft, &mask.Config{
				Type:       ft,
				CenterFreq: fc.CenterFreq,
				Width:      fc.Width,
				GainDB:     fc.GainDB,
				FlatWidth:  fc.FlatWidth,
				Skew:       fc.Skew,
				Kurtosis:   fc.Kurtosis,
				Flatness:   fc.Flatness,
			})
			if err := tr.SetFilterEnabled(idx, fc.Enabled); err != nil {
				return nil, err
			}
		}
	}
	return bus, nil
}

func filterType(s string) (mask.Type, bool) {
	switch s {
	case "plateau":
		return mask.Plateau, true
	case "gaussian":
		return mask.Gaussian, true
	case "parabolic":
		return mask.Parabolic, true
	default:
		return 0, false
	}
}

// sessionMiddleware attributes each request to a control-plane session,
// creating one on first contact (keyed by an X-Session-Id request header
// if present, else a fresh one minted and returned to the client) and
// touching it on every subsequent call, mirroring the teacher's
// per-request session touch in its HTTP handlers.
func sessionMiddleware(sessions *session.Manager, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Session-Id")
		if _, ok := sessions.Get(id); ok {
			sessions.Touch(id)
		} else {
			id = sessions.Create(r.RemoteAddr, r.UserAgent()).ID
		}
		w.Header().Set("X-Session-Id", id)
		next(w, r)
	})
}

func serveHTTP(name, addr string, handler http.Handler) {
	log.Printf("%s listening on %s", name, addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Printf("Warning: %s server stopped: %v", name, err)
	}
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	serveHTTP("Prometheus metrics", addr, mux)
}

// runRealtimeLoop simulates the audio host's callback cadence in the
// absence of a physical device: it advances the mix bus one block at a
// time, paced to the configured sample rate and block size, and feeds
// every configured sink. Ctx cancellation (SIGINT/SIGTERM) stops the loop.
func runRealtimeLoop(ctx context.Context, bus *mixer.MixBus, an *analyzer.Analyzer, hub *netsink.Hub, rtp *netsink.RTPSender, opus *netsink.OpusEncoder, met *metrics.Metrics, cfg *config.Config) {
	block := make([]float32, cfg.Audio.BlockSize)
	blockDuration := time.Duration(float64(cfg.Audio.BlockSize) / cfg.Audio.SampleRate * float64(time.Second))
	ticker := time.NewTicker(blockDuration)
	defer ticker.Stop()

	spectrumEvery := int(cfg.Audio.SampleRate / float64(cfg.Audio.BlockSize) / 20) // ~20 Hz
	if spectrumEvery < 1 {
		spectrumEvery = 1
	}
	blocksSinceSpectrum := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bus.Process(block)

			if rtp != nil {
				int16s := make([]int16, len(block))
				for i, s := range block {
					int16s[i] = serialize.ToInt16(s)
				}
				var sendErr error
				if opus != nil && opus.IsEnabled() {
					encoded, err := opus.Encode(int16s)
					if err == nil {
						sendErr = rtp.SendPayload(encoded, uint32(len(int16s)))
					} else {
						sendErr = err
					}
				} else {
					sendErr = rtp.SendBlock(int16s)
				}
				if sendErr != nil {
					debugf("RTP send failed: %v", sendErr)
				}
			}

			blocksSinceSpectrum++
			if hub != nil && blocksSinceSpectrum >= spectrumEvery {
				blocksSinceSpectrum = 0
				hub.Broadcast(netsink.AnalyzerFrame{
					TimestampMs: time.Now().UnixMilli(),
					PixelWidth:  256,
					Columns:     an.GetDisplayData(256),
				})
			}

			if met != nil {
				active := 0
				for _, sn := range bus.Snapshots() {
					if sn.Playing && !sn.Muted {
						active++
					}
				}
				met.SetTracksActive(active)
				met.SetMasterGain(bus.MasterGain())
				met.SetAnalyzerFrameSize(an.FrameSize())
			}
		}
	}
}
