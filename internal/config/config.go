// Package config loads and validates the noise-generator daemon's YAML
// configuration, grounded on the teacher's nested-struct-per-subsystem
// config.go: one Config aggregate, one sub-struct per component, sensible
// defaults applied after unmarshal, and an explicit Validate pass.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

// CurrentSchemaVersion is the schema version this build understands.
// A config declaring a newer major version is not fatal (SPEC_FULL.md
// §1.1: "the daemon logs a warning and continues with best-effort
// defaults rather than refusing to start") — unlike spec.md §7's
// Unsupported, which is reserved for missing audio capabilities.
const CurrentSchemaVersion = "1.0.0"

// Config is the root daemon configuration.
type Config struct {
	SchemaVersion string         `yaml:"schema_version"`
	Audio         AudioConfig    `yaml:"audio"`
	Tracks        []TrackConfig  `yaml:"tracks"`
	Analyzer      AnalyzerConfig `yaml:"analyzer"`
	Export        ExportConfig   `yaml:"export"`
	Prometheus    PrometheusConfig `yaml:"prometheus"`
	MQTT          MQTTConfig     `yaml:"mqtt"`
	MCP           MCPConfig      `yaml:"mcp"`
	Netsink       NetsinkConfig  `yaml:"netsink"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// AudioConfig controls the real-time mix bus.
type AudioConfig struct {
	SampleRate  float64 `yaml:"sample_rate"`
	BlockSize   int     `yaml:"block_size"`   // host callback block size (64, 128, or 256)
	MasterGain  float64 `yaml:"master_gain"`
	RealtimePriority bool `yaml:"realtime_priority"` // attempt SCHED_FIFO elevation on Linux
}

// FilterConfig mirrors mask.Config's fields for YAML round-tripping.
type FilterConfig struct {
	Type       string  `yaml:"type"` // "plateau", "gaussian", "parabolic"
	CenterFreq float64 `yaml:"center_freq"`
	Width      float64 `yaml:"width"`
	GainDB     float64 `yaml:"gain_db"`
	FlatWidth  float64 `yaml:"flat_width,omitempty"`
	Skew       float64 `yaml:"skew,omitempty"`
	Kurtosis   float64 `yaml:"kurtosis,omitempty"`
	Flatness   float64 `yaml:"flatness,omitempty"`
	Enabled    bool    `yaml:"enabled"`
}

// TrackConfig describes one track at startup.
type TrackConfig struct {
	Name    string         `yaml:"name"`
	Gain    float64        `yaml:"gain"`
	Muted   bool           `yaml:"muted"`
	Seed    int64          `yaml:"seed"`
	Filters []FilterConfig `yaml:"filters"`
}

// AnalyzerConfig controls the real-time FFT analyzer.
type AnalyzerConfig struct {
	FrameSize     int     `yaml:"frame_size"`
	Smoothing     float64 `yaml:"smoothing"`
	MovingAverage int     `yaml:"moving_average"`
	Scale         string  `yaml:"scale"` // "log" or "linear"
}

// ExportConfig controls default offline-render parameters.
type ExportConfig struct {
	DurationSeconds float64 `yaml:"duration_seconds"`
	OutputFormat    string  `yaml:"output_format"` // "wav" or "cheader"
	Parallel        bool    `yaml:"parallel"`
	ChunkBoundary   string  `yaml:"chunk_boundary"` // "independent" or "ola"
	FadeInMS        float64 `yaml:"fade_in_ms"`
	FadeOutMS       float64 `yaml:"fade_out_ms"`
	PeakTarget      float64 `yaml:"peak_target"`
}

// PrometheusConfig mirrors the teacher's metrics-endpoint shape.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MQTTConfig mirrors the teacher's MQTT publisher settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

// MCPConfig enables the control-plane tool server.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// NetsinkConfig controls the outbound audio sink(s).
type NetsinkConfig struct {
	WebSocketListen string `yaml:"websocket_listen"`
	RTPTarget       string `yaml:"rtp_target"`
	OpusEnabled     bool   `yaml:"opus_enabled"`
}

// LoggingConfig mirrors the teacher's logging config shape.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
	JSON  bool   `yaml:"json"`
}

// Load reads and parses filename, applies defaults, and validates the
// result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", filename, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 48000
	}
	if c.Audio.BlockSize == 0 {
		c.Audio.BlockSize = 128
	}
	if c.Audio.MasterGain == 0 {
		c.Audio.MasterGain = 1.0
	}
	if c.Analyzer.FrameSize == 0 {
		c.Analyzer.FrameSize = 4096
	}
	if c.Analyzer.Scale == "" {
		c.Analyzer.Scale = "log"
	}
	if c.Export.OutputFormat == "" {
		c.Export.OutputFormat = "wav"
	}
	if c.Export.ChunkBoundary == "" {
		c.Export.ChunkBoundary = "independent"
	}
	if c.Export.PeakTarget == 0 {
		c.Export.PeakTarget = 1.0
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.MCP.Enabled && c.MCP.Listen == "" {
		c.MCP.Listen = ":8090"
	}
	if c.Prometheus.Enabled && c.Prometheus.Listen == "" {
		c.Prometheus.Listen = ":9090"
	}
}

// Validate checks field ranges and enum membership, and compares the
// config's schema_version against CurrentSchemaVersion using
// hashicorp/go-version, warning (not failing) on a newer-major mismatch
// per SPEC_FULL.md §1.1.
func (c *Config) Validate() error {
	if err := c.validateSchemaVersion(); err != nil {
		return err
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive")
	}
	switch c.Audio.BlockSize {
	case 64, 128, 256:
	default:
		return fmt.Errorf("audio.block_size must be one of 64, 128, 256, got %d", c.Audio.BlockSize)
	}
	switch c.Analyzer.Scale {
	case "log", "linear":
	default:
		return fmt.Errorf("analyzer.scale must be 'log' or 'linear', got %q", c.Analyzer.Scale)
	}
	switch c.Export.OutputFormat {
	case "wav", "cheader":
	default:
		return fmt.Errorf("export.output_format must be 'wav' or 'cheader', got %q", c.Export.OutputFormat)
	}
	switch c.Export.ChunkBoundary {
	case "independent", "ola":
	default:
		return fmt.Errorf("export.chunk_boundary must be 'independent' or 'ola', got %q", c.Export.ChunkBoundary)
	}
	for i, tr := range c.Tracks {
		for j, f := range tr.Filters {
			switch f.Type {
			case "plateau", "gaussian", "parabolic":
			default:
				return fmt.Errorf("tracks[%d].filters[%d].type must be plateau/gaussian/parabolic, got %q", i, j, f.Type)
			}
		}
	}
	return nil
}

// validateSchemaVersion checks c.SchemaVersion against CurrentSchemaVersion.
// A malformed version string is a hard error, but a newer major version
// is not (SPEC_FULL.md §1.1): it logs a warning and lets the caller carry
// on with whatever defaults applyDefaults already filled in, mirroring
// the teacher's admin.VersionCheckEnabled compare-and-warn flow rather
// than its hard gate.
func (c *Config) validateSchemaVersion() error {
	declared, err := version.NewVersion(c.SchemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", c.SchemaVersion, err)
	}
	current, err := version.NewVersion(CurrentSchemaVersion)
	if err != nil {
		return fmt.Errorf("internal: invalid CurrentSchemaVersion: %w", err)
	}
	if declared.Segments()[0] > current.Segments()[0] {
		log.Printf("Warning: config schema_version %s is newer than this build supports (%s); continuing with best-effort defaults", c.SchemaVersion, CurrentSchemaVersion)
	}
	return nil
}
