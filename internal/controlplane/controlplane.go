// Package controlplane exposes the mix bus's configuration channel over
// the Model Context Protocol, grounded on the teacher's MCPServer
// (mcp_server.go): one server.NewMCPServer instance, tools registered
// via mcp.NewTool/AddTool, and a StreamableHTTPServer wrapper for
// transport.
package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shapedsignal/noiseforge/internal/analyzer"
	"github.com/shapedsignal/noiseforge/internal/mask"
	"github.com/shapedsignal/noiseforge/internal/mixer"
)

// Server implements the configuration channel's three operations --
// config, get_performance, get_fft_info -- as MCP tools.
type Server struct {
	bus        *mixer.MixBus
	an         *analyzer.Analyzer
	blockSize  int
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// ConfigResponse is the typed response body for all three operations,
// mirroring the {initialized, performance, fft_info, error} shape of
// the configuration channel.
type ConfigResponse struct {
	Initialized bool             `json:"initialized"`
	Performance *PerformanceInfo `json:"performance,omitempty"`
	FFTInfo     *FFTInfo         `json:"fft_info,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// PerformanceInfo reports mix-bus and analyzer state.
type PerformanceInfo struct {
	TracksActive  int     `json:"tracks_active"`
	MasterGain    float64 `json:"master_gain"`
	AnalyzerFrame int     `json:"analyzer_frame_size"`
}

// FFTInfo reports the fixed real-time block size and the analyzer's
// configurable frame size range.
type FFTInfo struct {
	BlockSize          int     `json:"block_size"`
	SampleRate         float64 `json:"sample_rate"`
	AnalyzerFrameSize  int     `json:"analyzer_frame_size"`
	ValidAnalyzerSizes []int   `json:"valid_analyzer_sizes"`
}

// New builds a Server for the given mix bus, analyzer, and real-time
// block size, registers its tools, and wraps them in an HTTP transport.
func New(bus *mixer.MixBus, an *analyzer.Analyzer, blockSize int) *Server {
	s := &Server{bus: bus, an: an, blockSize: blockSize}

	s.mcpServer = server.NewMCPServer(
		"noiseforge",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("config",
			mcp.WithDescription("Mutate a filter instance's parameters on a running track. Unset fields are left unchanged; out-of-range values are clamped rather than rejected."),
			mcp.WithNumber("track_id", mcp.Description("Target track id.")),
			mcp.WithNumber("filter_index", mcp.Description("Index of the filter instance within the track's chain.")),
			mcp.WithString("center_freq", mcp.Description("New center_freq in Hz, or empty to leave unchanged.")),
			mcp.WithString("width", mcp.Description("New width in Hz, or empty to leave unchanged.")),
			mcp.WithString("gain_db", mcp.Description("New gain_db, or empty to leave unchanged.")),
			mcp.WithString("flat_width", mcp.Description("Plateau flat_width in Hz, or empty to leave unchanged.")),
			mcp.WithString("skew", mcp.Description("Gaussian skew, or empty to leave unchanged.")),
			mcp.WithString("kurtosis", mcp.Description("Gaussian kurtosis, or empty to leave unchanged.")),
			mcp.WithString("flatness", mcp.Description("Parabolic flatness, or empty to leave unchanged.")),
			mcp.WithString("enabled", mcp.Description("'true' or 'false' to set the instance's enabled flag, or empty to leave unchanged.")),
		),
		s.handleConfig,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_performance",
			mcp.WithDescription("Get the current mix bus performance snapshot: active track count, master gain, and analyzer frame size."),
		),
		s.handleGetPerformance,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_fft_info",
			mcp.WithDescription("Get the real-time block size, sample rate, and analyzer FFT frame size."),
		),
		s.handleGetFFTInfo,
	)
}

// HandleMCP serves MCP protocol requests over HTTP.
func (s *Server) HandleMCP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.ServeHTTP(w, r)
}

func (s *Server) handleConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trackID := int(request.GetFloat("track_id", -1))
	filterIndex := int(request.GetFloat("filter_index", -1))

	if trackID < 0 || filterIndex < 0 {
		return errorResult("track_id and filter_index are required")
	}

	tr, err := s.bus.Track(trackID)
	if err != nil {
		return errorResult(fmt.Sprintf("track %d: %v", trackID, err))
	}

	fields := map[string]string{
		"center_freq": request.GetString("center_freq", ""),
		"width":       request.GetString("width", ""),
		"gain_db":     request.GetString("gain_db", ""),
		"flat_width":  request.GetString("flat_width", ""),
		"skew":        request.GetString("skew", ""),
		"kurtosis":    request.GetString("kurtosis", ""),
		"flatness":    request.GetString("flatness", ""),
	}

	for name, raw := range fields {
		if raw == "" {
			continue
		}
		var value float64
		if _, err := fmt.Sscanf(raw, "%g", &value); err != nil {
			return errorResult(fmt.Sprintf("parsing %s=%q: %v", name, raw, err))
		}
		if _, err := tr.SetFilterParameter(filterIndex, name, value); err != nil {
			return errorResult(err.Error())
		}
	}

	if enabled := request.GetString("enabled", ""); enabled != "" {
		if err := tr.SetFilterEnabled(filterIndex, enabled == "true"); err != nil {
			return errorResult(err.Error())
		}
	}

	cfg, err := tr.Chain().ConfigAt(filterIndex)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(ConfigResponse{Initialized: true}, configReadBack{FilterIndex: filterIndex, Config: cfg})
}

// configReadBack surfaces the instance's clamped configuration after a
// config call, per spec.md §4.5's read-back requirement.
type configReadBack struct {
	FilterIndex int         `json:"filter_index"`
	Config      mask.Config `json:"config"`
}

func (s *Server) handleGetPerformance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snaps := s.bus.Snapshots()
	active := 0
	for _, sn := range snaps {
		if sn.Playing && !sn.Muted {
			active++
		}
	}
	perf := PerformanceInfo{
		TracksActive:  active,
		MasterGain:    s.bus.MasterGain(),
		AnalyzerFrame: s.an.FrameSize(),
	}
	resp := ConfigResponse{Initialized: true, Performance: &perf}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errorResult(err.Error())
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetFFTInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := FFTInfo{
		BlockSize:          s.blockSize,
		SampleRate:         s.bus.SampleRate(),
		AnalyzerFrameSize:  s.an.FrameSize(),
		ValidAnalyzerSizes: append([]int(nil), analyzer.ValidSizes[:]...),
	}
	resp := ConfigResponse{Initialized: true, FFTInfo: &info}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errorResult(err.Error())
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(msg string) (*mcp.CallToolResult, error) {
	resp := ConfigResponse{Initialized: false, Error: msg}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(msg), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonResult(resp ConfigResponse, readBack any) (*mcp.CallToolResult, error) {
	payload := struct {
		ConfigResponse
		ReadBack any `json:"read_back"`
	}{ConfigResponse: resp, ReadBack: readBack}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(err.Error())
	}
	return mcp.NewToolResultText(string(data)), nil
}
