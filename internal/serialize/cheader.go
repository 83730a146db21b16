package serialize

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// CHeaderConfig parameterizes the emitted C header (spec.md §4.11).
type CHeaderConfig struct {
	// Filename is used only to derive the include guard; it is not
	// opened or written to by this package.
	Filename     string
	SampleRate   int
	SilenceMS    float64
	BuffersPerSec int
}

var guardSanitizer = regexp.MustCompile(`[^A-Za-z0-9]`)

func includeGuard(filename string) string {
	base := filename
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	g := guardSanitizer.ReplaceAllString(strings.ToUpper(base), "_")
	return g + "_H"
}

// WriteCHeader emits buffers as `int16_t buffer1..bufferN[]` arrays plus
// the macro/silence/pointer-table boilerplate of spec.md §4.11. Every
// buffer must have the same length (monoSamples).
//
// STEREO_SAMPLES is emitted for output-side (stereo playback path)
// compatibility even though every emitted array is mono int16 — see
// spec.md §9 Open Question 5.
func WriteCHeader(w io.Writer, buffers [][]int16, cfg CHeaderConfig) error {
	if len(buffers) == 0 {
		return fmt.Errorf("serialize: no buffers to emit")
	}
	monoSamples := len(buffers[0])
	for _, b := range buffers {
		if len(b) != monoSamples {
			return fmt.Errorf("serialize: buffer length mismatch: %d vs %d", len(b), monoSamples)
		}
	}
	stereoSamples := monoSamples * 2
	silenceSamples := int(cfg.SilenceMS * float64(cfg.SampleRate) / 1000)

	guard := includeGuard(cfg.Filename)
	bw := &bufWriter{w: w}

	bw.line("#ifndef %s", guard)
	bw.line("#define %s", guard)
	bw.line("")
	bw.line("#define SAMPLE_RATE %d", cfg.SampleRate)
	bw.line("#define NUM_BUFFERS %d", len(buffers))
	bw.line("#define MONO_SAMPLES %d", monoSamples)
	bw.line("#define STEREO_SAMPLES %d", stereoSamples)
	bw.line("#define SILENCE_SAMPLES %d", silenceSamples)
	bw.line("")

	for i, b := range buffers {
		bw.line("static const int16_t buffer%d[%d] = {", i+1, monoSamples)
		writeInt16Rows(bw, b)
		bw.line("};")
		bw.line("")
	}

	stereoSilenceSamples := silenceSamples * 2
	bw.line("static const int16_t silenceBuffer[%d] = {", stereoSilenceSamples)
	writeInt16Rows(bw, make([]int16, stereoSilenceSamples))
	bw.line("};")
	bw.line("")

	bw.line("static const int16_t *noiseBuffers[NUM_BUFFERS] = {")
	for i := range buffers {
		comma := ","
		if i == len(buffers)-1 {
			comma = ""
		}
		bw.line("    buffer%d%s", i+1, comma)
	}
	bw.line("};")
	bw.line("")
	bw.line("#endif // %s", guard)

	return bw.err
}

// writeInt16Rows writes eight values per line, each right-justified to
// six characters, comma-separated (spec.md §4.11).
func writeInt16Rows(bw *bufWriter, vals []int16) {
	const perLine = 8
	for i := 0; i < len(vals); i += perLine {
		end := i + perLine
		if end > len(vals) {
			end = len(vals)
		}
		row := vals[i:end]
		parts := make([]string, len(row))
		for j, v := range row {
			parts[j] = fmt.Sprintf("%6d", v)
		}
		suffix := ","
		if end == len(vals) {
			suffix = ""
		}
		bw.line("    %s%s", strings.Join(parts, ", "), suffix)
	}
}

// bufWriter accumulates the first write error so callers can check it
// once at the end instead of threading err through every line call.
type bufWriter struct {
	w   io.Writer
	err error
}

func (b *bufWriter) line(format string, args ...any) {
	if b.err != nil {
		return
	}
	_, err := fmt.Fprintf(b.w, format+"\n", args...)
	if err != nil {
		b.err = err
	}
}
