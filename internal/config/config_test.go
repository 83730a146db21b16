package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "schema_version: \"1.0.0\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 48000.0, cfg.Audio.SampleRate)
	require.Equal(t, 128, cfg.Audio.BlockSize)
	require.Equal(t, 1.0, cfg.Audio.MasterGain)
	require.Equal(t, 4096, cfg.Analyzer.FrameSize)
	require.Equal(t, "log", cfg.Analyzer.Scale)
	require.Equal(t, "wav", cfg.Export.OutputFormat)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestLoadRejectsBadBlockSize(t *testing.T) {
	path := writeTempConfig(t, "audio:\n  block_size: 100\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownFilterType(t *testing.T) {
	path := writeTempConfig(t, `
tracks:
  - name: pink
    filters:
      - type: notch
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadWarnsOnNewerMajorSchemaVersion(t *testing.T) {
	path := writeTempConfig(t, "schema_version: \"2.0.0\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "2.0.0", cfg.SchemaVersion)
}

func TestLoadRejectsUnparseableSchemaVersion(t *testing.T) {
	path := writeTempConfig(t, "schema_version: \"not-a-version\"\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAcceptsSameMajorNewerMinor(t *testing.T) {
	path := writeTempConfig(t, "schema_version: \"1.5.0\"\n")
	_, err := Load(path)
	require.NoError(t, err)
}

func TestLoadParsesTracksAndFilters(t *testing.T) {
	path := writeTempConfig(t, `
tracks:
  - name: pink
    gain: 0.8
    filters:
      - type: plateau
        center_freq: 1000
        width: 400
        enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tracks, 1)
	require.Equal(t, "pink", cfg.Tracks[0].Name)
	require.Equal(t, 0.8, cfg.Tracks[0].Gain)
	require.Len(t, cfg.Tracks[0].Filters, 1)
	require.Equal(t, "plateau", cfg.Tracks[0].Filters[0].Type)
}
