package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .infer-dos/config.yml and .infer-dos/config.yaml
// - Load() merges a partial config file with defaults
// - Environment variables override config file values and defaults
// - NewFileLoader() reads an explicit file and fails when it is missing
// - Load() returns error for malformed YAML and invalid values
// - Validate() rejects bad markers, extensions, cache, watch and indent values
// - Validate() reports multiple errors, each reachable through errors.Is
// - IndentString() follows output.indent

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	configDir := filepath.Join(dir, ConfigDir)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	path := filepath.Join(configDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "DurableObject", cfg.Marker.Name)
	assert.Equal(t, "tsconfig.json", cfg.Project.TSConfigName)
	assert.Equal(t, []string{".ts", ".tsx", ".mts", ".cts"}, cfg.Project.Extensions)
	assert.Contains(t, cfg.Project.Ignore, "node_modules/**")
	assert.True(t, cfg.Resolution.NodeModules)
	assert.Equal(t, 2048, cfg.Cache.MaxFiles)
	assert.Equal(t, 300, cfg.Watch.DebounceMS)
	assert.Equal(t, 2, cfg.Output.Indent)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromConfigFile(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"config.yml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, name, `
marker:
  name: WorkerEntrypoint
project:
  tsconfig_name: tsconfig.worker.json
  extensions: [".ts"]
resolution:
  node_modules: false
output:
  indent: 0
`)

			cfg, err := NewLoader(dir).Load()
			require.NoError(t, err)

			assert.Equal(t, "WorkerEntrypoint", cfg.Marker.Name)
			assert.Equal(t, "tsconfig.worker.json", cfg.Project.TSConfigName)
			assert.Equal(t, []string{".ts"}, cfg.Project.Extensions)
			assert.False(t, cfg.Resolution.NodeModules)
			assert.Equal(t, 0, cfg.Output.Indent)

			// Untouched sections keep their defaults
			assert.Equal(t, 2048, cfg.Cache.MaxFiles)
			assert.Equal(t, 300, cfg.Watch.DebounceMS)
			assert.Equal(t, Default().Project.Ignore, cfg.Project.Ignore)
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
marker:
  name: FromFile
cache:
  max_files: 10
`)

	t.Setenv("INFER_DOS_MARKER_NAME", "FromEnv")
	t.Setenv("INFER_DOS_WATCH_DEBOUNCE_MS", "50")
	t.Setenv("INFER_DOS_RESOLUTION_NODE_MODULES", "false")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "FromEnv", cfg.Marker.Name)
	assert.Equal(t, 50, cfg.Watch.DebounceMS)
	assert.False(t, cfg.Resolution.NodeModules)
	assert.Equal(t, 10, cfg.Cache.MaxFiles)
}

func TestNewFileLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("marker:\n  name: Custom\n"), 0644))

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "Custom", cfg.Marker.Name)
	assert.Equal(t, 2, cfg.Output.Indent)

	_, err = NewFileLoader(filepath.Join(dir, "missing.yml")).Load()
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	malformed := t.TempDir()
	writeConfig(t, malformed, "config.yml", "marker: [unterminated\n")
	_, err := NewLoader(malformed).Load()
	assert.Error(t, err)

	invalid := t.TempDir()
	writeConfig(t, invalid, "config.yml", "marker:\n  name: \"not valid\"\n")
	_, err = NewLoader(invalid).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMarker))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty marker", func(c *Config) { c.Marker.Name = "" }, ErrInvalidMarker},
		{"marker with space", func(c *Config) { c.Marker.Name = "Durable Object" }, ErrInvalidMarker},
		{"marker starting with digit", func(c *Config) { c.Marker.Name = "1DO" }, ErrInvalidMarker},
		{"empty tsconfig name", func(c *Config) { c.Project.TSConfigName = " " }, ErrEmptyTSConfigName},
		{"extension without dot", func(c *Config) { c.Project.Extensions = []string{"ts"} }, ErrInvalidExtension},
		{"zero cache", func(c *Config) { c.Cache.MaxFiles = 0 }, ErrInvalidCacheSettings},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMS = -1 }, ErrInvalidWatchSettings},
		{"indent too large", func(c *Config) { c.Output.Indent = 9 }, ErrInvalidIndent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidate_AcceptsIdentifiers(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"DurableObject", "_private", "$dollar", "Ünïcode", "Name2"} {
		assert.NoError(t, ValidateMarker(name), name)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Marker.Name = ""
	cfg.Cache.MaxFiles = -1
	cfg.Output.Indent = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.True(t, errors.Is(err, ErrInvalidMarker))
	assert.True(t, errors.Is(err, ErrInvalidCacheSettings))
	assert.True(t, errors.Is(err, ErrInvalidIndent))
}

func TestIndentString(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "  ", cfg.IndentString())
	cfg.Output.Indent = 0
	assert.Equal(t, "", cfg.IndentString())
}
