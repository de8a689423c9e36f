package config

import (
	"strings"

	"github.com/mvp-joe/infer-dos/internal/conformance"
	"github.com/mvp-joe/infer-dos/internal/tsconfig"
)

// Config represents the complete infer-dos configuration.
// It can be loaded from .infer-dos/config.yml with environment variable overrides.
type Config struct {
	Marker     MarkerConfig     `yaml:"marker" mapstructure:"marker"`
	Project    ProjectConfig    `yaml:"project" mapstructure:"project"`
	Resolution ResolutionConfig `yaml:"resolution" mapstructure:"resolution"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Watch      WatchConfig      `yaml:"watch" mapstructure:"watch"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
}

// MarkerConfig selects the type classes must conform to.
type MarkerConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// ProjectConfig defines how the TypeScript project is discovered.
type ProjectConfig struct {
	TSConfigName string   `yaml:"tsconfig_name" mapstructure:"tsconfig_name"` // file searched upward from the source
	Extensions   []string `yaml:"extensions" mapstructure:"extensions"`       // source extensions, with leading dot
	Ignore       []string `yaml:"ignore" mapstructure:"ignore"`               // glob patterns to ignore
}

// ResolutionConfig controls module resolution.
type ResolutionConfig struct {
	NodeModules bool `yaml:"node_modules" mapstructure:"node_modules"` // resolve bare specifiers through node_modules
}

// CacheConfig bounds the parse cache.
type CacheConfig struct {
	MaxFiles int `yaml:"max_files" mapstructure:"max_files"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// OutputConfig controls JSON rendering.
type OutputConfig struct {
	Indent int `yaml:"indent" mapstructure:"indent"` // 0 prints compact JSON
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Marker: MarkerConfig{
			Name: conformance.DefaultMarker,
		},
		Project: ProjectConfig{
			TSConfigName: tsconfig.DefaultFileName,
			Extensions:   append([]string(nil), tsconfig.DefaultExtensions...),
			Ignore: []string{
				"node_modules/**",
				".git/**",
				"dist/**",
			},
		},
		Resolution: ResolutionConfig{
			NodeModules: true,
		},
		Cache: CacheConfig{
			MaxFiles: 2048,
		},
		Watch: WatchConfig{
			DebounceMS: 300,
		},
		Output: OutputConfig{
			Indent: 2,
		},
	}
}

// IndentString returns the JSON indent configured by Output.Indent.
func (c *Config) IndentString() string {
	if c.Output.Indent <= 0 {
		return ""
	}
	return strings.Repeat(" ", c.Output.Indent)
}
