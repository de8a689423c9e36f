package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigDir is the directory, relative to the project root, holding config.yml.
const ConfigDir = ".infer-dos"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader reading an explicit config file. Unlike
// NewLoader, a missing file is an error.
func NewFileLoader(configFile string) Loader {
	return &loader{
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (INFER_DOS_*)
// 2. Config file (.infer-dos/config.yml or .infer-dos/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ConfigDir))
	}

	// Replace . with _ in env var names (e.g., INFER_DOS_MARKER_NAME)
	v.SetEnvPrefix("INFER_DOS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("marker.name")
	v.BindEnv("project.tsconfig_name")
	v.BindEnv("resolution.node_modules")
	v.BindEnv("cache.max_files")
	v.BindEnv("watch.debounce_ms")
	v.BindEnv("output.indent")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("marker.name", defaults.Marker.Name)

	v.SetDefault("project.tsconfig_name", defaults.Project.TSConfigName)
	v.SetDefault("project.extensions", defaults.Project.Extensions)
	v.SetDefault("project.ignore", defaults.Project.Ignore)

	v.SetDefault("resolution.node_modules", defaults.Resolution.NodeModules)
	v.SetDefault("cache.max_files", defaults.Cache.MaxFiles)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
	v.SetDefault("output.indent", defaults.Output.Indent)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
