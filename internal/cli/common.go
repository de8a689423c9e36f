package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mvp-joe/infer-dos/internal/analyzer"
	"github.com/mvp-joe/infer-dos/internal/config"
)

// options is the effective configuration of one command run: the loaded
// config with global flag overrides applied.
type options struct {
	config       *config.Config
	tsconfigPath string
}

// loadOptions loads .infer-dos/config.yml (or --config) and applies the
// --marker and --tsconfig flags on top.
func loadOptions() (*options, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if markerFlag != "" {
		if err := config.ValidateMarker(markerFlag); err != nil {
			return nil, err
		}
		cfg.Marker.Name = markerFlag
	}

	opts := &options{config: cfg}
	if tsconfigFlag != "" {
		abs, err := filepath.Abs(tsconfigFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", tsconfigFlag, err)
		}
		opts.tsconfigPath = abs
	}
	return opts, nil
}

func (o *options) analyzerConfig() *analyzer.Config {
	return &analyzer.Config{
		Marker:             o.config.Marker.Name,
		TSConfigPath:       o.tsconfigPath,
		TSConfigName:       o.config.Project.TSConfigName,
		Extensions:         o.config.Project.Extensions,
		IgnorePatterns:     o.config.Project.Ignore,
		DisableNodeModules: !o.config.Resolution.NodeModules,
		CacheSize:          o.config.Cache.MaxFiles,
	}
}

// writeJSON writes v followed by a newline.
func writeJSON(w io.Writer, v interface{}, indent string) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	return encoder.Encode(v)
}
