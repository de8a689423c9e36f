// Package analyzer is the entry point for Durable Object inference. It
// locates the project configuration for a source file, builds the program
// and semantic model, and runs the conformance pass over the file.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mvp-joe/infer-dos/internal/conformance"
	"github.com/mvp-joe/infer-dos/internal/parsers"
	"github.com/mvp-joe/infer-dos/internal/semantic"
	"github.com/mvp-joe/infer-dos/internal/tsconfig"
)

// ErrSourceNotFound indicates the entry file does not exist or could not be
// loaded into the program.
var ErrSourceNotFound = errors.New("source file not found")

// Analyzer finds the classes of a file that conform to the marker type.
type Analyzer interface {
	// Analyze returns the names of the exported conforming classes of the
	// file at path, in source order.
	Analyze(ctx context.Context, path string) ([]string, error)

	// Load builds the program and model for the file at path without
	// running the conformance pass.
	Load(ctx context.Context, path string) (*Session, error)

	// Invalidate drops any cached parse of path.
	Invalidate(path string)

	// Close releases resources held by the analyzer.
	Close() error
}

// Config contains configuration for the analyzer.
type Config struct {
	// Marker is the name of the marker type. Defaults to DurableObject.
	Marker string

	// TSConfigPath is an explicit project configuration file. When empty the
	// nearest TSConfigName above the source file is used.
	TSConfigPath string
	TSConfigName string

	// Root file selection for tsconfig include patterns.
	Extensions     []string
	IgnorePatterns []string

	// DisableNodeModules turns off package resolution.
	DisableNodeModules bool

	// CacheSize is the number of parsed files kept between runs.
	CacheSize int

	// Parser overrides the default caching tree-sitter parser.
	Parser parsers.FileParser
}

type analyzer struct {
	config *Config
	parser parsers.FileParser
	cache  *parsers.CachingParser
}

// New creates an analyzer. Parsed files are cached across calls so that
// repeated analyses only re-parse files that changed on disk.
func New(config *Config) (Analyzer, error) {
	if config == nil {
		config = &Config{}
	}

	a := &analyzer{config: config, parser: config.Parser}
	if a.parser == nil {
		cache, err := parsers.NewCachingParser(parsers.NewTypeScriptParser(), config.CacheSize)
		if err != nil {
			return nil, err
		}
		a.cache = cache
		a.parser = cache
	}
	return a, nil
}

func (a *analyzer) marker() string {
	if a.config.Marker == "" {
		return conformance.DefaultMarker
	}
	return a.config.Marker
}

// Analyze implements Analyzer.
func (a *analyzer) Analyze(ctx context.Context, path string) ([]string, error) {
	session, err := a.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	classes := session.Classes()
	log.Printf("[TIMING] Conformance pass: %v (%d classes)", time.Since(start), len(classes))
	return classes, nil
}

// Load implements Analyzer.
func (a *analyzer) Load(ctx context.Context, path string) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceNotFound, path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, path)
	}

	cfg, err := a.loadConfig(abs)
	if err != nil {
		return nil, err
	}
	log.Printf("Using project configuration %s", cfg.Path)

	program, err := semantic.NewProgram(ctx, cfg, abs, semantic.ProgramOptions{
		Parser:             a.parser,
		Extensions:         a.config.Extensions,
		Ignore:             a.config.IgnorePatterns,
		DisableNodeModules: a.config.DisableNodeModules,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}

	file := program.Entry()
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	return &Session{
		Program: program,
		Model:   semantic.NewModel(program),
		File:    file,
		Marker:  a.marker(),
	}, nil
}

func (a *analyzer) loadConfig(source string) (*tsconfig.Config, error) {
	configPath := a.config.TSConfigPath
	if configPath == "" {
		found, err := tsconfig.Find(filepath.Dir(source), a.config.TSConfigName)
		if err != nil {
			return nil, err
		}
		configPath = found
	}
	return tsconfig.Load(configPath)
}

// Invalidate implements Analyzer.
func (a *analyzer) Invalidate(path string) {
	if a.cache != nil {
		a.cache.Invalidate(path)
	}
}

// Close implements Analyzer.
func (a *analyzer) Close() error {
	if a.cache != nil {
		a.cache.Close()
	}
	return nil
}
