// Package tsconfig locates and loads TypeScript project configuration.
//
// Configuration files are JSON with comments and trailing commas. Loading
// follows "extends" chains (relative paths and package specifiers), merges
// compilerOptions field by field and resolves every path-valued setting to
// an absolute path relative to the file that declared it.
package tsconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// DefaultFileName is the configuration file name searched for by Find.
const DefaultFileName = "tsconfig.json"

var (
	// ErrConfigNotFound indicates no configuration file exists in the start
	// directory or any of its ancestors.
	ErrConfigNotFound = errors.New("could not find a valid 'tsconfig.json'")

	// ErrInvalidConfig indicates a configuration file that cannot be parsed
	// or whose extends chain cannot be resolved.
	ErrInvalidConfig = errors.New("invalid tsconfig")
)

// Config is a loaded and fully merged TypeScript project configuration.
type Config struct {
	Path            string
	Dir             string
	CompilerOptions CompilerOptions
	Files           []string // absolute
	Include         []string // glob patterns relative to IncludeBase
	Exclude         []string // glob patterns relative to IncludeBase
	IncludeBase     string
}

// CompilerOptions holds the compiler options relevant to module and type
// resolution. Paths are absolute.
type CompilerOptions struct {
	BaseURL   string
	Paths     map[string][]string
	PathsBase string // directory paths mappings are relative to
	Types     []string
	TypesSet  bool // "types" present, even if empty
	TypeRoots []string
	OutDir    string
}

// rawConfig mirrors the on-disk JSON shape.
type rawConfig struct {
	Extends         json.RawMessage     `json:"extends"`
	CompilerOptions *rawCompilerOptions `json:"compilerOptions"`
	Files           *[]string           `json:"files"`
	Include         *[]string           `json:"include"`
	Exclude         *[]string           `json:"exclude"`
}

type rawCompilerOptions struct {
	BaseURL   *string             `json:"baseUrl"`
	Paths     map[string][]string `json:"paths"`
	Types     *[]string           `json:"types"`
	TypeRoots *[]string           `json:"typeRoots"`
	OutDir    *string             `json:"outDir"`
}

// Find walks up from startDir looking for fileName, mirroring how the
// TypeScript compiler discovers the nearest project.
func Find(startDir, fileName string) (string, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	for {
		candidate := filepath.Join(dir, fileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s)", ErrConfigNotFound, startDir)
		}
		dir = parent
	}
}

// Load reads the configuration at path and everything it extends.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg, err := load(abs, make(map[string]bool))
	if err != nil {
		return nil, err
	}

	cfg.Path = abs
	cfg.Dir = filepath.Dir(abs)
	if cfg.IncludeBase == "" {
		cfg.IncludeBase = cfg.Dir
	}
	if cfg.Include == nil && cfg.Files == nil {
		cfg.Include = []string{"**/*"}
		cfg.IncludeBase = cfg.Dir
	}
	if cfg.Exclude == nil {
		cfg.Exclude = defaultExcludes(cfg)
	}
	if cfg.CompilerOptions.PathsBase == "" {
		cfg.CompilerOptions.PathsBase = cfg.Dir
	}

	return cfg, nil
}

func defaultExcludes(cfg *Config) []string {
	excludes := []string{"node_modules", "bower_components", "jspm_packages"}
	if out := cfg.CompilerOptions.OutDir; out != "" {
		if rel, err := filepath.Rel(cfg.IncludeBase, out); err == nil && !strings.HasPrefix(rel, "..") {
			excludes = append(excludes, filepath.ToSlash(rel))
		}
	}
	return excludes
}

// load reads one file, recursing into its extends targets first so that
// settings in path override the ones it inherits.
func load(path string, seen map[string]bool) (*Config, error) {
	if seen[path] {
		return nil, fmt.Errorf("%w: circular extends involving %s", ErrInvalidConfig, path)
	}
	seen[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidConfig, path, err)
	}

	raw, err := parseRaw(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	dir := filepath.Dir(path)
	cfg := &Config{}

	bases, err := extendsList(raw.Extends)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	for _, base := range bases {
		basePath, err := resolveExtends(base, dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		baseCfg, err := load(basePath, seen)
		if err != nil {
			return nil, err
		}
		cfg.merge(baseCfg)
	}

	cfg.apply(raw, dir)
	delete(seen, path)
	return cfg, nil
}

func parseRaw(data []byte) (*rawConfig, error) {
	raw := &rawConfig{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return raw, nil
	}

	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(standard, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// extendsList accepts both the string and the array form of "extends".
func extendsList(msg json.RawMessage) ([]string, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(msg, &single); err == nil {
		return []string{single}, nil
	}

	var many []string
	if err := json.Unmarshal(msg, &many); err != nil {
		return nil, fmt.Errorf("extends must be a string or an array of strings")
	}
	return many, nil
}

// resolveExtends resolves an extends specifier to a config file path.
func resolveExtends(spec, fromDir string) (string, error) {
	if filepath.IsAbs(spec) || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		p := spec
		if !filepath.IsAbs(p) {
			p = filepath.Join(fromDir, spec)
		}
		for _, candidate := range []string{p, p + ".json"} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("cannot find extended config %q", spec)
	}

	// Package specifier: look in node_modules walking up.
	for dir := fromDir; ; {
		base := filepath.Join(dir, "node_modules", filepath.FromSlash(spec))
		candidates := []string{base, base + ".json", filepath.Join(base, DefaultFileName)}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("cannot find extended config %q", spec)
}

// merge copies an inherited configuration into c.
func (c *Config) merge(base *Config) {
	if base.Files != nil {
		c.Files = base.Files
	}
	if base.Include != nil {
		c.Include = base.Include
		c.IncludeBase = base.IncludeBase
	}
	if base.Exclude != nil {
		c.Exclude = base.Exclude
		c.IncludeBase = base.IncludeBase
	}

	opts := &c.CompilerOptions
	b := base.CompilerOptions
	if b.BaseURL != "" {
		opts.BaseURL = b.BaseURL
	}
	if b.Paths != nil {
		opts.Paths = b.Paths
		opts.PathsBase = b.PathsBase
	}
	if b.TypesSet {
		opts.Types = b.Types
		opts.TypesSet = true
	}
	if b.TypeRoots != nil {
		opts.TypeRoots = b.TypeRoots
	}
	if b.OutDir != "" {
		opts.OutDir = b.OutDir
	}
}

// apply overlays the settings of one file, resolved against its directory.
func (c *Config) apply(raw *rawConfig, dir string) {
	if raw.Files != nil {
		c.Files = make([]string, 0, len(*raw.Files))
		for _, f := range *raw.Files {
			c.Files = append(c.Files, absJoin(dir, f))
		}
	}
	if raw.Include != nil {
		c.Include = *raw.Include
		c.IncludeBase = dir
	}
	if raw.Exclude != nil {
		c.Exclude = *raw.Exclude
		c.IncludeBase = dir
	}

	if raw.CompilerOptions == nil {
		return
	}
	opts := &c.CompilerOptions
	r := raw.CompilerOptions
	if r.BaseURL != nil {
		opts.BaseURL = absJoin(dir, *r.BaseURL)
	}
	if r.Paths != nil {
		opts.Paths = r.Paths
		opts.PathsBase = opts.BaseURL
		if opts.PathsBase == "" {
			opts.PathsBase = dir
		}
	}
	if r.Types != nil {
		opts.Types = *r.Types
		opts.TypesSet = true
	}
	if r.TypeRoots != nil {
		opts.TypeRoots = make([]string, 0, len(*r.TypeRoots))
		for _, root := range *r.TypeRoots {
			opts.TypeRoots = append(opts.TypeRoots, absJoin(dir, root))
		}
	}
	if r.OutDir != nil {
		opts.OutDir = absJoin(dir, *r.OutDir)
	}
}

func absJoin(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}
