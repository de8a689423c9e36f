package tsconfig

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultExtensions are the source extensions picked up by include patterns.
var DefaultExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// packageFolders are never entered by wildcard expansion.
var packageFolders = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"jspm_packages":    true,
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery expands a configuration's files/include/exclude settings.
type FileDiscovery struct {
	baseDir        string
	files          []string
	extensions     []string
	includes       []compiledPattern
	excludes       []compiledPattern
	ignorePatterns []compiledPattern
}

// NewFileDiscovery creates a file discovery for cfg. ignore holds extra glob
// patterns, relative to the configuration directory, that are never included.
func NewFileDiscovery(cfg *Config, extensions, ignore []string) (*FileDiscovery, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	fd := &FileDiscovery{
		baseDir:    cfg.IncludeBase,
		files:      cfg.Files,
		extensions: extensions,
	}

	var err error
	if fd.includes, err = compilePatterns(cfg.Include); err != nil {
		return nil, err
	}
	if fd.excludes, err = compilePatterns(cfg.Exclude); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignore); err != nil {
		return nil, err
	}

	return fd, nil
}

// compilePatterns compiles tsconfig-style globs. A pattern naming a directory
// ("src") also matches everything below it, and "**/" may match zero
// directories.
func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, pattern := range patterns {
		for _, variant := range patternVariants(pattern) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, &patternError{pattern: pattern, err: err}
			}
			compiled = append(compiled, compiledPattern{pattern: variant, glob: g})
		}
	}
	return compiled, nil
}

func patternVariants(pattern string) []string {
	p := filepath.ToSlash(strings.TrimSpace(pattern))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil
	}

	base := []string{p}
	last := p[strings.LastIndex(p, "/")+1:]
	if !strings.ContainsAny(last, "*?.") {
		base = append(base, p+"/**/*")
	}

	seen := make(map[string]bool)
	var variants []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}
	// "**/" may match zero directories
	for _, v := range base {
		for _, w := range []string{v, strings.TrimPrefix(v, "**/")} {
			add(w)
			add(strings.ReplaceAll(w, "/**/", "/"))
		}
	}
	return variants
}

type patternError struct {
	pattern string
	err     error
}

func (e *patternError) Error() string {
	return ErrInvalidConfig.Error() + ": bad pattern " + e.pattern + ": " + e.err.Error()
}

func (e *patternError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.err}
}

// DiscoverFiles returns the absolute paths of the project's root files:
// explicit files first, then include matches in lexical walk order.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, f := range fd.files {
		if _, err := os.Stat(f); err != nil {
			log.Printf("Warning: file listed in tsconfig not found: %s", f)
			continue
		}
		if !seen[f] {
			seen[f] = true
			result = append(result, f)
		}
	}

	if len(fd.includes) == 0 {
		return result, nil
	}

	if _, err := os.Stat(fd.baseDir); err != nil {
		return result, nil
	}

	err := filepath.Walk(fd.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(fd.baseDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath == "." {
				return nil
			}
			if packageFolders[info.Name()] || strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			if fd.matchesAnyPattern(relPath, fd.excludes) || fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if !fd.hasExtension(relPath) {
			return nil
		}
		if fd.matchesAnyPattern(relPath, fd.excludes) || fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
			return nil
		}
		if !fd.matchesAnyPattern(relPath, fd.includes) {
			return nil
		}

		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
		return nil
	})

	return result, err
}

func (fd *FileDiscovery) hasExtension(path string) bool {
	for _, ext := range fd.extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}
	return false
}

// RootFiles expands the configuration into its root source files.
func (c *Config) RootFiles(extensions, ignore []string) ([]string, error) {
	fd, err := NewFileDiscovery(c, extensions, ignore)
	if err != nil {
		return nil, err
	}
	return fd.DiscoverFiles()
}
