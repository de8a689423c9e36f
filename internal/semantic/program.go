// Package semantic builds a whole-program view of a TypeScript project:
// the files reachable from a tsconfig and an entry file, the module graph
// between them, and a type model answering heritage queries.
package semantic

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/mvp-joe/infer-dos/internal/parsers"
	"github.com/mvp-joe/infer-dos/internal/tsconfig"
)

// ProgramOptions configures how a Program discovers and loads files.
type ProgramOptions struct {
	// Parser produces declaration trees. Required.
	Parser parsers.FileParser
	// Extensions restricts which root files the tsconfig include patterns
	// pick up. Defaults to tsconfig.DefaultExtensions.
	Extensions []string
	// Ignore holds extra glob patterns excluded from the root files.
	Ignore []string
	// DisableNodeModules turns off package lookups in node_modules.
	DisableNodeModules bool
}

// Program is the set of parsed files making up one analysis, together with
// the module resolutions between them. A Program is built once and is
// read-only afterwards.
type Program struct {
	config   *tsconfig.Config
	entry    string
	resolver *moduleResolver

	files       map[string]*parsers.SourceFile
	order       []*parsers.SourceFile
	resolutions map[string]map[string]string // file -> specifier -> file

	ambientModules map[string][]*parsers.Scope
	globalScopes   []*parsers.Scope
}

// NewProgram loads the project described by cfg plus the entry file. Files
// are loaded eagerly: root files, the entry, type packages and everything
// they import, re-export or reference. Only a failure to parse the entry
// file is fatal; other unreadable files are logged and skipped.
func NewProgram(ctx context.Context, cfg *tsconfig.Config, entry string, opts ProgramOptions) (*Program, error) {
	if opts.Parser == nil {
		return nil, fmt.Errorf("program requires a parser")
	}

	entryPath, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", entry, err)
	}

	start := time.Now()
	p := &Program{
		config:         cfg,
		entry:          entryPath,
		resolver:       newModuleResolver(cfg.CompilerOptions, !opts.DisableNodeModules),
		files:          make(map[string]*parsers.SourceFile),
		resolutions:    make(map[string]map[string]string),
		ambientModules: make(map[string][]*parsers.Scope),
	}

	roots, err := cfg.RootFiles(opts.Extensions, opts.Ignore)
	if err != nil {
		return nil, err
	}

	queue := append([]string{entryPath}, roots...)
	queue = append(queue, p.typePackages()...)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := queue[0]
		queue = queue[1:]
		if _, ok := p.files[path]; ok {
			continue
		}

		file, err := opts.Parser.ParseFile(ctx, path)
		if err != nil {
			if path == entryPath {
				return nil, fmt.Errorf("failed to parse %s: %w", entry, err)
			}
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		if file.HasErrors {
			log.Printf("Warning: %s has syntax errors, using recovered tree", path)
		}

		p.add(file)
		queue = append(queue, p.dependencies(file)...)
	}

	log.Printf("[TIMING] Loaded %d files in %v", len(p.order), time.Since(start))
	return p, nil
}

// typePackages resolves compilerOptions.types, or every automatic type
// package when types is absent.
func (p *Program) typePackages() []string {
	opts := p.config.CompilerOptions
	if !opts.TypesSet {
		return p.resolver.automaticTypePackages(p.config.Dir)
	}

	var files []string
	for _, name := range opts.Types {
		resolved := p.resolver.resolveTypeReference(name, p.config.Dir)
		if resolved == "" {
			log.Printf("Warning: cannot find type definition file for '%s'", name)
			continue
		}
		files = append(files, resolved)
	}
	return files
}

func (p *Program) add(file *parsers.SourceFile) {
	p.files[file.Path] = file
	p.order = append(p.order, file)

	if file.Root.ContributesGlobals() {
		p.globalScopes = append(p.globalScopes, file.Root)
	}

	var collect func(s *parsers.Scope)
	collect = func(s *parsers.Scope) {
		for _, d := range s.Declarations {
			switch d.Kind {
			case parsers.DeclModule:
				p.ambientModules[d.Name] = append(p.ambientModules[d.Name], d.Body)
				collect(d.Body)
			case parsers.DeclGlobal:
				p.globalScopes = append(p.globalScopes, d.Body)
				collect(d.Body)
			case parsers.DeclNamespace:
				collect(d.Body)
			}
		}
	}
	collect(file.Root)
}

// dependencies resolves the module specifiers and reference directives of
// file, records the resolutions and returns the files they point at.
func (p *Program) dependencies(file *parsers.SourceFile) []string {
	dir := filepath.Dir(file.Path)
	resolved := make(map[string]string)
	p.resolutions[file.Path] = resolved

	var deps []string
	for _, spec := range file.ModuleSpecifiers() {
		target := p.resolver.resolve(spec, dir)
		resolved[spec] = target
		if target != "" {
			deps = append(deps, target)
		}
	}

	for _, ref := range file.References {
		var target string
		switch ref.Kind {
		case parsers.ReferencePath:
			target = p.resolver.loadFile(filepath.Join(dir, filepath.FromSlash(ref.Value)))
		case parsers.ReferenceTypes:
			target = p.resolver.resolveTypeReference(ref.Value, dir)
		}
		if target == "" {
			log.Printf("Warning: %s: unresolved reference %q", file.Path, ref.Value)
			continue
		}
		deps = append(deps, target)
	}
	return deps
}

// Config returns the project configuration the program was built from.
func (p *Program) Config() *tsconfig.Config { return p.config }

// Entry returns the entry file.
func (p *Program) Entry() *parsers.SourceFile { return p.files[p.entry] }

// File returns the loaded file at path, or nil.
func (p *Program) File(path string) *parsers.SourceFile { return p.files[path] }

// Files returns every loaded file in load order.
func (p *Program) Files() []*parsers.SourceFile { return p.order }

// ResolvedModule returns the file a specifier in from resolved to, or "".
func (p *Program) ResolvedModule(from, spec string) string {
	return p.resolutions[from][spec]
}

// ModuleScopes returns the scopes that make up the module spec as seen from
// the file from: the resolved file's root scope followed by every ambient
// module declaration and augmentation of that name.
func (p *Program) ModuleScopes(from, spec string) []*parsers.Scope {
	var scopes []*parsers.Scope
	if target := p.resolutions[from][spec]; target != "" {
		if file := p.files[target]; file != nil {
			scopes = append(scopes, file.Root)
		}
	}
	return append(scopes, p.ambientModules[spec]...)
}

// GlobalScopes returns the scopes contributing to the global namespace.
func (p *Program) GlobalScopes() []*parsers.Scope { return p.globalScopes }
