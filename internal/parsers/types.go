package parsers

import "strings"

// DeclKind identifies what a Declaration introduces.
type DeclKind int

const (
	DeclClass DeclKind = iota
	DeclInterface
	DeclTypeAlias
	DeclNamespace // namespace Foo {} / module Foo {}
	DeclModule    // declare module "name" {}
	DeclGlobal    // declare global {}
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclInterface:
		return "interface"
	case DeclTypeAlias:
		return "type"
	case DeclNamespace:
		return "namespace"
	case DeclModule:
		return "module"
	case DeclGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// HeritageKind tags a heritage clause as an extends or implements relation.
type HeritageKind int

const (
	HeritageExtends HeritageKind = iota
	HeritageImplements
)

func (k HeritageKind) String() string {
	if k == HeritageImplements {
		return "implements"
	}
	return "extends"
}

// TypeRef is a type expression referenced from a heritage clause or alias.
// Path holds the dotted name segments (["cf", "DurableObject"]); it is empty
// when the expression is not a plain or qualified name, e.g. a mixin call.
type TypeRef struct {
	Path     []string
	Text     string
	TypeArgs int
}

// IsName reports whether the reference is a (possibly qualified) name.
func (r TypeRef) IsName() bool {
	return len(r.Path) > 0
}

// Name returns the dotted name, or the raw text for non-name expressions.
func (r TypeRef) Name() string {
	if len(r.Path) == 0 {
		return r.Text
	}
	return strings.Join(r.Path, ".")
}

// HeritageClause is one extends or implements clause of a declaration.
type HeritageClause struct {
	Kind  HeritageKind
	Types []TypeRef
}

// Declaration is a named declaration in a scope. Container declarations
// (namespaces, ambient modules, global blocks) carry their members in Body.
type Declaration struct {
	Kind     DeclKind
	Name     string
	Exported bool
	Default  bool
	Ambient  bool
	Abstract bool
	Heritage []HeritageClause
	Aliased  *TypeRef // type alias target, nil when not a name reference
	Body     *Scope
	Scope    *Scope // enclosing scope
	Line     int    // 1-indexed
}

// IsClass reports whether the declaration is a class declaration.
func (d *Declaration) IsClass() bool {
	return d.Kind == DeclClass
}

// File returns the file the declaration belongs to.
func (d *Declaration) File() *SourceFile {
	if d.Scope == nil {
		return nil
	}
	return d.Scope.File
}

// ScopeKind identifies the construct that owns a Scope.
type ScopeKind int

const (
	ScopeFile ScopeKind = iota
	ScopeNamespace
	ScopeModule
	ScopeGlobal
)

// Scope is an ordered list of declarations plus the import and export
// statements that appear directly in it.
type Scope struct {
	Kind         ScopeKind
	Name         string
	Ambient      bool
	Parent       *Scope
	File         *SourceFile
	Declarations []*Declaration
	Imports      []*Import
	Exports      []*Export

	byName map[string][]*Declaration
}

func newScope(kind ScopeKind, name string, parent *Scope, file *SourceFile) *Scope {
	s := &Scope{
		Kind:   kind,
		Name:   name,
		Parent: parent,
		File:   file,
		byName: make(map[string][]*Declaration),
	}
	if parent != nil && parent.Ambient {
		s.Ambient = true
	}
	return s
}

func (s *Scope) add(d *Declaration) {
	d.Scope = s
	s.Declarations = append(s.Declarations, d)
	if d.Name != "" {
		s.byName[d.Name] = append(s.byName[d.Name], d)
	}
}

// Lookup returns the declarations named name declared directly in s.
func (s *Scope) Lookup(name string) []*Declaration {
	return s.byName[name]
}

// Import returns the import binding with the given local name, if any.
func (s *Scope) Import(local string) *Import {
	for _, imp := range s.Imports {
		if imp.Local == local {
			return imp
		}
	}
	return nil
}

// ExportsAll reports whether every declaration in s is visible to importers
// without an explicit export modifier, as in ambient module bodies.
func (s *Scope) ExportsAll() bool {
	return s.Ambient && s.Kind != ScopeFile
}

// ContributesGlobals reports whether declarations in s land in the global
// scope: top-level declarations of script files and declare global blocks.
func (s *Scope) ContributesGlobals() bool {
	switch s.Kind {
	case ScopeGlobal:
		return true
	case ScopeFile:
		return s.File != nil && !s.File.External
	}
	return false
}

// Import is a single import binding.
type Import struct {
	Local     string
	Imported  string // "default" for default imports, "" for namespace imports
	Source    string
	Namespace bool
	TypeOnly  bool
}

// Export is a single export specifier or re-export.
type Export struct {
	Local    string // binding in the exporting scope, "" for star exports
	Exported string // name seen by importers, "" for bare export *
	Source   string // module specifier for re-exports
	Star     bool
}

// ReferenceKind distinguishes triple-slash reference directives.
type ReferenceKind int

const (
	ReferencePath ReferenceKind = iota
	ReferenceTypes
)

// Reference is a /// <reference path|types="..." /> directive.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// SourceFile is the parsed declaration tree of one TypeScript file.
type SourceFile struct {
	Path        string
	Declaration bool // .d.ts, .d.mts, .d.cts
	External    bool // has top-level import or export, i.e. is a module
	Root        *Scope
	References  []Reference
	HasErrors   bool
}

// ModuleSpecifiers returns every module specifier the file depends on, in
// source order and without duplicates.
func (f *SourceFile) ModuleSpecifiers() []string {
	seen := make(map[string]bool)
	var specs []string
	add := func(spec string) {
		if spec == "" || seen[spec] {
			return
		}
		seen[spec] = true
		specs = append(specs, spec)
	}

	var walk func(s *Scope)
	walk = func(s *Scope) {
		for _, imp := range s.Imports {
			add(imp.Source)
		}
		for _, exp := range s.Exports {
			add(exp.Source)
		}
		for _, d := range s.Declarations {
			if d.Body != nil {
				walk(d.Body)
			}
		}
	}
	walk(f.Root)
	return specs
}
