package semantic

import (
	"github.com/mvp-joe/infer-dos/internal/parsers"
)

// globalOwner owns every symbol declared in the global namespace.
type globalOwner struct{}

// moduleOwner owns the symbols of all ambient declarations of one module
// name, so augmentations merge with the declaration they augment.
type moduleOwner string

// namespaceOwner owns the members of a namespace. Same-named namespaces in
// the same parent merge.
type namespaceOwner struct {
	parent any
	name   string
}

// symbolKey identifies a merged symbol: all declarations sharing a key
// contribute to the same Type.
type symbolKey struct {
	owner any
	name  string
}

type refKey struct {
	decl *parsers.Declaration
	ref  string
}

// entity is what a name binds to: a merged symbol, a module namespace
// object, or nothing.
type entity struct {
	decls      []*parsers.Declaration
	module     []*parsers.Scope
	isModule   bool
	unresolved string
}

func (e entity) found() bool {
	return len(e.decls) > 0 || e.isModule
}

// Model answers type queries over a Program. It binds names lazily and
// memoizes every answer; a Model belongs to one analysis run and is not safe
// for concurrent use.
type Model struct {
	program *Program
	symbols map[symbolKey][]*parsers.Declaration

	nextID    int
	types     map[symbolKey]*Type
	unbound   map[string]*Type
	anonymous map[refKey]*Type
	refs      map[refKey]*Type
	aliases   map[*parsers.Declaration]*Type
}

// NewModel indexes the program's declarations into merged symbols.
func NewModel(program *Program) *Model {
	m := &Model{
		program:   program,
		symbols:   make(map[symbolKey][]*parsers.Declaration),
		types:     make(map[symbolKey]*Type),
		unbound:   make(map[string]*Type),
		anonymous: make(map[refKey]*Type),
		refs:      make(map[refKey]*Type),
		aliases:   make(map[*parsers.Declaration]*Type),
	}

	var index func(s *parsers.Scope)
	index = func(s *parsers.Scope) {
		owner := ownerOf(s)
		for _, d := range s.Declarations {
			if d.Name != "" && d.Kind != parsers.DeclModule && d.Kind != parsers.DeclGlobal {
				key := symbolKey{owner: owner, name: d.Name}
				m.symbols[key] = append(m.symbols[key], d)
			}
			if d.Body != nil {
				index(d.Body)
			}
		}
	}
	for _, file := range program.Files() {
		index(file.Root)
	}
	return m
}

// Program returns the program the model was built over.
func (m *Model) Program() *Program { return m.program }

func ownerOf(s *parsers.Scope) any {
	switch s.Kind {
	case parsers.ScopeGlobal:
		return globalOwner{}
	case parsers.ScopeModule:
		return moduleOwner(s.Name)
	case parsers.ScopeNamespace:
		return namespaceOwner{parent: ownerOf(s.Parent), name: s.Name}
	default:
		if s.ContributesGlobals() {
			return globalOwner{}
		}
		return s
	}
}

func keyOf(d *parsers.Declaration) symbolKey {
	return symbolKey{owner: ownerOf(d.Scope), name: d.Name}
}

func (m *Model) newType(name string, kind TypeKind, decls []*parsers.Declaration) *Type {
	m.nextID++
	return &Type{id: m.nextID, name: name, kind: kind, decls: decls}
}

// typeForSymbol returns the Type of the merged class/interface symbol key,
// or nil when the symbol has no class or interface declarations.
func (m *Model) typeForSymbol(key symbolKey) *Type {
	if t, ok := m.types[key]; ok {
		return t
	}

	var decls []*parsers.Declaration
	kind := KindInterface
	for _, d := range m.symbols[key] {
		switch d.Kind {
		case parsers.DeclClass:
			kind = KindClass
			decls = append(decls, d)
		case parsers.DeclInterface:
			decls = append(decls, d)
		}
	}
	if len(decls) == 0 {
		return nil
	}

	t := m.newType(key.name, kind, decls)
	m.types[key] = t
	return t
}

func (m *Model) unboundType(name string) *Type {
	if t, ok := m.unbound[name]; ok {
		return t
	}
	t := m.newType(name, KindUnbound, nil)
	m.unbound[name] = t
	return t
}

func (m *Model) anonymousType(key refKey) *Type {
	if t, ok := m.anonymous[key]; ok {
		return t
	}
	t := m.newType("", KindAnonymous, nil)
	m.anonymous[key] = t
	return t
}

// TypeOfDeclaration returns the type a declaration introduces. Type aliases
// resolve to their target.
func (m *Model) TypeOfDeclaration(d *parsers.Declaration) *Type {
	switch d.Kind {
	case parsers.DeclClass, parsers.DeclInterface:
		return m.typeForSymbol(keyOf(d))
	case parsers.DeclTypeAlias:
		return m.aliasTarget(d, make(map[*parsers.Declaration]bool))
	default:
		return m.unboundType(d.Name)
	}
}

// Declarations returns the class and interface declarations merged into t.
func (m *Model) Declarations(t *Type) []*parsers.Declaration {
	return t.decls
}

// TypeOfReference resolves a heritage or alias type expression written in
// decl to a type. Type arguments are ignored, so Base<T> resolves to Base.
func (m *Model) TypeOfReference(decl *parsers.Declaration, ref parsers.TypeRef) *Type {
	key := refKey{decl: decl, ref: ref.Name()}
	if t, ok := m.refs[key]; ok {
		return t
	}

	var t *Type
	if !ref.IsName() {
		t = m.anonymousType(key)
	} else {
		e := m.resolvePath(decl.Scope, ref.Path)
		t = m.typeOfEntity(e, ref.Path[len(ref.Path)-1], make(map[*parsers.Declaration]bool))
	}
	m.refs[key] = t
	return t
}

// BaseTypes returns the declared base types of t as the TypeScript checker
// computes them: a class's bound extends target plus the extends targets of
// interfaces merged with it, or an interface's bound extends targets. The
// second result is false when base types are unavailable because the type
// is unbound or anonymous.
func (m *Model) BaseTypes(t *Type) ([]*Type, bool) {
	if !t.Bound() {
		return nil, false
	}

	seen := make(map[*Type]bool)
	var bases []*Type
	for _, d := range t.decls {
		for _, clause := range d.Heritage {
			if clause.Kind != parsers.HeritageExtends {
				continue
			}
			for _, ref := range clause.Types {
				base := m.TypeOfReference(d, ref)
				if base == nil || !base.Bound() || base == t || seen[base] {
					continue
				}
				seen[base] = true
				bases = append(bases, base)
			}
		}
	}
	return bases, true
}

func (m *Model) typeOfEntity(e entity, name string, guard map[*parsers.Declaration]bool) *Type {
	if e.unresolved != "" {
		return m.unboundType(e.unresolved)
	}
	if !e.found() || e.isModule {
		return m.unboundType(name)
	}

	for _, d := range e.decls {
		if d.Kind == parsers.DeclClass || d.Kind == parsers.DeclInterface {
			return m.typeForSymbol(keyOf(d))
		}
	}
	for _, d := range e.decls {
		if d.Kind == parsers.DeclTypeAlias {
			return m.aliasTarget(d, guard)
		}
	}
	return m.unboundType(name)
}

// aliasTarget follows a type alias to the type it names. Circular aliases
// and aliases of non-name types resolve to an anonymous type.
func (m *Model) aliasTarget(d *parsers.Declaration, guard map[*parsers.Declaration]bool) *Type {
	if t, ok := m.aliases[d]; ok {
		return t
	}

	key := refKey{decl: d, ref: "=" + d.Name}
	if d.Aliased == nil || guard[d] {
		return m.anonymousType(key)
	}
	guard[d] = true

	e := m.resolvePath(d.Scope, d.Aliased.Path)
	t := m.typeOfEntity(e, d.Aliased.Path[len(d.Aliased.Path)-1], guard)
	m.aliases[d] = t
	return t
}

// resolvePath binds a possibly qualified name written in scope.
func (m *Model) resolvePath(scope *parsers.Scope, path []string) entity {
	visited := make(map[exportKey]bool)
	e := m.resolveName(scope, path[0], visited)
	for _, segment := range path[1:] {
		if !e.found() {
			return entity{unresolved: path[len(path)-1]}
		}
		e = m.member(e, segment, visited)
	}
	if !e.found() && e.unresolved == "" {
		e.unresolved = path[len(path)-1]
	}
	return e
}

// resolveName binds name by walking the enclosing scopes outwards, checking
// local declarations and then imports in each, and finally the globals.
func (m *Model) resolveName(scope *parsers.Scope, name string, visited map[exportKey]bool) entity {
	for s := scope; s != nil; s = s.Parent {
		if decls := m.symbols[symbolKey{owner: ownerOf(s), name: name}]; len(decls) > 0 {
			return entity{decls: decls}
		}
		if imp := s.Import(name); imp != nil {
			return m.resolveImport(s, imp, visited)
		}
	}
	if decls := m.symbols[symbolKey{owner: globalOwner{}, name: name}]; len(decls) > 0 {
		return entity{decls: decls}
	}
	return entity{}
}

func (m *Model) resolveImport(s *parsers.Scope, imp *parsers.Import, visited map[exportKey]bool) entity {
	modules := m.program.ModuleScopes(s.File.Path, imp.Source)
	if imp.Namespace {
		if len(modules) == 0 {
			return entity{unresolved: imp.Local}
		}
		return entity{module: modules, isModule: true}
	}

	e := m.exportOf(modules, imp.Imported, visited)
	if !e.found() {
		name := imp.Imported
		if name == "default" {
			name = imp.Local
		}
		return entity{unresolved: name}
	}
	return e
}

type exportKey struct {
	scope *parsers.Scope
	name  string
}

// exportOf finds what the module made of scopes exports under name,
// following export lists, re-exports and star exports. visited guards
// against re-export cycles.
func (m *Model) exportOf(scopes []*parsers.Scope, name string, visited map[exportKey]bool) entity {
	for _, sc := range scopes {
		key := exportKey{scope: sc, name: name}
		if visited[key] {
			continue
		}
		visited[key] = true

		for _, d := range sc.Declarations {
			if !exportedAs(sc, d, name) {
				continue
			}
			return entity{decls: m.symbols[keyOf(d)]}
		}

		for _, exp := range sc.Exports {
			if exp.Exported != name {
				continue
			}
			switch {
			case exp.Star:
				modules := m.program.ModuleScopes(sc.File.Path, exp.Source)
				if len(modules) > 0 {
					return entity{module: modules, isModule: true}
				}
			case exp.Source != "":
				modules := m.program.ModuleScopes(sc.File.Path, exp.Source)
				if e := m.exportOf(modules, exp.Local, visited); e.found() {
					return e
				}
			default:
				if e := m.resolveName(sc, exp.Local, visited); e.found() {
					return e
				}
			}
		}

		if name == "default" {
			continue
		}
		for _, exp := range sc.Exports {
			if !exp.Star || exp.Exported != "" {
				continue
			}
			modules := m.program.ModuleScopes(sc.File.Path, exp.Source)
			if e := m.exportOf(modules, name, visited); e.found() {
				return e
			}
		}
	}
	return entity{}
}

func exportedAs(sc *parsers.Scope, d *parsers.Declaration, name string) bool {
	if d.Kind == parsers.DeclModule || d.Kind == parsers.DeclGlobal {
		return false
	}
	if name == "default" {
		return d.Default
	}
	if d.Name != name || d.Default {
		return false
	}
	return d.Exported || sc.ExportsAll()
}

// member looks up segment inside a namespace or module namespace object.
func (m *Model) member(e entity, segment string, visited map[exportKey]bool) entity {
	if e.isModule {
		return m.exportOf(e.module, segment, visited)
	}
	for _, d := range e.decls {
		if d.Kind != parsers.DeclNamespace || d.Body == nil {
			continue
		}
		if decls := m.symbols[symbolKey{owner: ownerOf(d.Body), name: segment}]; len(decls) > 0 {
			return entity{decls: decls}
		}
	}
	return entity{}
}
