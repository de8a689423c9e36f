package parsers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// FileParser turns a TypeScript file on disk into a declaration tree.
type FileParser interface {
	ParseFile(ctx context.Context, filePath string) (*SourceFile, error)
}

// TypeScriptParser parses TypeScript and TSX files.
type TypeScriptParser struct {
	typescript *sitter.Language
	tsx        *sitter.Language
}

// NewTypeScriptParser creates a new TypeScript parser.
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{
		typescript: sitter.NewLanguage(typescript.LanguageTypescript()),
		tsx:        sitter.NewLanguage(typescript.LanguageTSX()),
	}
}

// ParseFile reads and parses a TypeScript source file.
func (p *TypeScriptParser) ParseFile(ctx context.Context, filePath string) (*SourceFile, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, filePath, source)
}

// Parse builds the declaration tree for source. Syntax errors do not fail the
// parse; tree-sitter recovers and the file is flagged with HasErrors.
func (p *TypeScriptParser) Parse(ctx context.Context, filePath string, source []byte) (*SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	lang := p.typescript
	if strings.HasSuffix(filePath, ".tsx") {
		lang = p.tsx
	}
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set typescript language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse typescript file: %s", filePath)
	}
	defer tree.Close()

	rootNode := tree.RootNode()

	file := &SourceFile{
		Path:        filePath,
		Declaration: IsDeclarationFile(filePath),
		HasErrors:   rootNode.HasError(),
	}
	file.Root = newScope(ScopeFile, filePath, nil, file)
	file.Root.Ambient = file.Declaration

	b := &builder{source: source, file: file}
	b.collectReferences(rootNode)
	b.statements(rootNode, file.Root, modifiers{})

	return file, nil
}

// IsDeclarationFile reports whether path names a .d.ts style declaration file.
func IsDeclarationFile(path string) bool {
	return strings.HasSuffix(path, ".d.ts") ||
		strings.HasSuffix(path, ".d.mts") ||
		strings.HasSuffix(path, ".d.cts")
}

type modifiers struct {
	exported  bool
	isDefault bool
	ambient   bool
}

// builder converts tree-sitter nodes into the declaration tree of one file.
type builder struct {
	source []byte
	file   *SourceFile
}

func (b *builder) text(node *sitter.Node) string {
	return extractNodeText(node, b.source)
}

// statements visits the statements directly under parent.
func (b *builder) statements(parent *sitter.Node, scope *Scope, mods modifiers) {
	for _, n := range namedChildren(parent) {
		b.statement(n, scope, mods)
	}
}

func (b *builder) statement(n *sitter.Node, scope *Scope, mods modifiers) {
	switch n.Kind() {
	case "import_statement":
		b.importStatement(n, scope)
	case "export_statement":
		b.exportStatement(n, scope)
	case "class_declaration", "abstract_class_declaration":
		b.classDeclaration(n, scope, mods)
	case "interface_declaration":
		b.interfaceDeclaration(n, scope, mods)
	case "type_alias_declaration":
		b.typeAliasDeclaration(n, scope, mods)
	case "ambient_declaration":
		b.ambientDeclaration(n, scope, mods)
	case "module", "internal_module":
		b.moduleDeclaration(n, scope, mods)
	case "expression_statement":
		// namespace Foo {} parses as an expression at statement level
		for _, child := range namedChildren(n) {
			if child.Kind() == "internal_module" || child.Kind() == "module" {
				b.moduleDeclaration(child, scope, mods)
			}
		}
	}
}

var referencePattern = regexp.MustCompile(`^///\s*<reference\s+(path|types)\s*=\s*["']([^"']+)["']`)

// collectReferences records triple-slash reference directives at file level.
func (b *builder) collectReferences(root *sitter.Node) {
	walkTree(root, func(n *sitter.Node) bool {
		if n == root {
			return true
		}
		if n.Kind() == "comment" {
			m := referencePattern.FindStringSubmatch(b.text(n))
			if m != nil {
				kind := ReferencePath
				if m[1] == "types" {
					kind = ReferenceTypes
				}
				b.file.References = append(b.file.References, Reference{Kind: kind, Value: m[2]})
			}
		}
		return false
	})
}

func (b *builder) importStatement(n *sitter.Node, scope *Scope) {
	if scope.Kind == ScopeFile {
		b.file.External = true
	}

	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		sourceNode = findChildByType(n, "string")
	}
	if sourceNode == nil {
		// import x = require("y") and import aliases are not followed
		return
	}
	source := unquote(b.text(sourceNode))
	typeOnly := hasChildToken(n, "type")

	clause := findChildByType(n, "import_clause")
	if clause == nil {
		scope.Imports = append(scope.Imports, &Import{Source: source})
		return
	}

	for _, c := range namedChildren(clause) {
		switch c.Kind() {
		case "identifier":
			scope.Imports = append(scope.Imports, &Import{
				Local:    b.text(c),
				Imported: "default",
				Source:   source,
				TypeOnly: typeOnly,
			})
		case "namespace_import":
			id := findChildByType(c, "identifier")
			if id == nil {
				continue
			}
			scope.Imports = append(scope.Imports, &Import{
				Local:     b.text(id),
				Source:    source,
				Namespace: true,
				TypeOnly:  typeOnly,
			})
		case "named_imports":
			for _, spec := range namedChildren(c) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				imported := unquote(b.text(nameNode))
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = b.text(alias)
				}
				scope.Imports = append(scope.Imports, &Import{
					Local:    local,
					Imported: imported,
					Source:   source,
					TypeOnly: typeOnly || hasChildToken(spec, "type"),
				})
			}
		}
	}
}

func (b *builder) exportStatement(n *sitter.Node, scope *Scope) {
	if scope.Kind == ScopeFile {
		b.file.External = true
	}

	isDefault := hasChildToken(n, "default")
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		b.statement(decl, scope, modifiers{exported: true, isDefault: isDefault, ambient: scope.Ambient})
		return
	}

	if value := n.ChildByFieldName("value"); value != nil {
		// export default Foo;
		if isDefault && value.Kind() == "identifier" {
			scope.Exports = append(scope.Exports, &Export{Local: b.text(value), Exported: "default"})
		}
		return
	}

	source := ""
	if sourceNode := n.ChildByFieldName("source"); sourceNode != nil {
		source = unquote(b.text(sourceNode))
	}

	if clause := findChildByType(n, "export_clause"); clause != nil {
		for _, spec := range namedChildren(clause) {
			if spec.Kind() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			local := unquote(b.text(nameNode))
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = unquote(b.text(alias))
			}
			scope.Exports = append(scope.Exports, &Export{Local: local, Exported: exported, Source: source})
		}
		return
	}

	if ns := findChildByType(n, "namespace_export"); ns != nil {
		children := namedChildren(ns)
		if len(children) > 0 && source != "" {
			name := unquote(b.text(children[len(children)-1]))
			scope.Exports = append(scope.Exports, &Export{Exported: name, Source: source, Star: true})
		}
		return
	}

	if hasChildToken(n, "*") && source != "" {
		scope.Exports = append(scope.Exports, &Export{Source: source, Star: true})
	}
}

func (b *builder) classDeclaration(n *sitter.Node, scope *Scope, mods modifiers) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	d := &Declaration{
		Kind:     DeclClass,
		Name:     b.text(nameNode),
		Exported: mods.exported,
		Default:  mods.isDefault,
		Ambient:  mods.ambient || scope.Ambient,
		Abstract: n.Kind() == "abstract_class_declaration",
		Line:     startLine(n),
	}

	if heritage := findChildByType(n, "class_heritage"); heritage != nil {
		for _, c := range namedChildren(heritage) {
			switch c.Kind() {
			case "extends_clause":
				clause := HeritageClause{Kind: HeritageExtends}
				for _, v := range namedChildren(c) {
					if v.Kind() == "type_arguments" {
						if len(clause.Types) > 0 {
							clause.Types[len(clause.Types)-1].TypeArgs = int(v.NamedChildCount())
						}
						continue
					}
					clause.Types = append(clause.Types, b.expressionRef(v))
				}
				d.Heritage = append(d.Heritage, clause)
			case "implements_clause":
				clause := HeritageClause{Kind: HeritageImplements}
				for _, t := range namedChildren(c) {
					clause.Types = append(clause.Types, b.typeRef(t))
				}
				d.Heritage = append(d.Heritage, clause)
			}
		}
	}

	scope.add(d)
}

func (b *builder) interfaceDeclaration(n *sitter.Node, scope *Scope, mods modifiers) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	d := &Declaration{
		Kind:     DeclInterface,
		Name:     b.text(nameNode),
		Exported: mods.exported,
		Default:  mods.isDefault,
		Ambient:  mods.ambient || scope.Ambient,
		Line:     startLine(n),
	}

	if ext := findChildByType(n, "extends_type_clause"); ext != nil {
		clause := HeritageClause{Kind: HeritageExtends}
		for _, t := range namedChildren(ext) {
			clause.Types = append(clause.Types, b.typeRef(t))
		}
		d.Heritage = append(d.Heritage, clause)
	}

	scope.add(d)
}

func (b *builder) typeAliasDeclaration(n *sitter.Node, scope *Scope, mods modifiers) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	d := &Declaration{
		Kind:     DeclTypeAlias,
		Name:     b.text(nameNode),
		Exported: mods.exported,
		Ambient:  mods.ambient || scope.Ambient,
		Line:     startLine(n),
	}
	if value := n.ChildByFieldName("value"); value != nil {
		if ref := b.typeRef(value); ref.IsName() {
			d.Aliased = &ref
		}
	}

	scope.add(d)
}

func (b *builder) ambientDeclaration(n *sitter.Node, scope *Scope, mods modifiers) {
	mods.ambient = true

	if hasChildToken(n, "global") {
		d := &Declaration{
			Kind:    DeclGlobal,
			Name:    "global",
			Ambient: true,
			Line:    startLine(n),
		}
		d.Body = newScope(ScopeGlobal, "global", scope, b.file)
		d.Body.Ambient = true
		scope.add(d)
		if block := findChildByType(n, "statement_block"); block != nil {
			b.statements(block, d.Body, modifiers{ambient: true})
		}
		return
	}

	for _, c := range namedChildren(n) {
		b.statement(c, scope, mods)
	}
}

// moduleDeclaration handles namespace Foo {}, namespace A.B {} and
// declare module "name" {}.
func (b *builder) moduleDeclaration(n *sitter.Node, scope *Scope, mods modifiers) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	body := n.ChildByFieldName("body")
	ambient := mods.ambient || scope.Ambient

	if nameNode.Kind() == "string" {
		d := &Declaration{
			Kind:     DeclModule,
			Name:     unquote(b.text(nameNode)),
			Exported: mods.exported,
			Ambient:  true,
			Line:     startLine(n),
		}
		d.Body = newScope(ScopeModule, d.Name, scope, b.file)
		d.Body.Ambient = true
		scope.add(d)
		if body != nil {
			b.statements(body, d.Body, modifiers{ambient: true})
		}
		return
	}

	path := splitQualifiedName(b.text(nameNode))
	if len(path) == 0 {
		return
	}

	target := scope
	exported := mods.exported
	for i, segment := range path {
		d := &Declaration{
			Kind:     DeclNamespace,
			Name:     segment,
			Exported: exported,
			Ambient:  ambient,
			Line:     startLine(n),
		}
		d.Body = newScope(ScopeNamespace, segment, target, b.file)
		d.Body.Ambient = ambient
		target.add(d)
		target = d.Body
		// inner segments of namespace A.B are implicitly exported
		if i == 0 {
			exported = true
		}
	}

	if body != nil {
		b.statements(body, target, modifiers{ambient: ambient})
	}
}

// expressionRef converts an extends clause expression into a TypeRef.
func (b *builder) expressionRef(n *sitter.Node) TypeRef {
	text := strings.TrimSpace(b.text(n))
	ref := TypeRef{Text: text}
	switch n.Kind() {
	case "identifier", "member_expression", "nested_identifier", "type_identifier":
		ref.Path = splitQualifiedName(text)
	}
	return ref
}

// typeRef converts a type node into a TypeRef, unwrapping generic
// instantiations to their underlying named type.
func (b *builder) typeRef(n *sitter.Node) TypeRef {
	text := strings.TrimSpace(b.text(n))
	ref := TypeRef{Text: text}
	switch n.Kind() {
	case "generic_type":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			ref.Path = splitQualifiedName(b.text(nameNode))
		}
		if args := n.ChildByFieldName("type_arguments"); args != nil {
			ref.TypeArgs = int(args.NamedChildCount())
		}
	case "type_identifier", "nested_type_identifier", "identifier", "member_expression":
		ref.Path = splitQualifiedName(text)
	}
	return ref
}
