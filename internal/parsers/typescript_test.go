package parsers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for TypeScript Parser:
// - Exported and non-exported classes are recorded with the right flags
// - Abstract, default and declare classes are recognised
// - extends and implements clauses are tagged and keep source order
// - Generic heritage (Base<T>) keeps the underlying name and arg count
// - Qualified heritage (cf.DurableObject) is split into a path
// - Mixin calls produce a non-name TypeRef
// - Interfaces record extended interfaces
// - Type aliases record their target only when it is a name
// - Imports: named, aliased, default, namespace, side-effect, type-only
// - Exports: specifiers, re-exports, star, star-as, export default identifier
// - Namespaces (including dotted) and ambient modules build nested scopes
// - declare global contributes a global scope
// - Script files are not External; files with import/export are
// - Triple-slash references are collected
// - Declaration files are flagged and their namespaces export everything
// - Syntax errors do not fail the parse
// - CachingParser reuses unchanged files and re-parses modified ones

func parse(t *testing.T, path, src string) *SourceFile {
	t.Helper()
	file, err := NewTypeScriptParser().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
}

func findDecl(t *testing.T, scope *Scope, name string) *Declaration {
	t.Helper()
	decls := scope.Lookup(name)
	require.NotEmpty(t, decls, "declaration %s not found", name)
	return decls[0]
}

func TestTypeScriptParser_ClassExportFlags(t *testing.T) {
	t.Parallel()

	file := parse(t, "input.ts", `
export class A implements DurableObject {}
class B implements DurableObject {}
export default class C {}
export abstract class D {}
export declare class E {}
`)

	require.Len(t, file.Root.Declarations, 5)

	a := findDecl(t, file.Root, "A")
	assert.True(t, a.IsClass())
	assert.True(t, a.Exported)
	assert.False(t, a.Default)
	assert.Equal(t, 2, a.Line)

	b := findDecl(t, file.Root, "B")
	assert.False(t, b.Exported)

	c := findDecl(t, file.Root, "C")
	assert.True(t, c.Exported)
	assert.True(t, c.Default)

	d := findDecl(t, file.Root, "D")
	assert.True(t, d.Abstract)
	assert.True(t, d.Exported)

	e := findDecl(t, file.Root, "E")
	assert.True(t, e.Ambient)
	assert.True(t, e.Exported)
	assert.True(t, file.External)
}

func TestTypeScriptParser_Heritage(t *testing.T) {
	t.Parallel()

	file := parse(t, "input.ts", `
export class MyAgent extends Agent<{}, {}> implements First, ns.Second<string> {}
export class Mixed extends Mixin(Base) {}
export class Qualified extends cf.DurableObject {}
`)

	agent := findDecl(t, file.Root, "MyAgent")
	require.Len(t, agent.Heritage, 2)

	ext := agent.Heritage[0]
	assert.Equal(t, HeritageExtends, ext.Kind)
	require.Len(t, ext.Types, 1)
	assert.Equal(t, []string{"Agent"}, ext.Types[0].Path)
	assert.Equal(t, 2, ext.Types[0].TypeArgs)

	impl := agent.Heritage[1]
	assert.Equal(t, HeritageImplements, impl.Kind)
	require.Len(t, impl.Types, 2)
	assert.Equal(t, "First", impl.Types[0].Name())
	assert.Equal(t, []string{"ns", "Second"}, impl.Types[1].Path)
	assert.Equal(t, 1, impl.Types[1].TypeArgs)

	mixed := findDecl(t, file.Root, "Mixed")
	require.Len(t, mixed.Heritage, 1)
	require.Len(t, mixed.Heritage[0].Types, 1)
	assert.False(t, mixed.Heritage[0].Types[0].IsName())
	assert.Equal(t, "Mixin(Base)", mixed.Heritage[0].Types[0].Name())

	qualified := findDecl(t, file.Root, "Qualified")
	assert.Equal(t, []string{"cf", "DurableObject"}, qualified.Heritage[0].Types[0].Path)
}

func TestTypeScriptParser_InterfacesAndAliases(t *testing.T) {
	t.Parallel()

	file := parse(t, "types.ts", `
interface Room extends Base, Other<number> {}
type DO = DurableObject;
type Generic<T> = Base<T>;
type Shape = { id: string };
`)

	room := findDecl(t, file.Root, "Room")
	assert.Equal(t, DeclInterface, room.Kind)
	require.Len(t, room.Heritage, 1)
	assert.Equal(t, HeritageExtends, room.Heritage[0].Kind)
	require.Len(t, room.Heritage[0].Types, 2)
	assert.Equal(t, "Other", room.Heritage[0].Types[1].Name())

	do := findDecl(t, file.Root, "DO")
	assert.Equal(t, DeclTypeAlias, do.Kind)
	require.NotNil(t, do.Aliased)
	assert.Equal(t, "DurableObject", do.Aliased.Name())

	generic := findDecl(t, file.Root, "Generic")
	require.NotNil(t, generic.Aliased)
	assert.Equal(t, "Base", generic.Aliased.Name())

	shape := findDecl(t, file.Root, "Shape")
	assert.Nil(t, shape.Aliased)

	assert.False(t, file.External)
	assert.True(t, file.Root.ContributesGlobals())
}

func TestTypeScriptParser_Imports(t *testing.T) {
	t.Parallel()

	file := parse(t, "imports.ts", `
import { Server } from "partyserver";
import { DurableObject as DO } from "cloudflare:workers";
import Default from "./default";
import * as cf from "cloudflare:workers";
import type { Env } from "./env";
import "./side-effect";
`)

	assert.True(t, file.External)
	require.Len(t, file.Root.Imports, 6)

	server := file.Root.Import("Server")
	require.NotNil(t, server)
	assert.Equal(t, "Server", server.Imported)
	assert.Equal(t, "partyserver", server.Source)

	do := file.Root.Import("DO")
	require.NotNil(t, do)
	assert.Equal(t, "DurableObject", do.Imported)

	def := file.Root.Import("Default")
	require.NotNil(t, def)
	assert.Equal(t, "default", def.Imported)

	ns := file.Root.Import("cf")
	require.NotNil(t, ns)
	assert.True(t, ns.Namespace)

	env := file.Root.Import("Env")
	require.NotNil(t, env)
	assert.True(t, env.TypeOnly)

	assert.Equal(t, []string{
		"partyserver", "cloudflare:workers", "./default", "./env", "./side-effect",
	}, file.ModuleSpecifiers())
}

func TestTypeScriptParser_Exports(t *testing.T) {
	t.Parallel()

	file := parse(t, "index.ts", `
class Local {}
export { Local, Local as Renamed };
export { Server } from "./server";
export * from "./all";
export * as tools from "./tools";
export default Local;
`)

	exports := file.Root.Exports
	require.Len(t, exports, 6)

	assert.Equal(t, &Export{Local: "Local", Exported: "Local"}, exports[0])
	assert.Equal(t, &Export{Local: "Local", Exported: "Renamed"}, exports[1])
	assert.Equal(t, &Export{Local: "Server", Exported: "Server", Source: "./server"}, exports[2])
	assert.Equal(t, &Export{Source: "./all", Star: true}, exports[3])
	assert.Equal(t, &Export{Exported: "tools", Source: "./tools", Star: true}, exports[4])
	assert.Equal(t, &Export{Local: "Local", Exported: "default"}, exports[5])
}

func TestTypeScriptParser_NamespacesAndModules(t *testing.T) {
	t.Parallel()

	file := parse(t, "workers.d.ts", `
/// <reference types="node" />
/// <reference path="./extra.d.ts" />
interface DurableObject {}
declare module "cloudflare:workers" {
  export abstract class DurableObject<Env = unknown> {}
  class Hidden {}
}
declare namespace Outer.Inner {
  interface Nested {}
}
`)

	assert.True(t, file.Declaration)
	assert.False(t, file.External)
	assert.Equal(t, []Reference{
		{Kind: ReferenceTypes, Value: "node"},
		{Kind: ReferencePath, Value: "./extra.d.ts"},
	}, file.References)

	mod := findDecl(t, file.Root, "cloudflare:workers")
	assert.Equal(t, DeclModule, mod.Kind)
	require.NotNil(t, mod.Body)
	assert.Equal(t, ScopeModule, mod.Body.Kind)
	assert.True(t, mod.Body.ExportsAll())

	do := findDecl(t, mod.Body, "DurableObject")
	assert.True(t, do.Abstract)
	assert.True(t, do.Exported)
	assert.Equal(t, mod.Body, do.Scope)

	outer := findDecl(t, file.Root, "Outer")
	assert.Equal(t, DeclNamespace, outer.Kind)
	inner := findDecl(t, outer.Body, "Inner")
	require.NotNil(t, inner.Body)
	nested := findDecl(t, inner.Body, "Nested")
	assert.Equal(t, DeclInterface, nested.Kind)
	assert.True(t, inner.Body.ExportsAll())
}

func TestTypeScriptParser_ExportedNamespace(t *testing.T) {
	t.Parallel()

	file := parse(t, "ns.ts", `
export namespace Objects {
  export class Counter implements DurableObject {}
  class Private implements DurableObject {}
}
declare global {
  interface DurableObject {}
}
`)

	objects := findDecl(t, file.Root, "Objects")
	assert.True(t, objects.Exported)
	require.NotNil(t, objects.Body)
	assert.False(t, objects.Body.ExportsAll())

	counter := findDecl(t, objects.Body, "Counter")
	assert.True(t, counter.Exported)
	private := findDecl(t, objects.Body, "Private")
	assert.False(t, private.Exported)

	global := findDecl(t, file.Root, "global")
	assert.Equal(t, DeclGlobal, global.Kind)
	assert.True(t, global.Body.ContributesGlobals())
	findDecl(t, global.Body, "DurableObject")
}

func TestTypeScriptParser_SyntaxErrors(t *testing.T) {
	t.Parallel()

	file := parse(t, "broken.ts", `
export class Good implements DurableObject {}
export class Broken extends {
`)

	assert.True(t, file.HasErrors)
	findDecl(t, file.Root, "Good")
}

func TestTypeScriptParser_TSX(t *testing.T) {
	t.Parallel()

	file := parse(t, "component.tsx", `
export class View extends Base {
  render() { return <div />; }
}
`)

	view := findDecl(t, file.Root, "View")
	assert.Equal(t, "Base", view.Heritage[0].Types[0].Name())
}

func TestTypeScriptParser_EmptyFile(t *testing.T) {
	t.Parallel()

	file := parse(t, "empty.ts", "")
	assert.Empty(t, file.Root.Declarations)
	assert.False(t, file.HasErrors)
}

func TestTypeScriptParser_ParseFileMissing(t *testing.T) {
	t.Parallel()

	_, err := NewTypeScriptParser().ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.ts"))
	assert.Error(t, err)
}

func TestCachingParser_ReusesUnchangedFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "input.ts")
	require.NoError(t, os.WriteFile(path, []byte("export class A {}\n"), 0644))

	cp, err := NewCachingParser(NewTypeScriptParser(), 16)
	require.NoError(t, err)
	defer cp.Close()

	first, err := cp.ParseFile(context.Background(), path)
	require.NoError(t, err)
	second, err := cp.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Different size and a later mtime force a re-parse
	require.NoError(t, os.WriteFile(path, []byte("export class A {}\nexport class B {}\n"), 0644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := cp.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, third.Root.Declarations, 2)

	cp.Invalidate(path)
	fourth, err := cp.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, third, fourth)
}
