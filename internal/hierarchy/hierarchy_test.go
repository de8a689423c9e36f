package hierarchy

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/infer-dos/internal/parsers"
	"github.com/mvp-joe/infer-dos/internal/semantic"
	"github.com/mvp-joe/infer-dos/internal/tsconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for hierarchy:
// - Build() collects every type reachable through base types and heritage
// - PathTo() returns the shortest chain to the marker
// - PathTo() reports false when the marker is unreachable
// - PathTo() handles a root that is itself the marker
// - cycles do not loop
// - WriteDOT() renders nodes and edge labels
// - Build() rejects a nil root

func buildModel(t *testing.T, source string) (*semantic.Model, *parsers.SourceFile) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte("{}"), 0644))
	entry := filepath.Join(dir, "index.ts")
	require.NoError(t, os.WriteFile(entry, []byte(source), 0644))

	cfg, err := tsconfig.Load(filepath.Join(dir, "tsconfig.json"))
	require.NoError(t, err)
	program, err := semantic.NewProgram(context.Background(), cfg, entry, semantic.ProgramOptions{
		Parser: parsers.NewTypeScriptParser(),
	})
	require.NoError(t, err)

	return semantic.NewModel(program), program.Entry()
}

func classType(t *testing.T, m *semantic.Model, file *parsers.SourceFile, name string) *semantic.Type {
	t.Helper()
	decls := file.Root.Lookup(name)
	require.NotEmpty(t, decls)
	return m.TypeOfDeclaration(decls[0])
}

func labels(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Label())
	}
	return out
}

func TestBuild_PathToMarker(t *testing.T) {
	t.Parallel()

	m, file := buildModel(t, `
interface Lifecycle extends DurableObject {}
class Base implements Lifecycle {}
class Middle extends Base {}
export class Leaf extends Middle implements DurableObject {}
`)

	h, err := Build(m, classType(t, m, file, "Leaf"))
	require.NoError(t, err)

	assert.Equal(t, "Leaf", h.Root().Name)
	assert.Equal(t, file.Path, h.Root().File)
	assert.Equal(t, 5, h.Root().Line)
	assert.ElementsMatch(t,
		[]string{"Leaf", "Middle", "DurableObject", "Base", "Lifecycle"},
		labels(h.Nodes()))

	path, ok := h.PathTo("DurableObject")
	require.True(t, ok)
	assert.Equal(t, []string{"Leaf", "DurableObject"}, labels(path))

	path, ok = h.PathTo("Lifecycle")
	require.True(t, ok)
	assert.Equal(t, []string{"Leaf", "Middle", "Base", "Lifecycle"}, labels(path))

	kinds := make(map[string]EdgeKind)
	for _, e := range h.Edges() {
		kinds[e.From+"->"+e.To] = e.Kind
	}
	assert.Contains(t, kinds, h.Root().ID+"->"+path[1].ID)
	assert.Equal(t, EdgeBase, kinds[h.Root().ID+"->"+path[1].ID])
}

func TestBuild_Unreachable(t *testing.T) {
	t.Parallel()

	m, file := buildModel(t, `
class Base {}
export class Leaf extends Base {}
`)

	h, err := Build(m, classType(t, m, file, "Leaf"))
	require.NoError(t, err)

	_, ok := h.PathTo("DurableObject")
	assert.False(t, ok)
	assert.Len(t, h.Nodes(), 2)
}

func TestBuild_RootIsMarker(t *testing.T) {
	t.Parallel()

	m, file := buildModel(t, `export class DurableObject {}`)

	h, err := Build(m, classType(t, m, file, "DurableObject"))
	require.NoError(t, err)

	path, ok := h.PathTo("DurableObject")
	require.True(t, ok)
	assert.Equal(t, []string{"DurableObject"}, labels(path))
}

func TestBuild_Cycle(t *testing.T) {
	t.Parallel()

	m, file := buildModel(t, `
export class A extends B {}
export class B extends A {}
`)

	h, err := Build(m, classType(t, m, file, "A"))
	require.NoError(t, err)
	assert.Len(t, h.Nodes(), 2)
	assert.Len(t, h.Edges(), 2)

	_, ok := h.PathTo("DurableObject")
	assert.False(t, ok)
}

func TestWriteDOT(t *testing.T) {
	t.Parallel()

	m, file := buildModel(t, `export class Leaf implements DurableObject {}`)

	h, err := Build(m, classType(t, m, file, "Leaf"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.WriteDOT(&buf))

	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "Leaf")
	assert.Contains(t, out, "DurableObject")
	assert.Contains(t, out, "implements")
}

func TestBuild_NilRoot(t *testing.T) {
	t.Parallel()

	m, _ := buildModel(t, `export class A {}`)
	_, err := Build(m, nil)
	assert.Error(t, err)
}

func TestNode_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Foo", (&Node{Name: "Foo", Kind: "class"}).Label())
	assert.Equal(t, "<anonymous>", (&Node{Kind: "anonymous"}).Label())
}
