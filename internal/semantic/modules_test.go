package semantic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/infer-dos/internal/tsconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for module resolution:
// - relative specifiers probe .ts, .tsx and .d.ts extensions
// - .js specifiers map back to .ts sources and .d.ts declarations
// - directories resolve through index files and package.json types
// - compilerOptions.paths wildcards resolve against PathsBase
// - baseUrl resolves bare specifiers
// - node_modules packages resolve through types, typings and exports
// - exports subpaths and wildcard subpaths resolve
// - scoped packages fall back to @types/scope__name
// - lookup walks up parent node_modules directories
// - node_modules lookup can be disabled
// - unresolvable specifiers return ""
// - type references resolve through typeRoots

// writeProject writes files (relative path -> content) under a temp dir.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestResolve_Relative(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"src/a.ts":                "",
		"src/view.tsx":            "",
		"src/decl.d.ts":           "",
		"src/emitted.ts":          "",
		"src/lib/index.ts":        "",
		"src/pkg/package.json":    `{"types": "./types/main.d.ts"}`,
		"src/pkg/types/main.d.ts": "",
	})
	r := newModuleResolver(tsconfig.CompilerOptions{}, true)
	src := filepath.Join(dir, "src")

	tests := []struct {
		spec     string
		expected string
	}{
		{"./a", filepath.Join(src, "a.ts")},
		{"./a.ts", filepath.Join(src, "a.ts")},
		{"./view", filepath.Join(src, "view.tsx")},
		{"./decl", filepath.Join(src, "decl.d.ts")},
		{"./emitted.js", filepath.Join(src, "emitted.ts")},
		{"./lib", filepath.Join(src, "lib", "index.ts")},
		{"./pkg", filepath.Join(src, "pkg", "types", "main.d.ts")},
		{"../src/a", filepath.Join(src, "a.ts")},
		{"./missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.resolve(tt.spec, src))
		})
	}
}

func TestResolve_PathsAndBaseURL(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"src/lib/objects.ts":  "",
		"src/shared/util.ts":  "",
		"src/exact/target.ts": "",
	})
	src := filepath.Join(dir, "src")
	r := newModuleResolver(tsconfig.CompilerOptions{
		BaseURL:   src,
		PathsBase: src,
		Paths: map[string][]string{
			"@/*":   {"missing/*", "lib/*"},
			"exact": {"exact/target"},
		},
	}, true)

	assert.Equal(t, filepath.Join(src, "lib", "objects.ts"), r.resolve("@/objects", dir))
	assert.Equal(t, filepath.Join(src, "exact", "target.ts"), r.resolve("exact", dir))
	assert.Equal(t, filepath.Join(src, "shared", "util.ts"), r.resolve("shared/util", dir))
	assert.Equal(t, "", r.resolve("@/nothing", dir))
}

func TestResolve_NodeModules(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"node_modules/typed/package.json":    `{"types": "dist/index.d.ts"}`,
		"node_modules/typed/dist/index.d.ts": "",

		"node_modules/legacy/package.json":    `{"typings": "lib/legacy.d.ts", "main": "lib/legacy.js"}`,
		"node_modules/legacy/lib/legacy.d.ts": "",

		"node_modules/mainonly/package.json":   `{"main": "./dist/main.js"}`,
		"node_modules/mainonly/dist/main.d.ts": "",

		"node_modules/bare/index.d.ts": "",

		"node_modules/partyserver/package.json": `{
  "exports": {
    ".": { "types": "./dist/index.d.ts", "import": "./dist/index.js" },
    "./react": { "import": "./dist/react.js" },
    "./sub/*": "./dist/sub/*.js"
  }
}`,
		"node_modules/partyserver/dist/index.d.ts": "",
		"node_modules/partyserver/dist/react.d.ts": "",
		"node_modules/partyserver/dist/sub/x.d.ts": "",

		"node_modules/conditions/package.json": `{"exports": {"types": "./types.d.ts", "default": "./index.js"}}`,
		"node_modules/conditions/types.d.ts":   "",

		"node_modules/@cloudflare/actors/package.json":    `{"types": "./dist/index.d.ts"}`,
		"node_modules/@cloudflare/actors/dist/index.d.ts": "",

		"node_modules/@types/node/index.d.ts":       "",
		"node_modules/@types/scope__lib/index.d.ts": "",
		"node_modules/@types/withsub/extra.d.ts":    "",
	})
	r := newModuleResolver(tsconfig.CompilerOptions{}, true)
	nested := filepath.Join(dir, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0755))
	nm := filepath.Join(dir, "node_modules")

	tests := []struct {
		spec     string
		expected string
	}{
		{"typed", filepath.Join(nm, "typed", "dist", "index.d.ts")},
		{"legacy", filepath.Join(nm, "legacy", "lib", "legacy.d.ts")},
		{"mainonly", filepath.Join(nm, "mainonly", "dist", "main.d.ts")},
		{"bare", filepath.Join(nm, "bare", "index.d.ts")},
		{"partyserver", filepath.Join(nm, "partyserver", "dist", "index.d.ts")},
		{"partyserver/react", filepath.Join(nm, "partyserver", "dist", "react.d.ts")},
		{"partyserver/sub/x", filepath.Join(nm, "partyserver", "dist", "sub", "x.d.ts")},
		{"conditions", filepath.Join(nm, "conditions", "types.d.ts")},
		{"@cloudflare/actors", filepath.Join(nm, "@cloudflare", "actors", "dist", "index.d.ts")},
		{"node", filepath.Join(nm, "@types", "node", "index.d.ts")},
		{"@scope/lib", filepath.Join(nm, "@types", "scope__lib", "index.d.ts")},
		{"withsub/extra", filepath.Join(nm, "@types", "withsub", "extra.d.ts")},
		{"cloudflare:workers", ""},
		{"not-installed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.resolve(tt.spec, nested))
		})
	}
}

func TestResolve_NodeModulesDisabled(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"node_modules/typed/index.d.ts": "",
		"local.ts":                      "",
	})
	r := newModuleResolver(tsconfig.CompilerOptions{}, false)

	assert.Equal(t, "", r.resolve("typed", dir))
	assert.Equal(t, filepath.Join(dir, "local.ts"), r.resolve("./local", dir))
}

func TestResolveTypeReference(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, map[string]string{
		"node_modules/@cloudflare/workers-types/package.json": `{"types": "./index.d.ts"}`,
		"node_modules/@cloudflare/workers-types/index.d.ts":   "",
		"node_modules/@types/node/index.d.ts":                 "",
		"custom-types/env/index.d.ts":                         "",
	})

	r := newModuleResolver(tsconfig.CompilerOptions{}, true)
	assert.Equal(t,
		filepath.Join(dir, "node_modules", "@cloudflare", "workers-types", "index.d.ts"),
		r.resolveTypeReference("@cloudflare/workers-types", dir))
	assert.Equal(t,
		filepath.Join(dir, "node_modules", "@types", "node", "index.d.ts"),
		r.resolveTypeReference("node", dir))
	assert.Equal(t,
		[]string{filepath.Join(dir, "node_modules", "@types", "node", "index.d.ts")},
		r.automaticTypePackages(dir))

	custom := newModuleResolver(tsconfig.CompilerOptions{
		TypeRoots: []string{filepath.Join(dir, "custom-types")},
	}, true)
	assert.Equal(t,
		filepath.Join(dir, "custom-types", "env", "index.d.ts"),
		custom.resolveTypeReference("env", dir))
	assert.Equal(t,
		[]string{filepath.Join(dir, "custom-types", "env", "index.d.ts")},
		custom.automaticTypePackages(dir))
}

func TestExportsTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exports  string
		subpath  string
		expected string
		ok       bool
	}{
		{"string root", `"./index.js"`, ".", "./index.js", true},
		{"string subpath", `"./index.js"`, "./x", "", false},
		{"conditions", `{"import": "./a.js", "types": "./a.d.ts"}`, ".", "./a.d.ts", true},
		{"nested conditions", `{".": {"import": {"types": "./n.d.ts", "default": "./n.js"}}}`, ".", "./n.d.ts", true},
		{"array", `[{"worker": "./w.js"}, "./fallback.js"]`, ".", "./w.js", true},
		{"subpath", `{"./client": "./client.js"}`, "./client", "./client.js", true},
		{"wildcard", `{"./*": {"types": "./types/*.d.ts"}}`, "./a/b", "./types/a/b.d.ts", true},
		{"missing", `{"./client": "./client.js"}`, "./server", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := exportsTarget(json.RawMessage(tt.exports), tt.subpath)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, target)
		})
	}
}

func TestSplitPackageSpecifier(t *testing.T) {
	t.Parallel()

	name, sub := splitPackageSpecifier("@cloudflare/actors/alarms")
	assert.Equal(t, "@cloudflare/actors", name)
	assert.Equal(t, "alarms", sub)

	name, sub = splitPackageSpecifier("agents")
	assert.Equal(t, "agents", name)
	assert.Equal(t, "", sub)

	name, _ = splitPackageSpecifier("@broken")
	assert.Equal(t, "", name)

	assert.Equal(t, "cloudflare__actors", typesPackageName("@cloudflare/actors"))
	assert.Equal(t, "node", typesPackageName("node"))
}
