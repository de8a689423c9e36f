package semantic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/infer-dos/internal/tsconfig"
)

// sourceExtensions is the probing order for extensionless specifiers.
var sourceExtensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".d.mts", ".cts", ".d.cts"}

// jsExtensions maps an emitted-JavaScript extension to the source and
// declaration extensions it may have been compiled from.
var jsExtensions = map[string][]string{
	".js":  {".ts", ".tsx", ".d.ts"},
	".jsx": {".tsx", ".d.ts"},
	".mjs": {".mts", ".d.mts"},
	".cjs": {".cts", ".d.cts"},
}

// exportConditions are the package.json "exports" conditions honoured, in
// order of preference.
var exportConditions = []string{"types", "typings", "workerd", "worker", "import", "module", "node", "default", "require"}

type packageJSON struct {
	Types   string          `json:"types"`
	Typings string          `json:"typings"`
	Main    string          `json:"main"`
	Exports json.RawMessage `json:"exports"`
}

// moduleResolver maps module specifiers to files on disk following the
// TypeScript "bundler" style rules: relative paths, compilerOptions.paths,
// baseUrl and node_modules packages with @types fallbacks.
type moduleResolver struct {
	options     tsconfig.CompilerOptions
	nodeModules bool
	cache       map[resolutionKey]string
	packages    map[string]*packageJSON
}

type resolutionKey struct {
	dir  string
	spec string
}

func newModuleResolver(options tsconfig.CompilerOptions, nodeModules bool) *moduleResolver {
	return &moduleResolver{
		options:     options,
		nodeModules: nodeModules,
		cache:       make(map[resolutionKey]string),
		packages:    make(map[string]*packageJSON),
	}
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		filepath.IsAbs(spec)
}

// resolve returns the file spec refers to when imported from a file in
// fromDir, or "" when it cannot be found.
func (r *moduleResolver) resolve(spec, fromDir string) string {
	key := resolutionKey{dir: fromDir, spec: spec}
	if resolved, ok := r.cache[key]; ok {
		return resolved
	}
	resolved := r.resolveUncached(spec, fromDir)
	r.cache[key] = resolved
	return resolved
}

func (r *moduleResolver) resolveUncached(spec, fromDir string) string {
	if isRelative(spec) {
		p := spec
		if !filepath.IsAbs(p) {
			p = filepath.Join(fromDir, filepath.FromSlash(spec))
		}
		return r.loadFileOrDirectory(p)
	}

	if resolved := r.resolvePaths(spec); resolved != "" {
		return resolved
	}
	if r.options.BaseURL != "" {
		if resolved := r.loadFileOrDirectory(filepath.Join(r.options.BaseURL, filepath.FromSlash(spec))); resolved != "" {
			return resolved
		}
	}
	if !r.nodeModules {
		return ""
	}
	return r.resolvePackage(spec, fromDir)
}

// resolvePaths applies compilerOptions.paths. The longest matching prefix
// wins, as in tsc.
func (r *moduleResolver) resolvePaths(spec string) string {
	if len(r.options.Paths) == 0 {
		return ""
	}

	patterns := make([]string, 0, len(r.options.Paths))
	for pattern := range r.options.Paths {
		patterns = append(patterns, pattern)
	}
	sort.Slice(patterns, func(i, j int) bool {
		pi := strings.Index(patterns[i], "*")
		pj := strings.Index(patterns[j], "*")
		if pi < 0 {
			pi = len(patterns[i])
		}
		if pj < 0 {
			pj = len(patterns[j])
		}
		if pi != pj {
			return pi > pj
		}
		return patterns[i] < patterns[j]
	})

	for _, pattern := range patterns {
		captured, ok := matchStar(pattern, spec)
		if !ok {
			continue
		}
		for _, substitution := range r.options.Paths[pattern] {
			target := strings.Replace(substitution, "*", captured, 1)
			p := filepath.Join(r.options.PathsBase, filepath.FromSlash(target))
			if resolved := r.loadFileOrDirectory(p); resolved != "" {
				return resolved
			}
		}
	}
	return ""
}

// matchStar matches s against a pattern holding at most one "*" and returns
// the text the star captured.
func matchStar(pattern, s string) (string, bool) {
	star := strings.Index(pattern, "*")
	if star < 0 {
		return "", pattern == s
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if len(s) < len(prefix)+len(suffix) || !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}

// resolvePackage looks for spec in node_modules directories from fromDir
// upwards, trying the package itself and then its @types counterpart.
func (r *moduleResolver) resolvePackage(spec, fromDir string) string {
	name, subpath := splitPackageSpecifier(spec)
	if name == "" {
		return ""
	}

	for dir := fromDir; ; {
		if filepath.Base(dir) != "node_modules" {
			nm := filepath.Join(dir, "node_modules")
			if resolved := r.loadPackage(filepath.Join(nm, filepath.FromSlash(name)), subpath); resolved != "" {
				return resolved
			}
			if resolved := r.loadPackage(filepath.Join(nm, "@types", typesPackageName(name)), subpath); resolved != "" {
				return resolved
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// splitPackageSpecifier splits "@scope/pkg/sub/path" into "@scope/pkg" and
// "sub/path".
func splitPackageSpecifier(spec string) (string, string) {
	parts := strings.Split(spec, "/")
	n := 1
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return "", ""
		}
		n = 2
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}

// typesPackageName maps "@scope/pkg" to the DefinitelyTyped name "scope__pkg".
func typesPackageName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name[1:], "/", "__", 1)
	}
	return name
}

// loadPackage resolves subpath ("" for the package root) inside pkgDir.
func (r *moduleResolver) loadPackage(pkgDir, subpath string) string {
	if !isDir(pkgDir) {
		return ""
	}

	pkg := r.readPackageJSON(pkgDir)
	if pkg != nil && len(pkg.Exports) > 0 {
		exportPath := "."
		if subpath != "" {
			exportPath = "./" + subpath
		}
		if target, ok := exportsTarget(pkg.Exports, exportPath); ok {
			return r.loadFileOrDirectory(filepath.Join(pkgDir, filepath.FromSlash(target)))
		}
	}

	if subpath != "" {
		return r.loadFileOrDirectory(filepath.Join(pkgDir, filepath.FromSlash(subpath)))
	}
	return r.loadDirectory(pkgDir)
}

func (r *moduleResolver) readPackageJSON(dir string) *packageJSON {
	if pkg, ok := r.packages[dir]; ok {
		return pkg
	}

	var pkg *packageJSON
	if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil {
		parsed := &packageJSON{}
		if err := json.Unmarshal(data, parsed); err == nil {
			pkg = parsed
		}
	}
	r.packages[dir] = pkg
	return pkg
}

// exportsTarget looks up subpath ("." or "./x") in a package.json "exports"
// value and returns the chosen target path.
func exportsTarget(raw json.RawMessage, subpath string) (string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if subpath != "." {
			return "", false
		}
		return single, true
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil && subpath == "." {
			return firstTarget(list)
		}
		return "", false
	}

	subpathKeys := false
	for key := range entries {
		if strings.HasPrefix(key, ".") {
			subpathKeys = true
			break
		}
	}
	if !subpathKeys {
		if subpath != "." {
			return "", false
		}
		return conditionTarget(raw)
	}

	if value, ok := entries[subpath]; ok {
		return conditionTarget(value)
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		if strings.Contains(key, "*") {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, key := range keys {
		captured, ok := matchStar(key, subpath)
		if !ok {
			continue
		}
		if target, ok := conditionTarget(entries[key]); ok {
			return strings.ReplaceAll(target, "*", captured), true
		}
	}
	return "", false
}

// conditionTarget picks a target out of a conditional exports value.
func conditionTarget(raw json.RawMessage) (string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, single != ""
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return firstTarget(list)
	}

	var conditions map[string]json.RawMessage
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return "", false
	}
	for _, condition := range exportConditions {
		if value, ok := conditions[condition]; ok {
			if target, ok := conditionTarget(value); ok {
				return target, true
			}
		}
	}
	return "", false
}

func firstTarget(list []json.RawMessage) (string, bool) {
	for _, item := range list {
		if target, ok := conditionTarget(item); ok {
			return target, true
		}
	}
	return "", false
}

func (r *moduleResolver) loadFileOrDirectory(p string) string {
	if resolved := r.loadFile(p); resolved != "" {
		return resolved
	}
	return r.loadDirectory(p)
}

// loadFile probes p as a source file, trying TypeScript extensions and
// substituting them for emitted JavaScript extensions.
func (r *moduleResolver) loadFile(p string) string {
	if hasSourceExtension(p) && isFile(p) {
		return p
	}

	ext := filepath.Ext(p)
	if candidates, ok := jsExtensions[ext]; ok {
		stem := strings.TrimSuffix(p, ext)
		for _, candidate := range candidates {
			if isFile(stem + candidate) {
				return stem + candidate
			}
		}
	}

	for _, ext := range sourceExtensions {
		if isFile(p + ext) {
			return p + ext
		}
	}
	return ""
}

// loadDirectory resolves a directory through its package.json types entry
// or an index file.
func (r *moduleResolver) loadDirectory(dir string) string {
	if !isDir(dir) {
		return ""
	}

	if pkg := r.readPackageJSON(dir); pkg != nil {
		for _, entry := range []string{pkg.Types, pkg.Typings, pkg.Main} {
			if entry == "" {
				continue
			}
			if resolved := r.loadFile(filepath.Join(dir, filepath.FromSlash(entry))); resolved != "" {
				return resolved
			}
		}
	}

	return r.loadFile(filepath.Join(dir, "index"))
}

// resolveTypeReference resolves a `types` entry or a
// /// <reference types="..." /> directive: type roots first, then a regular
// package lookup.
func (r *moduleResolver) resolveTypeReference(name, fromDir string) string {
	for _, root := range r.typeRoots(fromDir) {
		if resolved := r.loadPackage(filepath.Join(root, filepath.FromSlash(name)), ""); resolved != "" {
			return resolved
		}
	}
	if !r.nodeModules {
		return ""
	}
	return r.resolvePackage(name, fromDir)
}

// typeRoots returns compilerOptions.typeRoots, or every node_modules/@types
// directory from dir upwards.
func (r *moduleResolver) typeRoots(dir string) []string {
	if r.options.TypeRoots != nil {
		return r.options.TypeRoots
	}
	if !r.nodeModules {
		return nil
	}

	var roots []string
	for {
		candidate := filepath.Join(dir, "node_modules", "@types")
		if isDir(candidate) {
			roots = append(roots, candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return roots
		}
		dir = parent
	}
}

// automaticTypePackages lists the packages under every type root, the set
// tsc includes when compilerOptions.types is absent.
func (r *moduleResolver) automaticTypePackages(dir string) []string {
	var files []string
	for _, root := range r.typeRoots(dir) {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if resolved := r.loadPackage(filepath.Join(root, entry.Name()), ""); resolved != "" {
				files = append(files, resolved)
			}
		}
	}
	return files
}

func hasSourceExtension(p string) bool {
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
