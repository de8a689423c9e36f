package conformance

import "github.com/mvp-joe/infer-dos/internal/parsers"

// Candidate is an exported, named class found in a file.
type Candidate struct {
	Name string
	Decl *parsers.Declaration
}

// Scan returns the exported named classes of file in source order,
// including those nested in namespaces and ambient module declarations.
// A class counts as exported only when it carries an export modifier.
func Scan(file *parsers.SourceFile) []Candidate {
	candidates := []Candidate{}
	if file == nil || file.Root == nil {
		return candidates
	}

	var walk func(scope *parsers.Scope)
	walk = func(scope *parsers.Scope) {
		for _, d := range scope.Declarations {
			if d.IsClass() && d.Name != "" && d.Exported {
				candidates = append(candidates, Candidate{Name: d.Name, Decl: d})
			}
			if d.Body != nil {
				walk(d.Body)
			}
		}
	}
	walk(file.Root)

	return candidates
}
