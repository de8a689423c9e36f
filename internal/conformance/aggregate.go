package conformance

import "github.com/mvp-joe/infer-dos/internal/parsers"

// Analyze returns the names of the exported classes in file that conform to
// marker, in source order. Scan lists each class declaration once, so
// same-named classes from different namespaces each get an entry. The
// result is never nil.
func Analyze(file *parsers.SourceFile, model Model, marker string) []string {
	resolver := NewResolver(model, marker)

	names := []string{}
	for _, c := range Scan(file) {
		if resolver.Conforms(model.TypeOfDeclaration(c.Decl)) {
			names = append(names, c.Name)
		}
	}
	return names
}
