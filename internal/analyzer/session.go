package analyzer

import (
	"fmt"

	"github.com/mvp-joe/infer-dos/internal/conformance"
	"github.com/mvp-joe/infer-dos/internal/hierarchy"
	"github.com/mvp-joe/infer-dos/internal/parsers"
	"github.com/mvp-joe/infer-dos/internal/semantic"
)

// Session holds a loaded program and its model for one entry file.
type Session struct {
	Program *semantic.Program
	Model   *semantic.Model
	File    *parsers.SourceFile
	Marker  string
}

// Classes returns the exported conforming classes of the entry file.
func (s *Session) Classes() []string {
	return conformance.Analyze(s.File, s.Model, s.Marker)
}

// ClassesIn returns the exported conforming classes of another file loaded
// by the same program. It reports false when path is not part of it.
func (s *Session) ClassesIn(path string) ([]string, bool) {
	file := s.Program.File(path)
	if file == nil {
		return nil, false
	}
	return conformance.Analyze(file, s.Model, s.Marker), true
}

// Explanation describes why a class does or does not conform.
type Explanation struct {
	Class     string               `json:"class"`
	Conforms  bool                 `json:"conforms"`
	Path      []*hierarchy.Node    `json:"path,omitempty"`
	Hierarchy *hierarchy.Hierarchy `json:"-"`
}

// Explain builds the heritage graph of the exported class named class and
// reports its shortest path to the marker.
func (s *Session) Explain(class string) (*Explanation, error) {
	var decl *parsers.Declaration
	for _, c := range conformance.Scan(s.File) {
		if c.Name == class {
			decl = c.Decl
			break
		}
	}
	if decl == nil {
		return nil, fmt.Errorf("no exported class %q in %s", class, s.File.Path)
	}

	t := s.Model.TypeOfDeclaration(decl)
	h, err := hierarchy.Build(s.Model, t)
	if err != nil {
		return nil, fmt.Errorf("failed to build hierarchy for %s: %w", class, err)
	}

	e := &Explanation{
		Class:     class,
		Conforms:  conformance.NewResolver(s.Model, s.Marker).Conforms(t),
		Hierarchy: h,
	}
	if path, ok := h.PathTo(s.Marker); ok {
		e.Path = path
	}
	return e, nil
}

// ExplainAll explains every exported class of the entry file in source order.
func (s *Session) ExplainAll() ([]*Explanation, error) {
	var out []*Explanation
	seen := make(map[string]bool)
	for _, c := range conformance.Scan(s.File) {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		e, err := s.Explain(c.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
