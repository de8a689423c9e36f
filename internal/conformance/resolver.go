// Package conformance decides which exported classes of a file transitively
// extend or implement a marker type such as DurableObject.
//
// The walk runs over a semantic model that may be incomplete. Declared base
// types are consulted first; when they do not lead to the marker, the
// heritage clauses of every declaration of the type are resolved one by one
// and followed instead. A visited set bounds the walk, so cyclic heritage,
// diamonds and alias loops all terminate.
package conformance

import (
	"github.com/mvp-joe/infer-dos/internal/parsers"
	"github.com/mvp-joe/infer-dos/internal/semantic"
)

// DefaultMarker is the marker type name used when none is configured.
const DefaultMarker = "DurableObject"

// Model is the view of the semantic model the resolver needs.
type Model interface {
	// TypeOfDeclaration returns the type introduced by a declaration.
	TypeOfDeclaration(d *parsers.Declaration) *semantic.Type
	// Declarations returns the declarations merged into t.
	Declarations(t *semantic.Type) []*parsers.Declaration
	// TypeOfReference resolves a heritage type expression of decl.
	TypeOfReference(decl *parsers.Declaration, ref parsers.TypeRef) *semantic.Type
	// BaseTypes returns t's declared base types; false means unavailable.
	BaseTypes(t *semantic.Type) ([]*semantic.Type, bool)
}

// Resolver answers "does this type conform to the marker" queries.
type Resolver struct {
	model  Model
	marker string
}

// NewResolver creates a resolver matching types named marker. An empty
// marker selects DefaultMarker.
func NewResolver(model Model, marker string) *Resolver {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Resolver{model: model, marker: marker}
}

// Marker returns the marker type name.
func (r *Resolver) Marker() string {
	return r.marker
}

// Conforms reports whether t is the marker type or reaches it through any
// chain of extends or implements relations. Every call starts from an
// empty visited set.
func (r *Resolver) Conforms(t *semantic.Type) bool {
	if t == nil {
		return false
	}
	return r.conforms(t, make(map[*semantic.Type]struct{}))
}

func (r *Resolver) conforms(t *semantic.Type, visited map[*semantic.Type]struct{}) bool {
	if t == nil {
		return false
	}
	if _, ok := visited[t]; ok {
		return false
	}
	visited[t] = struct{}{}

	// Matching is nominal: any type with the marker's name counts.
	if t.Name() == r.marker {
		return true
	}

	if bases, ok := r.model.BaseTypes(t); ok {
		for _, base := range bases {
			if r.conforms(base, visited) {
				return true
			}
		}
	}

	// Base types leave out implements clauses and anything the model could
	// not bind, so walk the written heritage clauses as well.
	for _, decl := range r.model.Declarations(t) {
		for _, clause := range decl.Heritage {
			for _, ref := range clause.Types {
				if r.conforms(r.model.TypeOfReference(decl, ref), visited) {
					return true
				}
			}
		}
	}

	return false
}
