package semantic

import (
	"fmt"

	"github.com/mvp-joe/infer-dos/internal/parsers"
)

// TypeKind classifies a Type.
type TypeKind int

const (
	// KindClass is a class, possibly merged with same-named interfaces.
	KindClass TypeKind = iota
	// KindInterface is an interface type.
	KindInterface
	// KindUnbound is a name that could not be bound to a declaration.
	// Its base types are unavailable.
	KindUnbound
	// KindAnonymous is a type with no name: mixin calls, circular aliases
	// and other expressions the model does not evaluate.
	KindAnonymous
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindUnbound:
		return "unbound"
	case KindAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Type is a node in the type graph. Types are compared by pointer: the model
// hands out exactly one *Type per merged symbol.
type Type struct {
	id    int
	name  string
	kind  TypeKind
	decls []*parsers.Declaration
}

// ID returns a number unique to the type within its model.
func (t *Type) ID() int { return t.id }

// Name returns the declared name, or "" for anonymous types.
func (t *Type) Name() string { return t.name }

// Kind returns the type's classification.
func (t *Type) Kind() TypeKind { return t.kind }

// Bound reports whether the type is backed by class or interface
// declarations.
func (t *Type) Bound() bool {
	return t.kind == KindClass || t.kind == KindInterface
}

func (t *Type) String() string {
	if t.name == "" {
		return fmt.Sprintf("<%s #%d>", t.kind, t.id)
	}
	return t.name
}
