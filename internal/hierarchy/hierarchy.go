// Package hierarchy materialises the heritage graph reachable from a class
// so it can be explained: the shortest chain of extends and implements
// relations leading to the marker type, and a Graphviz rendering.
package hierarchy

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/mvp-joe/infer-dos/internal/conformance"
	"github.com/mvp-joe/infer-dos/internal/semantic"
)

// EdgeKind labels how one type reaches another.
type EdgeKind string

const (
	// EdgeBase is a base type reported by the semantic model.
	EdgeBase EdgeKind = "base"
	// EdgeExtends is a written extends clause.
	EdgeExtends EdgeKind = "extends"
	// EdgeImplements is a written implements clause.
	EdgeImplements EdgeKind = "implements"
)

// Node is one type in the hierarchy.
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Label returns the name shown for the node.
func (n *Node) Label() string {
	if n.Name == "" {
		return "<" + n.Kind + ">"
	}
	return n.Name
}

// Edge is a relation between two nodes.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Hierarchy is the heritage graph rooted at one type.
type Hierarchy struct {
	graph graph.Graph[string, *Node]
	root  string
	nodes []*Node
	edges []Edge
}

// Build walks every type reachable from root through base types and
// heritage clauses, the same relations the conformance resolver follows.
func Build(model conformance.Model, root *semantic.Type) (*Hierarchy, error) {
	if root == nil {
		return nil, fmt.Errorf("hierarchy requires a root type")
	}

	h := &Hierarchy{
		graph: graph.New(func(n *Node) string { return n.ID }, graph.Directed()),
		root:  nodeID(root),
	}

	queue := []*semantic.Type{root}
	if err := h.addNode(model, root); err != nil {
		return nil, err
	}

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		var targets []*semantic.Type
		var kinds []EdgeKind

		if bases, ok := model.BaseTypes(t); ok {
			for _, base := range bases {
				targets = append(targets, base)
				kinds = append(kinds, EdgeBase)
			}
		}
		for _, decl := range model.Declarations(t) {
			for _, clause := range decl.Heritage {
				for _, ref := range clause.Types {
					if target := model.TypeOfReference(decl, ref); target != nil {
						targets = append(targets, target)
						kinds = append(kinds, EdgeKind(clause.Kind.String()))
					}
				}
			}
		}

		for i, target := range targets {
			if _, err := h.graph.Vertex(nodeID(target)); errors.Is(err, graph.ErrVertexNotFound) {
				if err := h.addNode(model, target); err != nil {
					return nil, err
				}
				queue = append(queue, target)
			}

			from, to := nodeID(t), nodeID(target)
			err := h.graph.AddEdge(from, to, graph.EdgeAttribute("label", string(kinds[i])))
			switch {
			case errors.Is(err, graph.ErrEdgeAlreadyExists):
				continue
			case err != nil:
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", from, to, err)
			}
			h.edges = append(h.edges, Edge{From: from, To: to, Kind: kinds[i]})
		}
	}

	return h, nil
}

func nodeID(t *semantic.Type) string {
	return strconv.Itoa(t.ID())
}

func (h *Hierarchy) addNode(model conformance.Model, t *semantic.Type) error {
	node := &Node{
		ID:   nodeID(t),
		Name: t.Name(),
		Kind: t.Kind().String(),
	}
	if decls := model.Declarations(t); len(decls) > 0 {
		if file := decls[0].File(); file != nil {
			node.File = file.Path
		}
		node.Line = decls[0].Line
	}

	if err := h.graph.AddVertex(node, graph.VertexAttribute("label", node.Label())); err != nil {
		return fmt.Errorf("failed to add node %s: %w", node.Label(), err)
	}
	h.nodes = append(h.nodes, node)
	return nil
}

// Root returns the node the hierarchy was built from.
func (h *Hierarchy) Root() *Node {
	return h.nodes[0]
}

// Nodes returns every node in discovery order.
func (h *Hierarchy) Nodes() []*Node {
	return h.nodes
}

// Edges returns every edge in discovery order.
func (h *Hierarchy) Edges() []Edge {
	return h.edges
}

// PathTo returns the shortest chain of nodes from the root to a type named
// marker. It returns false when no such type is reachable.
func (h *Hierarchy) PathTo(marker string) ([]*Node, bool) {
	var best []string
	for _, n := range h.nodes {
		if n.Name != marker {
			continue
		}
		if n.ID == h.root {
			best = []string{h.root}
			break
		}
		path, err := graph.ShortestPath(h.graph, h.root, n.ID)
		if err != nil {
			continue
		}
		if best == nil || len(path) < len(best) {
			best = path
		}
	}
	if best == nil {
		return nil, false
	}

	nodes := make([]*Node, 0, len(best))
	for _, id := range best {
		node, err := h.graph.Vertex(id)
		if err != nil {
			return nil, false
		}
		nodes = append(nodes, node)
	}
	return nodes, true
}

// WriteDOT renders the hierarchy in Graphviz DOT format.
func (h *Hierarchy) WriteDOT(w io.Writer) error {
	return draw.DOT(h.graph, w, draw.GraphAttribute("rankdir", "BT"))
}
