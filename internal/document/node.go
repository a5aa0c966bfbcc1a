// Package document holds the page model: an ordered list of top-level container
// nodes, each of which may hold absolutely positioned leaf children.
//
// A Document is a value. Every mutation returns a new Document and leaves its
// input untouched, so the canvas, the properties form and the code generator can
// each hold a stable snapshot.
package document

import (
	"github.com/google/uuid"
)

// NodeID identifies a node for its whole lifetime. IDs are never reused.
type NodeID string

// Built-in container kinds. Only these (and custom types registered as
// containers) may hold children.
const (
	Navbar    = "navbar"
	Hero      = "hero"
	Card      = "card"
	Container = "container"
	Grid      = "grid"
	Footer    = "footer"
)

// ContainerTypes lists the built-in container kinds in palette order.
var ContainerTypes = []string{Navbar, Hero, Card, Container, Grid, Footer}

// Position is a child's offset inside its parent container, in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Attributes is the open property bag of a node.
type Attributes map[string]any

// Node is a single entry in the tree: a top-level container or a leaf child.
type Node struct {
	ID       NodeID     `json:"id"`
	Type     string     `json:"type"`
	Attrs    Attributes `json:"props"`
	Position *Position  `json:"position,omitempty"`
	Children []Node     `json:"children,omitempty"`
}

// NodeRef addresses a node. ParentID is empty for top-level nodes.
type NodeRef struct {
	ParentID NodeID `json:"parentId,omitempty"`
	ID       NodeID `json:"id"`
}

// IsChild reports whether the reference points below a top-level node.
func (r NodeRef) IsChild() bool {
	return r.ParentID != ""
}

// NewID returns a fresh node id. UUIDv7 carries a millisecond timestamp plus
// random bits, so ids stay unique under rapid creation.
func NewID() NodeID {
	return NodeID(uuid.Must(uuid.NewV7()).String())
}

// Placed returns the node position, or the origin when it has not been placed.
func (n Node) Placed() Position {
	if n.Position == nil {
		return Position{}
	}
	return *n.Position
}

// Attr returns a string attribute, or "" when absent or not a string.
func (n Node) Attr(key string) string {
	s, _ := n.Attrs[key].(string)
	return s
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Attrs = cloneAttrs(n.Attrs)
	if n.Position != nil {
		p := *n.Position
		out.Position = &p
	}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

func cloneAttrs(a Attributes) Attributes {
	if a == nil {
		return Attributes{}
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = NormalizeValue(v)
	}
	return out
}
