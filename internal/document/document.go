package document

import (
	"errors"
	"reflect"
	"slices"

	"github.com/samber/lo"
)

// Constraint violations. The returned Document is always the unchanged input.
var (
	ErrNavbarExists   = errors.New("document already has a navbar")
	ErrNotContainer   = errors.New("node type cannot be placed here")
	ErrParentNotFound = errors.New("parent container not found")
	ErrBadID          = errors.New("node id is empty or duplicated")
)

// Document is the ordered list of top-level containers making up the page.
type Document []Node

// Len returns the number of top-level nodes.
func (d Document) Len() int { return len(d) }

// HasNavbar reports whether a navbar is already on the page.
func (d Document) HasNavbar() bool {
	return lo.ContainsBy(d, func(n Node) bool { return n.Type == Navbar })
}

// Find returns the top-level node with the given id.
func (d Document) Find(id NodeID) (Node, bool) {
	return lo.Find(d, func(n Node) bool { return n.ID == id })
}

// FindChild returns the child childID of top-level node parentID.
func (d Document) FindChild(parentID, childID NodeID) (Node, bool) {
	p, ok := d.Find(parentID)
	if !ok {
		return Node{}, false
	}
	return lo.Find(p.Children, func(c Node) bool { return c.ID == childID })
}

// ParentOf returns the id of the top-level node holding childID.
func (d Document) ParentOf(childID NodeID) (NodeID, bool) {
	for _, n := range d {
		for _, c := range n.Children {
			if c.ID == childID {
				return n.ID, true
			}
		}
	}
	return "", false
}

// Locate resolves any id, top-level or child, to a reference.
func (d Document) Locate(id NodeID) (NodeRef, bool) {
	if _, ok := d.Find(id); ok {
		return NodeRef{ID: id}, true
	}
	if parent, ok := d.ParentOf(id); ok {
		return NodeRef{ParentID: parent, ID: id}, true
	}
	return NodeRef{}, false
}

// Resolve returns the node a reference points to.
func (d Document) Resolve(ref NodeRef) (Node, bool) {
	if ref.IsChild() {
		return d.FindChild(ref.ParentID, ref.ID)
	}
	return d.Find(ref.ID)
}

// Walk visits every node in document order: each top-level node followed by its
// children. parent is empty for top-level nodes. Returning false stops the walk.
func (d Document) Walk(fn func(n Node, parent NodeID) bool) {
	for _, n := range d {
		if !fn(n, "") {
			return
		}
		for _, c := range n.Children {
			if !fn(c, n.ID) {
				return
			}
		}
	}
}

// Types returns the distinct node types present, in first-seen document order.
func (d Document) Types() []string {
	var types []string
	seen := make(map[string]bool)
	d.Walk(func(n Node, _ NodeID) bool {
		if !seen[n.Type] {
			seen[n.Type] = true
			types = append(types, n.Type)
		}
		return true
	})
	return types
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return lo.Map(d, func(n Node, _ int) Node { return n.Clone() })
}

// Equal reports structural equality: same ids, types, attributes, positions and
// children in the same order. A nil and an empty children list are equal.
func Equal(a, b Document) bool {
	return slices.EqualFunc(a, b, nodeEqual)
}

func nodeEqual(a, b Node) bool {
	if a.ID != b.ID || a.Type != b.Type {
		return false
	}
	if (a.Position == nil) != (b.Position == nil) {
		return false
	}
	if a.Position != nil && *a.Position != *b.Position {
		return false
	}
	if !reflect.DeepEqual(NormalizeValue(map[string]any(a.Attrs)), NormalizeValue(map[string]any(b.Attrs))) {
		return false
	}
	return slices.EqualFunc(a.Children, b.Children, nodeEqual)
}
