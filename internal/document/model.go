package document

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// Rules tells the model which node types are containers. The node registry
// provides one; the zero value knows only the built-in container kinds.
type Rules struct {
	IsContainer func(typ string) bool
}

func (r Rules) container(typ string) bool {
	if r.IsContainer != nil {
		return r.IsContainer(typ)
	}
	return slices.Contains(ContainerTypes, typ)
}

// Model applies mutations to documents. Methods never modify their input; on
// any rejection they return the input unchanged together with the reason.
type Model struct {
	Rules Rules
}

// Check reports every way d breaks the rules the mutations keep: a single
// navbar, containers only at the top level, childless leaves beneath them and
// unique non-empty ids. It is meant for documents that arrive whole, as on
// load or import. A nil error means d could have been built by the model.
func (m Model) Check(d Document) error {
	var err error
	seen := make(map[NodeID]bool)
	id := func(n Node) {
		switch {
		case n.ID == "":
			err = multierr.Append(err, fmt.Errorf("%s node: %w", n.Type, ErrBadID))
		case seen[n.ID]:
			err = multierr.Append(err, fmt.Errorf("%s: %w", n.ID, ErrBadID))
		}
		seen[n.ID] = true
	}

	navbars := 0
	for _, n := range d {
		id(n)
		if n.Type == Navbar {
			navbars++
		}
		if !m.Rules.container(n.Type) {
			err = multierr.Append(err, fmt.Errorf("%s: %q at top level: %w", n.ID, n.Type, ErrNotContainer))
		}
		for _, c := range n.Children {
			id(c)
			if m.Rules.container(c.Type) {
				err = multierr.Append(err, fmt.Errorf("%s: %q inside %s: %w", c.ID, c.Type, n.ID, ErrNotContainer))
			}
			if len(c.Children) > 0 {
				err = multierr.Append(err, fmt.Errorf("%s: leaf %q has children: %w", c.ID, c.Type, ErrNotContainer))
			}
		}
	}
	if navbars > 1 {
		err = multierr.Append(err, fmt.Errorf("%d navbars: %w", navbars, ErrNavbarExists))
	}
	return err
}

// InsertTopLevel appends a container to the page. Top-level nodes stack in
// append order and carry no position.
func (m Model) InsertTopLevel(d Document, n Node) (Document, error) {
	if !m.Rules.container(n.Type) {
		return d, fmt.Errorf("insert %q at top level: %w", n.Type, ErrNotContainer)
	}
	if n.Type == Navbar && d.HasNavbar() {
		return d, ErrNavbarExists
	}
	n = n.Clone()
	n.Position = nil
	if n.Children == nil {
		n.Children = []Node{}
	}
	out := make(Document, 0, len(d)+1)
	out = append(out, d...)
	return append(out, n), nil
}

// AppendChild adds a leaf to the end of a container's children.
func (m Model) AppendChild(d Document, parentID NodeID, child Node) (Document, error) {
	if m.Rules.container(child.Type) {
		return d, fmt.Errorf("append %q as child: %w", child.Type, ErrNotContainer)
	}
	parent, ok := d.Find(parentID)
	if !ok {
		return d, fmt.Errorf("append to %s: %w", parentID, ErrParentNotFound)
	}
	if !m.Rules.container(parent.Type) {
		return d, fmt.Errorf("append to %q: %w", parent.Type, ErrNotContainer)
	}
	child = child.Clone()
	child.Children = nil
	return d.replace(parentID, func(p Node) Node {
		p.Children = append(slices.Clip(p.Children), child)
		return p
	}), nil
}

// UpdateChildPosition moves a child inside its parent. Positions are not
// clamped; negative and out-of-canvas offsets are kept as given. Unknown ids
// leave the document unchanged.
func (m Model) UpdateChildPosition(d Document, parentID, childID NodeID, pos Position) (Document, error) {
	if _, ok := d.FindChild(parentID, childID); !ok {
		return d, nil
	}
	return d.replaceChild(parentID, childID, func(c Node) Node {
		p := pos
		c.Position = &p
		return c
	}), nil
}

// UpdateAttributes shallow-merges patch into the referenced node's attributes.
// Keys outside the type's known fields are accepted.
func (m Model) UpdateAttributes(d Document, ref NodeRef, patch Attributes) (Document, error) {
	if _, ok := d.Resolve(ref); !ok {
		return d, nil
	}
	merge := func(n Node) Node {
		attrs := make(Attributes, len(n.Attrs)+len(patch))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		for k, v := range patch {
			attrs[k] = NormalizeValue(v)
		}
		n.Attrs = attrs
		return n
	}
	if ref.IsChild() {
		return d.replaceChild(ref.ParentID, ref.ID, merge), nil
	}
	return d.replace(ref.ID, merge), nil
}

// MoveChild transfers a child to another container at pos. Moving onto the
// child's own parent is a plain position update.
func (m Model) MoveChild(d Document, fromID, toID, childID NodeID, pos Position) (Document, error) {
	if fromID == toID {
		return m.UpdateChildPosition(d, fromID, childID, pos)
	}
	child, ok := d.FindChild(fromID, childID)
	if !ok {
		return d, nil
	}
	if _, ok := d.Find(toID); !ok {
		return d, nil
	}
	p := pos
	child.Position = &p
	out, err := m.AppendChild(m.RemoveChild(d, childID), toID, child)
	if err != nil {
		return d, err
	}
	return out, nil
}

// RemoveChild deletes a child wherever it is. Removing an absent id is a no-op.
func (m Model) RemoveChild(d Document, childID NodeID) Document {
	parent, ok := d.ParentOf(childID)
	if !ok {
		return d
	}
	return d.replace(parent, func(p Node) Node {
		p.Children = lo.Reject(p.Children, func(c Node, _ int) bool { return c.ID == childID })
		return p
	})
}

// RemoveTopLevel deletes a top-level node and its children. Removing an absent
// id is a no-op.
func (m Model) RemoveTopLevel(d Document, id NodeID) Document {
	if _, ok := d.Find(id); !ok {
		return d
	}
	return lo.Reject(d, func(n Node, _ int) bool { return n.ID == id })
}

// replace copies the document with top-level node id rewritten by fn. Other
// nodes are shared with the input; they are never written to.
func (d Document) replace(id NodeID, fn func(Node) Node) Document {
	out := make(Document, len(d))
	for i, n := range d {
		if n.ID == id {
			n = fn(n)
		}
		out[i] = n
	}
	return out
}

func (d Document) replaceChild(parentID, childID NodeID, fn func(Node) Node) Document {
	return d.replace(parentID, func(p Node) Node {
		children := make([]Node, len(p.Children))
		for i, c := range p.Children {
			if c.ID == childID {
				c = fn(c)
			}
			children[i] = c
		}
		p.Children = children
		return p
	})
}
