package registry

import (
	"fmt"

	"github.com/msalah0e/canopy/internal/document"
)

// CreateNode builds a node of any registered type with a fresh id and the
// type's default attributes. Containers get an empty children list; leaves get
// the given position, if any.
func (r *Registry) CreateNode(typ string, pos *document.Position) (document.Node, error) {
	t, ok := r.Get(typ)
	if !ok {
		return document.Node{}, fmt.Errorf("create %q: %w", typ, ErrUnknownType)
	}
	n := document.Node{
		ID:    r.newID(),
		Type:  t.Type,
		Attrs: t.DefaultAttrs(),
	}
	if pos != nil {
		p := *pos
		n.Position = &p
	}
	if t.IsContainer() {
		n.Children = []document.Node{}
	}
	return n, nil
}

// CreateChild builds a leaf node placed at pos. It has no children field.
func (r *Registry) CreateChild(typ string, pos document.Position) (document.Node, error) {
	t, ok := r.Get(typ)
	if !ok {
		return document.Node{}, fmt.Errorf("create child %q: %w", typ, ErrUnknownType)
	}
	if t.IsContainer() {
		return document.Node{}, fmt.Errorf("create child %q: %w", typ, ErrWrongKind)
	}
	return r.CreateNode(typ, &pos)
}

// Defaults returns a fresh copy of a type's default attributes.
func (r *Registry) Defaults(typ string) (document.Attributes, bool) {
	t, ok := r.Get(typ)
	if !ok {
		return nil, false
	}
	return t.DefaultAttrs(), true
}
