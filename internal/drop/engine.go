package drop

import (
	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/registry"
)

// Options tunes drop resolution.
type Options struct {
	// Reparent lets an existing child dropped over a different container move
	// into it. When false the child stays with its parent and only its
	// position changes.
	Reparent bool
}

// Engine resolves drops against a node registry.
type Engine struct {
	reg   *registry.Registry
	model document.Model
	opts  Options
}

// NewEngine creates an engine that creates nodes from reg.
func NewEngine(reg *registry.Registry, opts Options) *Engine {
	return &Engine{
		reg:   reg,
		model: document.Model{Rules: reg.Rules()},
		opts:  opts,
	}
}

// Resolve maps a drop onto one mutation. geo is consulted for the target
// container's current bounds.
func (e *Engine) Resolve(d document.Document, p Payload, t Target, at Point, geo Geometry) Mutation {
	switch {
	case p.NewType != "":
		return e.resolveNew(d, p.NewType, t, at, geo)
	case p.ChildID != "":
		return e.resolveExisting(d, p, t, at, geo)
	default:
		return Noop
	}
}

// Drop resolves and applies in one step.
func (e *Engine) Drop(d document.Document, p Payload, t Target, at Point, geo Geometry) (document.Document, Mutation, error) {
	m := e.Resolve(d, p, t, at, geo)
	out, err := m.Apply(d)
	return out, m, err
}

func (e *Engine) resolveNew(d document.Document, typ string, t Target, at Point, geo Geometry) Mutation {
	nt, ok := e.reg.Get(typ)
	if !ok {
		return Noop
	}

	if t.IsBackground() {
		if !nt.IsContainer() {
			return Noop
		}
		n, err := e.reg.CreateNode(typ, nil)
		if err != nil {
			return Noop
		}
		return Mutation{
			Kind: KindInsert,
			Node: n,
			apply: func(d document.Document) (document.Document, error) {
				return e.model.InsertTopLevel(d, n)
			},
		}
	}

	if nt.IsContainer() {
		return Noop
	}
	pos, ok := e.local(d, t.ContainerID, at, geo)
	if !ok {
		return Noop
	}
	child, err := e.reg.CreateChild(typ, pos)
	if err != nil {
		return Noop
	}
	parent := t.ContainerID
	return Mutation{
		Kind:     KindAppend,
		Node:     child,
		ParentID: parent,
		Position: pos,
		apply: func(d document.Document) (document.Document, error) {
			return e.model.AppendChild(d, parent, child)
		},
	}
}

func (e *Engine) resolveExisting(d document.Document, p Payload, t Target, at Point, geo Geometry) Mutation {
	if t.IsBackground() {
		return Noop
	}
	parent := p.ParentID
	if parent == "" {
		var ok bool
		if parent, ok = d.ParentOf(p.ChildID); !ok {
			return Noop
		}
	}
	if _, ok := d.FindChild(parent, p.ChildID); !ok {
		return Noop
	}
	pos, ok := e.local(d, t.ContainerID, at, geo)
	if !ok {
		return Noop
	}

	child := p.ChildID
	if t.ContainerID != parent && e.opts.Reparent {
		dest := t.ContainerID
		return Mutation{
			Kind:     KindReparent,
			ParentID: parent,
			TargetID: dest,
			ChildID:  child,
			Position: pos,
			apply: func(d document.Document) (document.Document, error) {
				return e.model.MoveChild(d, parent, dest, child, pos)
			},
		}
	}
	return Mutation{
		Kind:     KindReposition,
		ParentID: parent,
		ChildID:  child,
		Position: pos,
		apply: func(d document.Document) (document.Document, error) {
			return e.model.UpdateChildPosition(d, parent, child, pos)
		},
	}
}

// local converts the pointer into the container's coordinate space using its
// bounds as rendered right now.
func (e *Engine) local(d document.Document, id document.NodeID, at Point, geo Geometry) (document.Position, bool) {
	if _, ok := d.Find(id); !ok || geo == nil {
		return document.Position{}, false
	}
	r, ok := geo.Bounds(id)
	if !ok {
		return document.Position{}, false
	}
	return r.Local(at), true
}
