// Package selection tracks which node is active on the canvas and routes
// property edits to it. It holds identifiers only; content stays in the
// document.
package selection

import (
	"errors"

	"github.com/msalah0e/canopy/internal/document"
)

// ErrNothingSelected rejects an edit while no node is selected.
var ErrNothingSelected = errors.New("nothing selected")

// Kind is the machine state.
type Kind string

const (
	Idle     Kind = "idle"
	TopLevel Kind = "node"
	Child    Kind = "child"
)

// State is a snapshot of the selection.
type State struct {
	Kind    Kind            `json:"state"`
	NodeID  document.NodeID `json:"nodeId,omitempty"`
	ChildID document.NodeID `json:"childId,omitempty"`
}

// Machine is the selection state machine. The zero value is Idle.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State {
	if m.state.Kind == "" {
		return State{Kind: Idle}
	}
	return m.state
}

// SelectNode selects a top-level node, dropping any child selection.
func (m *Machine) SelectNode(id document.NodeID) {
	m.state = State{Kind: TopLevel, NodeID: id}
}

// SelectChild selects a child. Its parent becomes the active container.
func (m *Machine) SelectChild(parent, child document.NodeID) {
	m.state = State{Kind: Child, NodeID: parent, ChildID: child}
}

// Clear returns to Idle, as on a click on the empty canvas.
func (m *Machine) Clear() {
	m.state = State{Kind: Idle}
}

// Forget returns to Idle if the deleted node is the selected node, the
// selected child, or the selected child's parent.
func (m *Machine) Forget(id document.NodeID) {
	s := m.State()
	if s.Kind == Idle {
		return
	}
	if s.NodeID == id || s.ChildID == id {
		m.Clear()
	}
}

// Reconcile returns to Idle when the selection no longer resolves in d.
func (m *Machine) Reconcile(d document.Document) {
	ref, ok := m.Target()
	if !ok {
		return
	}
	if _, found := d.Resolve(ref); !found {
		m.Clear()
	}
}

// Target returns the node edits are routed to.
func (m *Machine) Target() (document.NodeRef, bool) {
	s := m.State()
	switch s.Kind {
	case TopLevel:
		return document.NodeRef{ID: s.NodeID}, true
	case Child:
		return document.NodeRef{ParentID: s.NodeID, ID: s.ChildID}, true
	default:
		return document.NodeRef{}, false
	}
}

// ActiveContainer returns the top-level node active for palette purposes.
func (m *Machine) ActiveContainer() (document.NodeID, bool) {
	s := m.State()
	if s.Kind == Idle {
		return "", false
	}
	return s.NodeID, true
}

// Edit merges patch into the selected node's attributes.
func (m *Machine) Edit(model document.Model, d document.Document, patch document.Attributes) (document.Document, error) {
	ref, ok := m.Target()
	if !ok {
		return d, ErrNothingSelected
	}
	return model.UpdateAttributes(d, ref, patch)
}
