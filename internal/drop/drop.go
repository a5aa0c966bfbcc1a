// Package drop turns drag-and-drop events into document mutations.
//
// A drop is a payload (a new node of some type, or an existing child), a
// target surface (the page background or a container's interior) and a
// pointer position in screen coordinates. Resolve maps that triple onto
// exactly one mutation; drops that match no rule resolve to Noop.
package drop

import (
	"fmt"

	"github.com/msalah0e/canopy/internal/document"
)

// Payload is what is being dragged. Exactly one of NewType or ChildID is set.
type Payload struct {
	NewType  string          `json:"type,omitempty"`
	ChildID  document.NodeID `json:"childId,omitempty"`
	ParentID document.NodeID `json:"parentId,omitempty"`
}

// NewNode is a palette drag of a fresh node.
func NewNode(typ string) Payload { return Payload{NewType: typ} }

// ExistingChild is a drag of a child already placed under parent.
func ExistingChild(child, parent document.NodeID) Payload {
	return Payload{ChildID: child, ParentID: parent}
}

// Target is the surface under the pointer. An empty ContainerID is the page
// background.
type Target struct {
	ContainerID document.NodeID `json:"containerId,omitempty"`
}

// Background is the page surface outside any container.
var Background = Target{}

// Into targets a container's interior.
func Into(id document.NodeID) Target { return Target{ContainerID: id} }

// IsBackground reports whether the target is the page background.
func (t Target) IsBackground() bool { return t.ContainerID == "" }

// Point is a pointer location in screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a rendered bounding box in screen coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Local converts a screen point into coordinates relative to the rect origin.
func (r Rect) Local(p Point) document.Position {
	return document.Position{X: p.X - r.Left, Y: p.Y - r.Top}
}

// Geometry reports where containers are currently rendered. It is asked at
// resolution time: containers grow as children are added, so a box measured
// earlier may be stale.
type Geometry interface {
	Bounds(id document.NodeID) (Rect, bool)
}

// StaticGeometry is a Geometry measured by the caller for a single drop.
type StaticGeometry map[document.NodeID]Rect

// Bounds implements Geometry.
func (g StaticGeometry) Bounds(id document.NodeID) (Rect, bool) {
	r, ok := g[id]
	return r, ok
}

// Kind names the mutation a drop resolved to.
type Kind string

const (
	KindNoop       Kind = "noop"
	KindInsert     Kind = "insert"
	KindAppend     Kind = "append"
	KindReposition Kind = "reposition"
	KindReparent   Kind = "reparent"
)

// Mutation is the single document change a drop resolved to.
type Mutation struct {
	Kind     Kind
	Node     document.Node // inserted or appended node
	ParentID document.NodeID
	TargetID document.NodeID // destination container of a reparent
	ChildID  document.NodeID
	Position document.Position

	apply func(document.Document) (document.Document, error)
}

// Noop is the resolution of a drop that matched no rule.
var Noop = Mutation{Kind: KindNoop}

// Apply runs the mutation. Noop returns the document unchanged.
func (m Mutation) Apply(d document.Document) (document.Document, error) {
	if m.apply == nil {
		return d, nil
	}
	return m.apply(d)
}

func (m Mutation) String() string {
	switch m.Kind {
	case KindInsert:
		return fmt.Sprintf("insert %s %s", m.Node.Type, m.Node.ID)
	case KindAppend:
		return fmt.Sprintf("append %s %s to %s at (%g, %g)", m.Node.Type, m.Node.ID, m.ParentID, m.Position.X, m.Position.Y)
	case KindReposition:
		return fmt.Sprintf("move %s in %s to (%g, %g)", m.ChildID, m.ParentID, m.Position.X, m.Position.Y)
	case KindReparent:
		return fmt.Sprintf("move %s from %s to %s at (%g, %g)", m.ChildID, m.ParentID, m.TargetID, m.Position.X, m.Position.Y)
	default:
		return "noop"
	}
}
