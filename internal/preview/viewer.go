package preview

import (
	"fmt"
	"sync/atomic"
)

// ViewState is the rendering side's state.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewEmpty
	ViewShowing
	ViewError
)

func (v ViewState) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewEmpty:
		return "empty"
	case ViewShowing:
		return "showing"
	case ViewError:
		return "error"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// View is what the renderer currently shows.
type View struct {
	State    ViewState
	Snapshot Snapshot
	Err      error
}

// Viewer is the rendering side of the protocol. Each accepted update replaces
// the whole view.
type Viewer struct {
	origin  string
	view    atomic.Pointer[View]
	dropped atomic.Int64
}

// NewViewer creates a viewer accepting updates from origin.
func NewViewer(origin string) *Viewer {
	v := &Viewer{origin: origin}
	v.view.Store(&View{State: ViewLoading})
	return v
}

// Current returns the current view.
func (v *Viewer) Current() View {
	return *v.view.Load()
}

// Dropped counts messages ignored so far.
func (v *Viewer) Dropped() int64 {
	return v.dropped.Load()
}

// Handle applies an inbound message.
func (v *Viewer) Handle(in Inbound) (View, error) {
	if in.Origin != v.origin {
		v.dropped.Add(1)
		return v.Current(), fmt.Errorf("%q: %w", in.Origin, ErrOriginMismatch)
	}
	if in.Message.Type != TypeUpdateDesign {
		v.dropped.Add(1)
		return v.Current(), fmt.Errorf("%q: %w", in.Message.Type, ErrUnknownMessage)
	}

	snap, err := in.Message.Snapshot()
	if err != nil {
		next := &View{State: ViewError, Err: err}
		v.view.Store(next)
		return *next, err
	}
	next := &View{State: ViewShowing, Snapshot: snap}
	if snap.Components.Len() == 0 {
		next.State = ViewEmpty
	}
	v.view.Store(next)
	return *next, nil
}
