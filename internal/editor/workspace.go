// Package editor owns the authoring document. Every mutation goes through a
// Workspace, which serializes them, keeps the selection consistent, records
// the edit journal and schedules preview pushes.
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/msalah0e/canopy/internal/activity"
	"github.com/msalah0e/canopy/internal/codegen"
	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/drop"
	"github.com/msalah0e/canopy/internal/preview"
	"github.com/msalah0e/canopy/internal/registry"
	"github.com/msalah0e/canopy/internal/selection"
	"github.com/msalah0e/canopy/internal/store"
)

var (
	ErrNoSuchNode  = errors.New("no such node")
	ErrEmptyDesign = errors.New("no components to preview")
	ErrNoPreview   = errors.New("preview is not attached")
	ErrNoStore     = errors.New("no store configured")

	ErrInvalidDesign = errors.New("design breaks document rules")
)

// Journal records user-visible edits.
type Journal interface {
	Log(action, node, typ, details string) error
}

// JournalFunc adapts a function to a Journal.
type JournalFunc func(action, node, typ, details string) error

func (f JournalFunc) Log(action, node, typ, details string) error { return f(action, node, typ, details) }

// ActivityJournal writes to the canopy activity log.
var ActivityJournal Journal = JournalFunc(activity.Log)

// Options configures a Workspace.
type Options struct {
	Reparent       bool
	AutoPreview    bool
	Debounce       time.Duration
	PersistCatalog bool
	Journal        Journal
}

// Workspace is the single owner of the document.
type Workspace struct {
	reg    *registry.Registry
	model  document.Model
	engine *drop.Engine
	store  *store.Store
	opts   Options

	mu      sync.Mutex
	doc     document.Document
	sel     selection.Machine
	version uint64

	session   *preview.Session
	debounced func(func())
}

// New creates an empty workspace. st may be nil when nothing is persisted.
func New(reg *registry.Registry, st *store.Store, opts Options) *Workspace {
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	return &Workspace{
		reg:       reg,
		model:     document.Model{Rules: reg.Rules()},
		engine:    drop.NewEngine(reg, drop.Options{Reparent: opts.Reparent}),
		store:     st,
		opts:      opts,
		doc:       document.Document{},
		debounced: debounce.New(opts.Debounce),
	}
}

// Registry returns the node type registry.
func (w *Workspace) Registry() *registry.Registry { return w.reg }

// AttachPreview connects a preview session. Mutations push to it when auto
// preview is on.
func (w *Workspace) AttachPreview(s *preview.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = s
}

// Document returns the current document. Documents are immutable; callers
// may keep the value.
func (w *Workspace) Document() document.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc
}

// Version increases with every change to the document.
func (w *Workspace) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// Selection returns the selection state.
func (w *Workspace) Selection() selection.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sel.State()
}

// Drop resolves and applies a drag-and-drop. Drops that match no rule return
// drop.Noop and no error.
func (w *Workspace) Drop(p drop.Payload, t drop.Target, at drop.Point, geo drop.Geometry) (drop.Mutation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	out, m, err := w.engine.Drop(w.doc, p, t, at, geo)
	if err != nil {
		return m, err
	}
	if m.Kind == drop.KindNoop {
		return m, nil
	}
	typ := m.Node.Type
	id := m.Node.ID
	if id == "" {
		id = m.ChildID
		if c, ok := w.doc.FindChild(m.ParentID, m.ChildID); ok {
			typ = c.Type
		}
	}
	w.commit(out, activity.ActionDrop, string(id), typ, m.String())
	return m, nil
}

// AddNode inserts a container at the top level.
func (w *Workspace) AddNode(typ string) (document.Node, error) {
	n, err := w.reg.CreateNode(typ, nil)
	if err != nil {
		return document.Node{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	out, err := w.model.InsertTopLevel(w.doc, n)
	if err != nil {
		return document.Node{}, err
	}
	w.commit(out, activity.ActionDrop, string(n.ID), n.Type, "insert at top level")
	return n, nil
}

// AddChild appends a leaf to a container at a local position.
func (w *Workspace) AddChild(parent document.NodeID, typ string, pos document.Position) (document.Node, error) {
	n, err := w.reg.CreateChild(typ, pos)
	if err != nil {
		return document.Node{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	out, err := w.model.AppendChild(w.doc, parent, n)
	if err != nil {
		return document.Node{}, err
	}
	w.commit(out, activity.ActionDrop, string(n.ID), n.Type, fmt.Sprintf("append to %s at (%g, %g)", parent, pos.X, pos.Y))
	return n, nil
}

// Move places a child at pos inside to. A different container reparents it.
func (w *Workspace) Move(child, to document.NodeID, pos document.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	from, ok := w.doc.ParentOf(child)
	if !ok {
		return fmt.Errorf("move %s: %w", child, ErrNoSuchNode)
	}
	if to == "" {
		to = from
	}

	var out document.Document
	var err error
	if to == from {
		out, err = w.model.UpdateChildPosition(w.doc, from, child, pos)
	} else {
		out, err = w.model.MoveChild(w.doc, from, to, child, pos)
	}
	if err != nil {
		return err
	}
	w.commit(out, activity.ActionDrop, string(child), "", fmt.Sprintf("move to %s at (%g, %g)", to, pos.X, pos.Y))
	return nil
}

// Select selects the node with the given id, top-level or child.
func (w *Workspace) Select(id document.NodeID) (selection.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref, ok := w.doc.Locate(id)
	if !ok {
		return w.sel.State(), fmt.Errorf("select %s: %w", id, ErrNoSuchNode)
	}
	if ref.IsChild() {
		w.sel.SelectChild(ref.ParentID, ref.ID)
	} else {
		w.sel.SelectNode(ref.ID)
	}
	return w.sel.State(), nil
}

// ClearSelection returns the selection to idle.
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sel.Clear()
}

// Selected returns the selected node.
func (w *Workspace) Selected() (document.Node, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ref, ok := w.sel.Target()
	if !ok {
		return document.Node{}, false
	}
	return w.doc.Resolve(ref)
}

// Edit merges patch into the selected node's attributes.
func (w *Workspace) Edit(patch document.Attributes) (document.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	out, err := w.sel.Edit(w.model, w.doc, patch)
	if err != nil {
		return document.Node{}, err
	}
	ref, _ := w.sel.Target()
	n, ok := out.Resolve(ref)
	if !ok {
		w.sel.Clear()
		return document.Node{}, selection.ErrNothingSelected
	}
	w.commit(out, activity.ActionEdit, string(ref.ID), n.Type, "set "+keyList(patch))
	return n, nil
}

// EditNode merges patch into any node by id. Unknown ids are a no-op.
func (w *Workspace) EditNode(id document.NodeID, patch document.Attributes) (document.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref, ok := w.doc.Locate(id)
	if !ok {
		return document.Node{}, fmt.Errorf("edit %s: %w", id, ErrNoSuchNode)
	}
	out, err := w.model.UpdateAttributes(w.doc, ref, patch)
	if err != nil {
		return document.Node{}, err
	}
	n, _ := out.Resolve(ref)
	w.commit(out, activity.ActionEdit, string(id), n.Type, "set "+keyList(patch))
	return n, nil
}

// ResetSelected restores the selected node's attributes to its type defaults.
// Attributes the type does not define are kept.
func (w *Workspace) ResetSelected() (document.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref, ok := w.sel.Target()
	if !ok {
		return document.Node{}, selection.ErrNothingSelected
	}
	n, ok := w.doc.Resolve(ref)
	if !ok {
		w.sel.Clear()
		return document.Node{}, selection.ErrNothingSelected
	}
	defaults, ok := w.reg.Defaults(n.Type)
	if !ok {
		return document.Node{}, fmt.Errorf("reset %s: %w", n.Type, registry.ErrUnknownType)
	}
	out, err := w.model.UpdateAttributes(w.doc, ref, defaults)
	if err != nil {
		return document.Node{}, err
	}
	n, _ = out.Resolve(ref)
	w.commit(out, activity.ActionEdit, string(ref.ID), n.Type, "reset to defaults")
	return n, nil
}

// Delete removes a node, top-level or child. Unknown ids are a no-op.
func (w *Workspace) Delete(id document.NodeID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref, ok := w.doc.Locate(id)
	if !ok {
		w.sel.Forget(id)
		return false
	}
	n, _ := w.doc.Resolve(ref)
	var out document.Document
	if ref.IsChild() {
		out = w.model.RemoveChild(w.doc, id)
	} else {
		out = w.model.RemoveTopLevel(w.doc, id)
	}
	w.sel.Forget(id)
	w.commit(out, activity.ActionDelete, string(id), n.Type, "")
	return true
}

// DeleteSelected removes the selected node.
func (w *Workspace) DeleteSelected() (document.NodeID, error) {
	w.mu.Lock()
	ref, ok := w.sel.Target()
	w.mu.Unlock()
	if !ok {
		return "", selection.ErrNothingSelected
	}
	w.Delete(ref.ID)
	return ref.ID, nil
}

// Clear empties the document.
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sel.Clear()
	w.commit(document.Document{}, activity.ActionClear, "", "", "")
}

// Replace swaps in a whole document, as on load. A document the model could
// not have produced is rejected and the current one kept.
func (w *Workspace) Replace(d document.Document, details string) error {
	if d == nil {
		d = document.Document{}
	}
	if err := w.model.Check(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDesign, err)
	}
	d = d.Clone()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sel.Reconcile(d)
	w.commit(d, activity.ActionLoad, "", "", details)
	return nil
}

// Save persists the document.
func (w *Workspace) Save(ctx context.Context) (store.Design, error) {
	if w.store == nil {
		return store.Design{}, ErrNoStore
	}
	d := w.Document()
	design, err := w.store.SaveDesign(ctx, d)
	if err != nil {
		return store.Design{}, err
	}
	w.journal(activity.ActionSave, "", "", fmt.Sprintf("%d nodes", d.Len()))
	return design, nil
}

// Load replaces the document with the saved one. found is false when nothing
// was saved; the document is then left as is.
func (w *Workspace) Load(ctx context.Context) (bool, error) {
	if w.store == nil {
		return false, ErrNoStore
	}
	design, found, err := w.store.LoadDesign(ctx)
	if err != nil || !found {
		return false, err
	}
	details := fmt.Sprintf("%d nodes saved %s", design.Components.Len(), design.SavedAt().Format(time.RFC3339))
	if err := w.Replace(design.Components, details); err != nil {
		return true, err
	}
	return true, nil
}

// Generate renders the document as React source.
func (w *Workspace) Generate() codegen.Result {
	return codegen.Generate(w.Document(), w.reg)
}

// Snapshot is the preview payload for the current document.
func (w *Workspace) Snapshot() preview.Snapshot {
	d := w.Document()
	return preview.Snapshot{
		Components:    d,
		GeneratedCode: codegen.Generate(d, w.reg).Source,
		Timestamp:     time.Now().UnixMilli(),
	}
}

// OpenPreview launches the renderer and starts the handshake.
func (w *Workspace) OpenPreview(ctx context.Context) error {
	s, err := w.previewSession(true)
	if err != nil {
		return err
	}
	if err := s.Open(ctx); err != nil {
		return err
	}
	w.journal(activity.ActionPreview, "", "", "open")
	return nil
}

// PushPreview sends the current snapshot to connected renderers.
func (w *Workspace) PushPreview() error {
	s, err := w.previewSession(false)
	if err != nil {
		return err
	}
	if err := s.Push(); err != nil {
		return err
	}
	w.journal(activity.ActionPreview, "", "", "push")
	return nil
}

// RetryPreview re-opens the renderer after a failed handshake or send and
// re-sends the current snapshot.
func (w *Workspace) RetryPreview(ctx context.Context) error {
	s, err := w.previewSession(false)
	if err != nil {
		return err
	}
	if err := s.Retry(ctx); err != nil {
		return err
	}
	w.journal(activity.ActionPreview, "", "", "retry")
	return nil
}

// PreviewStatus reports the preview session.
func (w *Workspace) PreviewStatus() preview.Report {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()
	if s == nil {
		return preview.Report{Status: preview.StatusIdle}
	}
	return s.Status()
}

func (w *Workspace) previewSession(requireContent bool) (*preview.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil, ErrNoPreview
	}
	if requireContent && w.doc.Len() == 0 {
		return nil, ErrEmptyDesign
	}
	return w.session, nil
}

// Register adds a node type and persists the custom catalog when enabled.
func (w *Workspace) Register(ctx context.Context, t registry.NodeType) error {
	if err := w.reg.Register(t); err != nil {
		return err
	}
	w.journal(activity.ActionRegister, "", t.Type, "register")
	return w.persistCatalog(ctx)
}

// Unregister removes a node type. Nodes of that type stay in the document.
func (w *Workspace) Unregister(ctx context.Context, typ string) (bool, error) {
	if !w.reg.Unregister(typ) {
		return false, nil
	}
	w.journal(activity.ActionRegister, "", typ, "remove")
	return true, w.persistCatalog(ctx)
}

// RestoreCatalog imports saved custom node types.
func (w *Workspace) RestoreCatalog(ctx context.Context) (int, error) {
	if w.store == nil || !w.opts.PersistCatalog {
		return 0, nil
	}
	entries, found, err := w.store.LoadRegistry(ctx)
	if err != nil || !found {
		return 0, err
	}
	return w.reg.Import(entries), nil
}

func (w *Workspace) persistCatalog(ctx context.Context) error {
	if w.store == nil || !w.opts.PersistCatalog {
		return nil
	}
	return w.store.SaveRegistry(ctx, w.reg.Custom())
}

// commit must be called with mu held.
func (w *Workspace) commit(d document.Document, action, node, typ, details string) {
	w.doc = d
	w.version++
	w.journal(action, node, typ, details)
	if w.session != nil && w.opts.AutoPreview {
		s := w.session
		w.debounced(func() { _ = s.Push() })
	}
}

func (w *Workspace) journal(action, node, typ, details string) {
	if w.opts.Journal == nil {
		return
	}
	_ = w.opts.Journal.Log(action, node, typ, details)
}

func keyList(a document.Attributes) string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return strings.Join(keys, ", ")
}
