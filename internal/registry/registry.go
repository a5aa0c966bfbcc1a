package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/msalah0e/canopy/internal/document"
)

var (
	ErrUnknownType = errors.New("unknown node type")
	ErrWrongKind   = errors.New("node type has the wrong kind")
	ErrInvalidType = errors.New("invalid node type")
	ErrNameTaken   = errors.New("component name already in use")
)

// Registry holds every creatable node type. It is built once at startup and
// passed to whatever needs to create or list nodes; registrations after that
// are rare.
type Registry struct {
	mu     sync.RWMutex
	types  []NodeType
	byName map[string]int
	newID  func() document.NodeID
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDFunc replaces the node id generator.
func WithIDFunc(fn func() document.NodeID) Option {
	return func(r *Registry) { r.newID = fn }
}

// New creates a registry from a list of types. Later duplicates replace
// earlier ones in place.
func New(types []NodeType, opts ...Option) *Registry {
	r := &Registry{
		byName: make(map[string]int, len(types)),
		newID:  document.NewID,
	}
	for _, o := range opts {
		o(r)
	}
	for _, t := range types {
		r.put(t)
	}
	return r
}

func (r *Registry) put(t NodeType) {
	if i, ok := r.byName[t.Type]; ok {
		r.types[i] = t
		return
	}
	r.byName[t.Type] = len(r.types)
	r.types = append(r.types, t)
}

// All returns all types in registration order.
func (r *Registry) All() []NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeType, len(r.types))
	copy(out, r.types)
	return out
}

// Get returns a type by name.
func (r *Registry) Get(typ string) (NodeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[typ]
	if !ok {
		return NodeType{}, false
	}
	return r.types[i], true
}

// Search finds types matching a query against type, name, category, and tags.
func (r *Registry) Search(query string) []NodeType {
	q := strings.ToLower(query)
	var results []NodeType
	for _, t := range r.All() {
		if matches(t, q) {
			results = append(results, t)
		}
	}
	return results
}

// ByCategory returns types filtered by category.
func (r *Registry) ByCategory(category string) []NodeType {
	var results []NodeType
	for _, t := range r.All() {
		if t.Category == category {
			results = append(results, t)
		}
	}
	return results
}

// Categories returns all unique categories in first-seen order.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, t := range r.All() {
		if !seen[t.Category] {
			seen[t.Category] = true
			cats = append(cats, t.Category)
		}
	}
	return cats
}

// ListCreatable drives the palette. An empty category lists everything,
// containers first, each group in registration order.
func (r *Registry) ListCreatable(category string) []NodeType {
	var list []NodeType
	if category == "" || category == "all" {
		list = r.All()
	} else {
		list = r.ByCategory(category)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].IsContainer() && !list[j].IsContainer()
	})
	return list
}

// Register adds or replaces a type.
func (r *Registry) Register(t NodeType) error {
	if t.Type == "" || strings.ContainsAny(t.Type, " \t\n/") {
		return fmt.Errorf("register %q: %w", t.Type, ErrInvalidType)
	}
	switch t.Kind {
	case KindContainer, KindLeaf:
	case "":
		t.Kind = KindLeaf
	default:
		return fmt.Errorf("register %q: kind %q: %w", t.Type, t.Kind, ErrInvalidType)
	}
	if t.Name == "" {
		t.Name = t.Type
	}
	if t.Category == "" {
		t.Category = "custom"
	}
	if t.Defaults == nil {
		t.Defaults = map[string]any{}
	}
	t.RegisteredAt = time.Now().UTC().Format(time.RFC3339)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkComponent(t); err != nil {
		return fmt.Errorf("register %q: %w", t.Type, err)
	}
	r.put(t)
	return nil
}

// checkComponent rejects types whose generated tag would not parse or would
// collide with another type's import binding. mu must be held.
func (r *Registry) checkComponent(t NodeType) error {
	name := t.ComponentName()
	if !ValidComponentName(name) {
		return fmt.Errorf("component name %q: %w", name, ErrInvalidType)
	}
	for _, other := range r.types {
		if other.Type != t.Type && other.ComponentName() == name {
			return fmt.Errorf("%s is used by %q: %w", name, other.Type, ErrNameTaken)
		}
	}
	return nil
}

// Unregister removes a type. It reports whether the type existed.
func (r *Registry) Unregister(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byName[typ]
	if !ok {
		return false
	}
	r.types = append(r.types[:i:i], r.types[i+1:]...)
	r.byName = make(map[string]int, len(r.types))
	for j, t := range r.types {
		r.byName[t.Type] = j
	}
	return true
}

// Rules exposes the registry's container kinds to the document model. Types
// the registry has never seen fall back to the built-in container list.
func (r *Registry) Rules() document.Rules {
	return document.Rules{IsContainer: func(typ string) bool {
		if t, ok := r.Get(typ); ok {
			return t.IsContainer()
		}
		for _, c := range document.ContainerTypes {
			if c == typ {
				return true
			}
		}
		return false
	}}
}

// UnknownKeys lists attribute keys of n that its type does not declare, sorted.
func (r *Registry) UnknownKeys(n document.Node) []string {
	t, ok := r.Get(n.Type)
	if !ok {
		return nil
	}
	var unknown []string
	for k := range n.Attrs {
		if _, known := t.Field(k); known {
			continue
		}
		if _, known := t.Defaults[k]; known {
			continue
		}
		unknown = append(unknown, k)
	}
	sort.Strings(unknown)
	return unknown
}

func matches(t NodeType, query string) bool {
	if strings.Contains(strings.ToLower(t.Type), query) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Name), query) {
		return true
	}
	if strings.ToLower(t.Category) == query {
		return true
	}
	for _, tag := range t.Tags {
		if strings.ToLower(tag) == query {
			return true
		}
	}
	return false
}
