package registry

import (
	"encoding/json"
	"fmt"
)

// Entry is one (type, config) pair of the persisted registry.
type Entry struct {
	Type   string
	Config NodeType
}

// MarshalJSON encodes the entry as a two-element array.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Type, e.Config})
}

// UnmarshalJSON decodes a [type, config] pair.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("registry entry: want [type, config], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Type); err != nil {
		return fmt.Errorf("registry entry type: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Config); err != nil {
		return fmt.Errorf("registry entry %q: %w", e.Type, err)
	}
	e.Config.Type = e.Type
	return nil
}

// Entries returns every type as an association list.
func (r *Registry) Entries() []Entry {
	var out []Entry
	for _, t := range r.All() {
		out = append(out, Entry{Type: t.Type, Config: t})
	}
	return out
}

// Custom returns only the types registered at runtime.
func (r *Registry) Custom() []Entry {
	var out []Entry
	for _, t := range r.All() {
		if t.RegisteredAt != "" {
			out = append(out, Entry{Type: t.Type, Config: t})
		}
	}
	return out
}

// Import merges entries into the registry, keeping their registration stamps.
// Entries whose component name is unusable or already taken are skipped. It
// returns how many entries were applied.
func (r *Registry) Import(entries []Entry) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range entries {
		if e.Type == "" {
			continue
		}
		t := e.Config
		t.Type = e.Type
		if t.Kind == "" {
			t.Kind = KindLeaf
		}
		if r.checkComponent(t) != nil {
			continue
		}
		r.put(t)
		n++
	}
	return n
}
