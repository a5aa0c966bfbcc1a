package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/registry"
)

// Storage keys.
const (
	DesignKey   = "canopy-design"
	RegistryKey = "canopy-component-registry"
)

// DesignVersion is written into every saved design.
const DesignVersion = "1.0"

var ErrBadDesign = errors.New("not a canopy design")

// Design is the persisted form of a document.
type Design struct {
	Components document.Document `json:"components"`
	Timestamp  int64             `json:"timestamp"`
	Version    string            `json:"version"`
}

// SavedAt returns the save time.
func (d Design) SavedAt() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// DecodeDesign accepts a saved design or a bare component list.
func DecodeDesign(data []byte) (Design, error) {
	var head json.RawMessage
	if err := json.Unmarshal(data, &head); err != nil {
		return Design{}, fmt.Errorf("%v: %w", err, ErrBadDesign)
	}

	var d Design
	if len(head) > 0 && head[0] == '[' {
		if err := json.Unmarshal(data, &d.Components); err != nil {
			return Design{}, fmt.Errorf("%v: %w", err, ErrBadDesign)
		}
		d.Version = DesignVersion
		return d, nil
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return Design{}, fmt.Errorf("%v: %w", err, ErrBadDesign)
	}
	if d.Components == nil {
		d.Components = document.Document{}
	}
	return d, nil
}

// Store reads and writes canopy data in a KV backend.
type Store struct {
	kv  KV
	now func() time.Time
}

// New wraps a backend.
func New(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// SaveDesign writes d under DesignKey.
func (s *Store) SaveDesign(ctx context.Context, d document.Document) (Design, error) {
	if d == nil {
		d = document.Document{}
	}
	design := Design{Components: d, Timestamp: s.now().UnixMilli(), Version: DesignVersion}
	data, err := json.Marshal(design)
	if err != nil {
		return Design{}, fmt.Errorf("encoding design: %w", err)
	}
	if err := s.kv.Put(ctx, DesignKey, data); err != nil {
		return Design{}, fmt.Errorf("saving design: %w", err)
	}
	return design, nil
}

// LoadDesign reads the saved design. found is false when nothing was saved.
func (s *Store) LoadDesign(ctx context.Context) (Design, bool, error) {
	data, found, err := s.kv.Get(ctx, DesignKey)
	if err != nil {
		return Design{}, false, fmt.Errorf("loading design: %w", err)
	}
	if !found {
		return Design{}, false, nil
	}
	d, err := DecodeDesign(data)
	if err != nil {
		return Design{}, false, err
	}
	return d, true, nil
}

// ClearDesign removes the saved design.
func (s *Store) ClearDesign(ctx context.Context) error {
	return s.kv.Delete(ctx, DesignKey)
}

// SaveRegistry writes the registered node types as an association list.
func (s *Store) SaveRegistry(ctx context.Context, entries []registry.Entry) error {
	if entries == nil {
		entries = []registry.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := s.kv.Put(ctx, RegistryKey, data); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

// LoadRegistry reads the saved node types.
func (s *Store) LoadRegistry(ctx context.Context) ([]registry.Entry, bool, error) {
	data, found, err := s.kv.Get(ctx, RegistryKey)
	if err != nil {
		return nil, false, fmt.Errorf("loading registry: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	var entries []registry.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decoding registry: %w", err)
	}
	return entries, true, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}
