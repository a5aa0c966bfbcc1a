package activity

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Actions recorded in the journal.
const (
	ActionDrop     = "drop"
	ActionEdit     = "edit"
	ActionDelete   = "delete"
	ActionSave     = "save"
	ActionLoad     = "load"
	ActionClear    = "clear"
	ActionPreview  = "preview"
	ActionRegister = "register"
	ActionExport   = "export"
)

// Entry represents a single journal entry.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Node      string    `json:"node,omitempty"`
	Type      string    `json:"type,omitempty"`
	Details   string    `json:"details,omitempty"`
}

var mu sync.Mutex

func logPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "canopy", "activity.jsonl")
}

// Path returns the journal location.
func Path() string {
	return logPath()
}

// Log appends an entry to the journal.
func Log(action, node, typ, details string) error {
	return appendEntry(Entry{
		Timestamp: time.Now(),
		Action:    action,
		Node:      node,
		Type:      typ,
		Details:   details,
	})
}

// Logf is Log with a formatted details string.
func Logf(action, node, typ, format string, args ...any) error {
	return Log(action, node, typ, fmt.Sprintf(format, args...))
}

func appendEntry(entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	path := logPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "%s\n", data)
	return err
}

// Read returns the last N entries from the journal, newest first.
func Read(count int) ([]Entry, error) {
	data, err := os.ReadFile(logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	}

	slices.Reverse(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// Search finds entries matching a query, case-insensitively.
func Search(query string, count int) ([]Entry, error) {
	all, err := Read(0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var results []Entry
	for _, e := range all {
		if contains(e.Action, q) || contains(e.Node, q) || contains(e.Type, q) || contains(e.Details, q) {
			results = append(results, e)
			if count > 0 && len(results) >= count {
				break
			}
		}
	}
	return results, nil
}

// Clear removes all journal entries.
func Clear() error {
	err := os.Remove(logPath())
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func contains(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}
