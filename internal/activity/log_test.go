package activity

import (
	"testing"
)

func TestLogAndRead(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	entries, err := Read(10)
	if err != nil {
		t.Fatalf("Read on empty journal: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty journal, got %d entries", len(entries))
	}

	if err := Log(ActionDrop, "n1", "hero", "insert at top level"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := Logf(ActionEdit, "n1", "hero", "set %s", "title"); err != nil {
		t.Fatalf("Logf failed: %v", err)
	}
	if err := Log(ActionSave, "", "", "2 nodes"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	entries, err = Read(0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Action != ActionSave {
		t.Errorf("expected newest first, got %q", entries[0].Action)
	}

	limited, _ := Read(2)
	if len(limited) != 2 {
		t.Errorf("expected 2 entries, got %d", len(limited))
	}
}

func TestSearch(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	Log(ActionDrop, "n1", "hero", "insert")
	Log(ActionDrop, "c1", "button", "append to n1")
	Log(ActionDelete, "c1", "button", "")

	results, err := Search("BUTTON", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 button entries, got %d", len(results))
	}

	results, _ = Search("n1", 1)
	if len(results) != 1 {
		t.Errorf("expected search limit to apply, got %d", len(results))
	}
}

func TestClear(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := Clear(); err != nil {
		t.Errorf("Clear on missing journal should succeed: %v", err)
	}
	Log(ActionClear, "", "", "")
	if err := Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	entries, _ := Read(0)
	if len(entries) != 0 {
		t.Errorf("expected empty journal after clear, got %d", len(entries))
	}
}
