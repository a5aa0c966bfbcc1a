package cmd

import (
	"testing"

	"github.com/msalah0e/canopy/internal/document"
)

func TestParseAssignments(t *testing.T) {
	patch, err := parseAssignments([]string{
		"title=Hello world",
		"columns=3",
		"sticky=true",
		`links=[{"text":"Home","href":"/"}]`,
		"query=a=b",
		"empty=",
	})
	if err != nil {
		t.Fatalf("parseAssignments failed: %v", err)
	}
	if patch["title"] != "Hello world" {
		t.Errorf("expected plain string, got %#v", patch["title"])
	}
	if patch["columns"] != float64(3) {
		t.Errorf("expected number 3, got %#v", patch["columns"])
	}
	if patch["sticky"] != true {
		t.Errorf("expected bool true, got %#v", patch["sticky"])
	}
	links, ok := patch["links"].([]any)
	if !ok || len(links) != 1 {
		t.Fatalf("expected one link, got %#v", patch["links"])
	}
	if link := links[0].(map[string]any); link["text"] != "Home" {
		t.Errorf("expected link text Home, got %#v", link)
	}
	if patch["query"] != "a=b" {
		t.Errorf("expected value split on the first '=', got %#v", patch["query"])
	}
	if patch["empty"] != "" {
		t.Errorf("expected empty string, got %#v", patch["empty"])
	}
}

func TestParseAssignments_Invalid(t *testing.T) {
	for _, arg := range []string{"title", "=value"} {
		if _, err := parseAssignments([]string{arg}); err == nil {
			t.Errorf("expected error for %q", arg)
		}
	}
}

func TestSummary(t *testing.T) {
	n := document.Node{Type: "hero", Attrs: document.Attributes{"subtitle": "x", "title": "Welcome"}}
	if got := summary(n); got != "title=Welcome" {
		t.Errorf("expected title summary, got %q", got)
	}
	n = document.Node{Type: "grid", Attrs: document.Attributes{"columns": float64(3)}}
	if got := summary(n); got != "1 attributes" {
		t.Errorf("expected attribute count, got %q", got)
	}
}
