package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/msalah0e/canopy/internal/document"
)

func sampleTypes() []NodeType {
	return []NodeType{
		{Type: "hero", Name: "Hero Section", Category: "layout", Kind: KindContainer, Module: "components/Hero/Hero",
			Defaults: map[string]any{"title": "Welcome"}},
		{Type: "navbar", Name: "Navigation Bar", Category: "navigation", Kind: KindContainer, Tags: []string{"menu"}},
		{Type: "button", Name: "Button", Category: "form", Kind: KindLeaf, Module: "components/Button",
			Defaults: map[string]any{"text": "Button"},
			Fields:   []Field{{Key: "text", Param: "children"}}},
		{Type: "text", Name: "Text", Category: "content", Kind: KindLeaf},
	}
}

func TestNew(t *testing.T) {
	reg := New(sampleTypes())
	if len(reg.All()) != 4 {
		t.Errorf("expected 4 types, got %d", len(reg.All()))
	}
}

func TestGet(t *testing.T) {
	reg := New(sampleTypes())

	hero, ok := reg.Get("hero")
	if !ok {
		t.Fatal("Get(hero) not found")
	}
	if hero.Name != "Hero Section" {
		t.Errorf("expected name 'Hero Section', got %q", hero.Name)
	}
	if _, ok := reg.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) should not be found")
	}
}

func TestSearch(t *testing.T) {
	reg := New(sampleTypes())

	tests := []struct {
		query    string
		expected int
	}{
		{"layout", 1},     // category match
		{"hero", 1},       // type match
		{"navigation", 1}, // name + category match
		{"menu", 1},       // tag match
		{"t", 4},          // substring of every type or name
		{"nonexistent", 0},
	}

	for _, tt := range tests {
		results := reg.Search(tt.query)
		if len(results) != tt.expected {
			t.Errorf("Search(%q): expected %d results, got %d", tt.query, tt.expected, len(results))
		}
	}
}

func TestByCategoryAndCategories(t *testing.T) {
	reg := New(sampleTypes())

	if got := len(reg.ByCategory("form")); got != 1 {
		t.Errorf("expected 1 form type, got %d", got)
	}
	if got := len(reg.ByCategory("nonexistent")); got != 0 {
		t.Errorf("expected 0 types, got %d", got)
	}

	cats := reg.Categories()
	want := []string{"layout", "navigation", "form", "content"}
	if len(cats) != len(want) {
		t.Fatalf("expected %v, got %v", want, cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("category %d: expected %q, got %q", i, want[i], cats[i])
		}
	}
}

func TestListCreatableContainersFirst(t *testing.T) {
	types := sampleTypes()
	types[0], types[2] = types[2], types[0] // button before hero
	reg := New(types)

	list := reg.ListCreatable("")
	if len(list) != 4 {
		t.Fatalf("expected 4 types, got %d", len(list))
	}
	if !list[0].IsContainer() || !list[1].IsContainer() {
		t.Errorf("containers should come first, got %s, %s", list[0].Type, list[1].Type)
	}
	if list[2].Type != "button" {
		t.Errorf("leaves should keep registration order, got %s", list[2].Type)
	}

	if got := len(reg.ListCreatable("content")); got != 1 {
		t.Errorf("expected 1 content type, got %d", got)
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	reg := New(sampleTypes())

	err := reg.Register(NodeType{Type: "pricing-table", Kind: KindContainer})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	pt, ok := reg.Get("pricing-table")
	if !ok {
		t.Fatal("registered type not found")
	}
	if pt.Category != "custom" || pt.Name != "pricing-table" || pt.RegisteredAt == "" {
		t.Errorf("unexpected registered type: %+v", pt)
	}
	if pt.ComponentName() != "PricingTable" {
		t.Errorf("expected PricingTable, got %q", pt.ComponentName())
	}

	if err := reg.Register(NodeType{Type: "bad type"}); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
	if err := reg.Register(NodeType{Type: "x", Kind: "widget"}); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType for bad kind, got %v", err)
	}

	if !reg.Unregister("hero") {
		t.Error("Unregister(hero) should report true")
	}
	if reg.Unregister("hero") {
		t.Error("second Unregister(hero) should report false")
	}
	if _, ok := reg.Get("button"); !ok {
		t.Error("button lost after unregistering hero")
	}
	if len(reg.All()) != 4 {
		t.Errorf("expected 4 types, got %d", len(reg.All()))
	}
}

func TestRegisterRejectsUnusableComponentNames(t *testing.T) {
	reg := New(sampleTypes())

	for _, typ := range []string{"2col", "-", "_", "my.card", "a+b"} {
		if err := reg.Register(NodeType{Type: typ}); !errors.Is(err, ErrInvalidType) {
			t.Errorf("Register(%q): expected ErrInvalidType, got %v", typ, err)
		}
	}
	if err := reg.Register(NodeType{Type: "card", Component: "my-card"}); !errors.Is(err, ErrInvalidType) {
		t.Errorf("explicit component name should be checked too, got %v", err)
	}

	if err := reg.Register(NodeType{Type: "my-card"}); err != nil {
		t.Fatalf("Register(my-card) failed: %v", err)
	}
	if err := reg.Register(NodeType{Type: "my_card"}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken for my_card, got %v", err)
	}
	if err := reg.Register(NodeType{Type: "fancy", Component: "Hero"}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken for a component named Hero, got %v", err)
	}
	if err := reg.Register(NodeType{Type: "my-card", Kind: KindContainer}); err != nil {
		t.Errorf("re-registering a type under its own name should work, got %v", err)
	}
}

func TestImportSkipsUnusableEntries(t *testing.T) {
	reg := New(sampleTypes())
	n := reg.Import([]Entry{
		{Type: "banner", Config: NodeType{Kind: KindContainer}},
		{Type: "2col", Config: NodeType{}},
		{Type: "heroes", Config: NodeType{Component: "Hero"}},
	})
	if n != 1 {
		t.Errorf("expected 1 applied entry, got %d", n)
	}
	if _, ok := reg.Get("2col"); ok {
		t.Error("2col should have been skipped")
	}
}

func TestComponentName(t *testing.T) {
	tests := []struct {
		typ, want string
		valid     bool
	}{
		{"hero", "Hero", true},
		{"my-card", "MyCard", true},
		{"search_bar", "SearchBar", true},
		{"élan", "Élan", true},
		{"2col", "2col", false},
		{"-", "", false},
	}
	for _, tt := range tests {
		got := ComponentName(tt.typ)
		if got != tt.want {
			t.Errorf("ComponentName(%q) = %q, want %q", tt.typ, got, tt.want)
		}
		if ValidComponentName(got) != tt.valid {
			t.Errorf("ValidComponentName(%q) = %v, want %v", got, !tt.valid, tt.valid)
		}
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	reg := New(sampleTypes())
	_ = reg.Register(NodeType{Type: "banner", Kind: KindContainer, Defaults: map[string]any{"text": "Sale"}})

	custom := reg.Custom()
	if len(custom) != 1 || custom[0].Type != "banner" {
		t.Fatalf("expected only banner as custom, got %+v", custom)
	}

	data, err := json.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if data[0] != '[' || data[1] != '[' {
		t.Errorf("expected association list, got %s", data)
	}

	var back []Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	fresh := New(sampleTypes())
	if n := fresh.Import(back); n != 1 {
		t.Errorf("expected 1 imported entry, got %d", n)
	}
	banner, ok := fresh.Get("banner")
	if !ok || !banner.IsContainer() || banner.Defaults["text"] != "Sale" {
		t.Errorf("banner did not survive round-trip: %+v", banner)
	}
}

func TestEntryUnmarshalRejectsBadShape(t *testing.T) {
	var e Entry
	if err := json.Unmarshal([]byte(`["only-type"]`), &e); err == nil {
		t.Error("expected error for single-element entry")
	}
}

func TestCreateNode(t *testing.T) {
	n := 0
	reg := New(sampleTypes(), WithIDFunc(func() document.NodeID {
		n++
		return document.NodeID("id-" + string(rune('0'+n)))
	}))

	hero, err := reg.CreateNode("hero", nil)
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if hero.ID != "id-1" || hero.Children == nil || hero.Attr("title") != "Welcome" {
		t.Errorf("unexpected hero: %+v", hero)
	}

	btn, err := reg.CreateChild("button", document.Position{X: 4, Y: 5})
	if err != nil {
		t.Fatalf("CreateChild failed: %v", err)
	}
	if btn.ID != "id-2" || btn.Children != nil || btn.Placed() != (document.Position{X: 4, Y: 5}) {
		t.Errorf("unexpected button: %+v", btn)
	}

	btn.Attrs["text"] = "changed"
	again, _ := reg.CreateChild("button", document.Position{})
	if again.Attr("text") != "Button" {
		t.Error("defaults must be copied per node")
	}

	if _, err := reg.CreateChild("hero", document.Position{}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if _, err := reg.CreateNode("nope", nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestRules(t *testing.T) {
	reg := New(sampleTypes())
	_ = reg.Register(NodeType{Type: "banner", Kind: KindContainer})
	rules := reg.Rules()

	for typ, want := range map[string]bool{"hero": true, "banner": true, "button": false, "grid": true, "mystery": false} {
		if got := rules.IsContainer(typ); got != want {
			t.Errorf("IsContainer(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestUnknownKeys(t *testing.T) {
	reg := New(sampleTypes())
	n := document.Node{Type: "button", Attrs: document.Attributes{"text": "x", "zeta": 1, "alpha": 2}}
	got := reg.UnknownKeys(n)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("expected [alpha zeta], got %v", got)
	}
}

func TestBuiltin(t *testing.T) {
	reg, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin failed: %v", err)
	}
	all := reg.All()
	if len(all) != 14 {
		t.Fatalf("expected 14 built-in types, got %d", len(all))
	}
	for i, typ := range all[:6] {
		if !typ.IsContainer() {
			t.Errorf("type %d (%s) should be a container", i, typ.Type)
		}
	}

	nav, ok := reg.Get("navbar")
	if !ok {
		t.Fatal("navbar missing")
	}
	if nav.Defaults["bgColor"] != "#1f2937" {
		t.Errorf("navbar bgColor should override base, got %v", nav.Defaults["bgColor"])
	}
	if nav.Defaults["border"] != "1px solid #e5e7eb" {
		t.Errorf("navbar should inherit base border, got %v", nav.Defaults["border"])
	}
	if f, ok := nav.Field("bgColor"); !ok || f.Mode() != EmitProp {
		t.Errorf("navbar bgColor should be a prop field, got %+v", f)
	}
	links, ok := nav.DefaultAttrs()["links"].([]any)
	if !ok || len(links) != 3 {
		t.Errorf("expected 3 normalized links, got %#v", nav.DefaultAttrs()["links"])
	}

	sb, _ := reg.Get("searchbar")
	if sb.ComponentName() != "SearchBar" {
		t.Errorf("expected SearchBar, got %q", sb.ComponentName())
	}
	for _, typ := range all {
		if typ.Module == "" {
			t.Errorf("built-in %s has no module path", typ.Type)
		}
	}
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"types/base.toml": {Data: []byte("[leaf.defaults]\ncolor = \"red\"\n")},
		"types/a.toml": {Data: []byte(`
[[types]]
type = "badge"
name = "Badge"
category = "content"

[types.defaults]
text = "New"
`)},
		"types/readme.md": {Data: []byte("ignored")},
	}

	reg, err := LoadFromFS(fsys, "types")
	if err != nil {
		t.Fatalf("LoadFromFS failed: %v", err)
	}
	badge, ok := reg.Get("badge")
	if !ok {
		t.Fatal("badge not loaded")
	}
	if badge.Kind != KindLeaf || badge.Defaults["color"] != "red" || badge.Defaults["text"] != "New" {
		t.Errorf("unexpected badge: %+v", badge)
	}
}

func TestLoadAllPluginOverride(t *testing.T) {
	dir := t.TempDir()
	plugin := `
[[types]]
type = "hero"
name = "Big Hero"
category = "layout"
kind = "container"
module = "components/BigHero"

[[types]]
type = "pricing"
name = "Pricing"
kind = "container"
`
	if err := os.WriteFile(filepath.Join(dir, "mine.toml"), []byte(plugin), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("[[types"), 0o644)

	reg, err := LoadAll(dir)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(reg.All()) != 15 {
		t.Errorf("expected 15 types, got %d", len(reg.All()))
	}
	hero, _ := reg.Get("hero")
	if hero.Name != "Big Hero" || hero.Module != "components/BigHero" {
		t.Errorf("plugin should override built-in hero, got %+v", hero)
	}
	if hero.Defaults["padding"] != "16px" {
		t.Errorf("plugin type should inherit base defaults, got %v", hero.Defaults["padding"])
	}

	if _, err := LoadAll(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("missing plugin dir should be fine, got %v", err)
	}
}
