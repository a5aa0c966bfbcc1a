package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/registry"
)

func testCatalog() *registry.Registry {
	return registry.New([]registry.NodeType{
		{
			Type: "card", Kind: registry.KindContainer, Module: "components/Card/Card",
			Fields: []registry.Field{
				{Key: "title", Param: "title"},
				{Key: "bgColor", Param: "backgroundColor", Emit: registry.EmitStyle},
				{Key: "width", Emit: registry.EmitClass},
			},
		},
		{
			Type: "navbar", Kind: registry.KindContainer, Module: "components/Navbar/Navbar",
			Fields: []registry.Field{
				{Key: "links", Param: "links", Emit: registry.EmitExpr},
			},
		},
		{
			Type: "button", Kind: registry.KindLeaf, Module: "components/Button",
			Fields: []registry.Field{
				{Key: "text", Param: "children"},
				{Key: "textColor", Param: "color", Emit: registry.EmitStyle},
				{Key: "note"},
			},
		},
		{Type: "badge", Kind: registry.KindLeaf},
	})
}

func sample() document.Document {
	return document.Document{
		{ID: "n1", Type: "navbar", Attrs: document.Attributes{
			"links": []any{map[string]any{"text": "Home", "href": "/"}},
		}},
		{ID: "c1", Type: "card", Attrs: document.Attributes{"title": "Hi", "bgColor": "#fff", "width": "w-full"},
			Children: []document.Node{
				{ID: "b1", Type: "button", Attrs: document.Attributes{"text": "Go", "textColor": "red", "note": "x"},
					Position: &document.Position{X: 40, Y: 12}},
				{ID: "b2", Type: "badge"},
			}},
	}
}

func TestGenerateEmptyDocumentIsPlaceholder(t *testing.T) {
	res := Generate(nil, testCatalog())
	assert.Equal(t, Placeholder, res.Source)
	assert.Empty(t, res.Imports)

	res = Generate(document.Document{}, testCatalog())
	assert.Equal(t, Placeholder, res.Source)
}

func TestGenerateExactOutput(t *testing.T) {
	want := `import React from 'react';
import Navbar from './components/Navbar/Navbar';
import Card from './components/Card/Card';
import Button from './components/Button';

export default function App() {
  return (
    <div className="min-h-screen">
      <Navbar links={[{"href":"/","text":"Home"}]} />
      <Card title="Hi" style={{backgroundColor: '#fff'}} className="w-full">
        <Button children="Go" style={{position: 'absolute', left: '40px', top: '12px', color: 'red'}} />
        <Badge style={{position: 'absolute', left: '0px', top: '0px'}} />
      </Card>
    </div>
  );
}
`
	res := Generate(sample(), testCatalog())
	assert.Equal(t, want, res.Source)
	require.Len(t, res.Imports, 3)
	assert.Equal(t, Import{Type: "navbar", Component: "Navbar", Path: "components/Navbar/Navbar"}, res.Imports[0])
}

func TestGenerateIsDeterministic(t *testing.T) {
	cat := testCatalog()
	d := sample()
	d[1].Attrs["extra"] = map[string]any{"b": 1, "a": 2}
	first := Generate(d, cat).Source
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Generate(d, cat).Source)
	}
}

func TestGenerateSkipsFalsyValues(t *testing.T) {
	d := document.Document{{ID: "c1", Type: "card", Attrs: document.Attributes{"title": "", "bgColor": nil}}}
	res := Generate(d, testCatalog())
	assert.Contains(t, res.Source, "      <Card />\n")
}

func TestGenerateEscapesStrings(t *testing.T) {
	d := document.Document{{ID: "c1", Type: "card", Attrs: document.Attributes{"title": `say "hi"`}}}
	res := Generate(d, testCatalog())
	assert.Contains(t, res.Source, `<Card title={"say \"hi\""} />`)
}

func TestGenerateHeroWithBuiltinCatalog(t *testing.T) {
	reg, err := registry.Builtin()
	require.NoError(t, err)

	hero, err := reg.CreateNode("hero", nil)
	require.NoError(t, err)
	hero.Attrs["title"] = "Welcome"
	hero.Attrs["subtitle"] = "Build things"

	res := Generate(document.Document{hero}, reg)
	assert.Equal(t, 1, strings.Count(res.Source, "<Hero "))
	assert.Contains(t, res.Source, `title="Welcome"`)
	assert.Contains(t, res.Source, `subtitle="Build things"`)
	assert.Equal(t, 1, strings.Count(res.Source, "import Hero from './components/Hero/Hero';"))
	require.Len(t, res.Imports, 1)

	require.NoError(t, Validate(context.Background(), res.Source))
}

func TestGenerateOneImportPerType(t *testing.T) {
	reg, err := registry.Builtin()
	require.NoError(t, err)

	card, err := reg.CreateNode("card", nil)
	require.NoError(t, err)
	for _, p := range []document.Position{{X: 1, Y: 2}, {X: 3.5, Y: 4}} {
		b, err := reg.CreateChild("button", p)
		require.NoError(t, err)
		card.Children = append(card.Children, b)
	}
	card2, err := reg.CreateNode("card", nil)
	require.NoError(t, err)

	res := Generate(document.Document{card, card2}, reg)
	assert.Equal(t, 1, strings.Count(res.Source, "import Card "))
	assert.Equal(t, 1, strings.Count(res.Source, "import Button "))
	assert.Contains(t, res.Source, "left: '3.5px'")
	require.NoError(t, Validate(context.Background(), res.Source))
}

func TestUnknownTypeIsRenderedNotImported(t *testing.T) {
	d := document.Document{{ID: "x", Type: "fancy-box"}}
	res := Generate(d, testCatalog())
	assert.Empty(t, res.Imports)
	assert.Contains(t, res.Source, "<FancyBox />")
}

func TestRegisteredTypesAlwaysParse(t *testing.T) {
	reg := testCatalog()
	require.NoError(t, reg.Register(registry.NodeType{Type: "my-card", Kind: registry.KindContainer, Module: "components/MyCard"}))
	require.NoError(t, reg.Register(registry.NodeType{Type: "élan", Module: "components/Elan"}))
	assert.ErrorIs(t, reg.Register(registry.NodeType{Type: "2col"}), registry.ErrInvalidType)
	assert.ErrorIs(t, reg.Register(registry.NodeType{Type: "-"}), registry.ErrInvalidType)
	assert.ErrorIs(t, reg.Register(registry.NodeType{Type: "my_card"}), registry.ErrNameTaken)

	d := document.Document{{ID: "a", Type: "my-card", Children: []document.Node{{ID: "b", Type: "élan"}}}}
	res := Generate(d, reg)
	require.Len(t, res.Imports, 2)
	assert.Equal(t, "MyCard", res.Imports[0].Component)
	assert.Equal(t, "Élan", res.Imports[1].Component)
	require.NoError(t, Validate(context.Background(), res.Source))
}

func TestUnusableTypeNameFallsBackToDiv(t *testing.T) {
	d := document.Document{{ID: "a", Type: "2col", Children: []document.Node{{ID: "b", Type: "-"}}}}
	res := Generate(d, testCatalog())
	assert.Contains(t, res.Source, `<div data-type="2col">`)
	assert.Contains(t, res.Source, `<div data-type="-" style={{position: 'absolute', left: '0px', top: '0px'}} />`)
	require.NoError(t, Validate(context.Background(), res.Source))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Validate(ctx, Placeholder))
	assert.NoError(t, Validate(ctx, Generate(sample(), testCatalog()).Source))

	err := Validate(ctx, "export default function App() {\n  return (<div>;\n}\n")
	assert.ErrorIs(t, err, ErrSyntax)
}
