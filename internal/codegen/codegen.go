// Package codegen projects a document into React source text.
//
// Generate is a pure function of the document and the type catalog: the same
// inputs always produce byte-identical output. Only attributes listed in a
// type's field table are projected; everything else stays in the document.
package codegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/registry"
)

// FileName is the name generated code is downloaded as.
const FileName = "App.jsx"

// Placeholder is the program generated for an empty document.
const Placeholder = `import React from 'react';

export default function App() {
  return (
    <div className="min-h-screen bg-gray-50">
      <div className="container mx-auto px-4 py-8">
        <h1 className="text-3xl font-bold text-center text-gray-800">
          Welcome to Your Website
        </h1>
        <p className="text-center text-gray-600 mt-4">
          Start designing by adding components in the designer
        </p>
      </div>
    </div>
  );
}
`

// Catalog resolves node types to their descriptors.
type Catalog interface {
	Get(typ string) (registry.NodeType, bool)
}

// Import is one entry of the import manifest.
type Import struct {
	Type      string `json:"type"`
	Component string `json:"component"`
	Path      string `json:"path"`
}

// Statement renders the import line.
func (i Import) Statement() string {
	return fmt.Sprintf("import %s from './%s';", i.Component, i.Path)
}

// Result is generated source plus its import manifest.
type Result struct {
	Source  string   `json:"source"`
	Imports []Import `json:"imports"`
}

// Generate renders d as a React module.
func Generate(d document.Document, cat Catalog) Result {
	if d.Len() == 0 {
		return Result{Source: Placeholder, Imports: []Import{}}
	}

	imports := Imports(d, cat)

	var b strings.Builder
	b.WriteString("import React from 'react';\n")
	for _, imp := range imports {
		b.WriteString(imp.Statement())
		b.WriteByte('\n')
	}
	b.WriteString("\nexport default function App() {\n  return (\n    <div className=\"min-h-screen\">\n")
	for _, n := range d {
		writeNode(&b, n, cat)
	}
	b.WriteString("    </div>\n  );\n}\n")

	return Result{Source: b.String(), Imports: imports}
}

// Imports lists one import per distinct node type in d, in first-seen order.
// Types without a module path are rendered but not imported.
func Imports(d document.Document, cat Catalog) []Import {
	imports := []Import{}
	for _, typ := range d.Types() {
		t, ok := cat.Get(typ)
		if !ok || t.Module == "" {
			continue
		}
		imports = append(imports, Import{Type: typ, Component: t.ComponentName(), Path: t.Module})
	}
	return imports
}

func writeNode(b *strings.Builder, n document.Node, cat Catalog) {
	const indent = "      "
	name, attrs := element(n, cat, nil)
	if len(n.Children) == 0 {
		fmt.Fprintf(b, "%s<%s%s />\n", indent, name, attrs)
		return
	}
	fmt.Fprintf(b, "%s<%s%s>\n", indent, name, attrs)
	for _, c := range n.Children {
		p := c.Placed()
		pos := []string{
			"position: 'absolute'",
			"left: '" + px(p.X) + "'",
			"top: '" + px(p.Y) + "'",
		}
		cname, cattrs := element(c, cat, pos)
		fmt.Fprintf(b, "%s  <%s%s />\n", indent, cname, cattrs)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, name)
}

// element returns the component name and the rendered attribute list, with a
// leading space when non-empty. style entries are prepended to the node's own.
func element(n document.Node, cat Catalog, style []string) (string, string) {
	t, ok := cat.Get(n.Type)
	if !ok {
		t = registry.NodeType{Type: n.Type}
	}

	params := map[string]bool{}
	for _, f := range t.Fields {
		if m := f.Mode(); f.Projected() && (m == registry.EmitProp || m == registry.EmitExpr) {
			params[f.Param] = true
		}
	}

	var props, classes []string
	for _, f := range t.Fields {
		if !f.Projected() {
			continue
		}
		v, ok := n.Attrs[f.Key]
		if !ok || !truthy(v) {
			continue
		}
		switch f.Mode() {
		case registry.EmitExpr:
			props = append(props, f.Param+"={"+jsonText(v)+"}")
		case registry.EmitStyle:
			if params[f.Param] {
				continue
			}
			if s, ok := scalar(v); ok {
				style = append(style, f.Param+": '"+jsString(s)+"'")
			}
		case registry.EmitClass:
			if s, ok := scalar(v); ok {
				classes = append(classes, s)
			}
		default:
			props = append(props, prop(f.Param, v))
		}
	}
	if len(style) > 0 {
		props = append(props, "style={{"+strings.Join(style, ", ")+"}}")
	}
	if len(classes) > 0 {
		props = append(props, prop("className", strings.Join(classes, " ")))
	}

	name := t.ComponentName()
	if !registry.ValidComponentName(name) {
		// Types that cannot be a tag only arrive in loaded files.
		name = "div"
		props = append([]string{prop("data-type", n.Type)}, props...)
	}
	if len(props) == 0 {
		return name, ""
	}
	return name, " " + strings.Join(props, " ")
}

// prop renders a plain attribute. Strings that JSX cannot hold in a quoted
// attribute fall back to an expression.
func prop(name string, v any) string {
	s, isString := v.(string)
	if !isString {
		return name + "={" + jsonText(v) + "}"
	}
	if strings.ContainsAny(s, "\"\\\n\r") {
		return name + "={" + jsonText(s) + "}"
	}
	return name + "=\"" + s + "\""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}

func scalar(v any) (string, bool) {
	switch t := document.NormalizeValue(v).(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// jsonText encodes v with sorted map keys and without HTML escaping.
func jsonText(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(document.NormalizeValue(v)); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func jsString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
