package registry

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/msalah0e/canopy/internal/document"
)

// Kind says whether a node type holds children.
type Kind string

const (
	KindContainer Kind = "container"
	KindLeaf      Kind = "leaf"
)

// Emit modes for a field in generated code.
const (
	EmitProp  = "prop"  // param="value"
	EmitExpr  = "expr"  // param={json}
	EmitStyle = "style" // collected into style={{param: 'value'}}
	EmitClass = "class" // collected into className
)

// NodeType describes a creatable node type in the palette.
type NodeType struct {
	Type         string         `toml:"type" json:"type"`
	Name         string         `toml:"name" json:"name"`
	Category     string         `toml:"category" json:"category"`
	Icon         string         `toml:"icon" json:"icon,omitempty"`
	Kind         Kind           `toml:"kind" json:"kind"`
	Module       string         `toml:"module" json:"componentPath,omitempty"`
	Component    string         `toml:"component" json:"component,omitempty"`
	Tags         []string       `toml:"tags" json:"tags,omitempty"`
	Defaults     map[string]any `toml:"defaults" json:"defaultProps"`
	Fields       []Field        `toml:"fields" json:"fields,omitempty"`
	RegisteredAt string         `toml:"-" json:"registeredAt,omitempty"`
}

// Field is one known attribute of a type. The properties form, attribute
// validation and the code generator all read the same table.
type Field struct {
	Key     string   `toml:"key" json:"key"`
	Label   string   `toml:"label" json:"label"`
	Input   string   `toml:"input" json:"input,omitempty"`
	Options []string `toml:"options" json:"options,omitempty"`
	Param   string   `toml:"param" json:"param,omitempty"`
	Emit    string   `toml:"emit" json:"emit,omitempty"`
}

// Projected reports whether the field shows up in generated code.
func (f Field) Projected() bool {
	switch f.Emit {
	case EmitClass:
		return true
	default:
		return f.Param != ""
	}
}

// Mode returns the emit mode, defaulting to a plain string prop.
func (f Field) Mode() string {
	if f.Emit == "" {
		return EmitProp
	}
	return f.Emit
}

// IsContainer reports whether nodes of this type hold children.
func (t NodeType) IsContainer() bool {
	return t.Kind == KindContainer
}

// ComponentName returns the JSX component name for the type.
func (t NodeType) ComponentName() string {
	if t.Component != "" {
		return t.Component
	}
	return ComponentName(t.Type)
}

// ComponentName capitalizes a type name: "hero" -> "Hero", "my-card" -> "MyCard".
func ComponentName(typ string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(typ, func(r rune) bool { return r == '-' || r == '_' || r == ' ' }) {
		first, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(part[size:])
	}
	return b.String()
}

// ValidComponentName reports whether name can stand as a JSX component tag
// and an import binding: an upper-case letter followed by letters, digits,
// '_' or '$'.
func ValidComponentName(name string) bool {
	for i, r := range name {
		switch {
		case i == 0:
			if !unicode.IsUpper(r) {
				return false
			}
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '$':
		default:
			return false
		}
	}
	return name != ""
}

// Field returns the known field with the given key.
func (t NodeType) Field(key string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultAttrs returns a fresh copy of the type's default attributes.
func (t NodeType) DefaultAttrs() document.Attributes {
	attrs := make(document.Attributes, len(t.Defaults))
	for k, v := range t.Defaults {
		attrs[k] = document.NormalizeValue(v)
	}
	return attrs
}
