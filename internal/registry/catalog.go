package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed catalog/*.toml
var catalogFS embed.FS

const baseFile = "base.toml"

type typeFile struct {
	Types []NodeType `toml:"types"`
}

type kindBase struct {
	Defaults map[string]any `toml:"defaults"`
	Fields   []Field        `toml:"fields"`
}

type baseFileData struct {
	Container kindBase `toml:"container"`
	Leaf      kindBase `toml:"leaf"`
}

// Builtin loads the catalog compiled into the binary.
func Builtin(opts ...Option) (*Registry, error) {
	return LoadFromFS(catalogFS, "catalog", opts...)
}

// LoadFromFS loads every *.toml type file in dir. base.toml, when present,
// supplies per-kind defaults and fields underneath each type's own.
func LoadFromFS(fsys fs.FS, dir string, opts ...Option) (*Registry, error) {
	types, err := readTypes(fsys, dir)
	if err != nil {
		return nil, err
	}
	return New(types, opts...), nil
}

// LoadAll merges the built-in catalog with user type files from pluginDir.
// A plugin type with the same name as a built-in replaces it.
func LoadAll(pluginDir string, opts ...Option) (*Registry, error) {
	types, err := readTypes(catalogFS, "catalog")
	if err != nil {
		return nil, err
	}
	if pluginDir == "" {
		return New(types, opts...), nil
	}

	entries, err := os.ReadDir(pluginDir)
	if err != nil {
		// No plugins directory is fine
		return New(types, opts...), nil
	}
	base, _ := readBase(catalogFS, "catalog")
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(pluginDir, entry.Name()))
		if err != nil {
			continue
		}
		var tf typeFile
		if err := toml.Unmarshal(data, &tf); err != nil {
			continue
		}
		for _, t := range tf.Types {
			types = append(types, base.apply(t))
		}
	}
	return New(types, opts...), nil
}

func readTypes(fsys fs.FS, dir string) ([]NodeType, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	base, err := readBase(fsys, dir)
	if err != nil {
		return nil, err
	}

	var all []NodeType
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == baseFile || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var tf typeFile
		if err := toml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		for _, t := range tf.Types {
			all = append(all, base.apply(t))
		}
	}
	return orderContainersFirst(all), nil
}

func readBase(fsys fs.FS, dir string) (baseFileData, error) {
	var b baseFileData
	data, err := fs.ReadFile(fsys, path.Join(dir, baseFile))
	if err != nil {
		return b, nil
	}
	if err := toml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parsing %s: %w", baseFile, err)
	}
	return b, nil
}

func (b baseFileData) apply(t NodeType) NodeType {
	if t.Kind == "" {
		t.Kind = KindLeaf
	}
	kb := b.Leaf
	if t.Kind == KindContainer {
		kb = b.Container
	}

	defaults := make(map[string]any, len(kb.Defaults)+len(t.Defaults))
	for k, v := range kb.Defaults {
		defaults[k] = v
	}
	for k, v := range t.Defaults {
		defaults[k] = v
	}
	t.Defaults = defaults

	fields := append([]Field(nil), t.Fields...)
	for _, f := range kb.Fields {
		if _, ok := t.Field(f.Key); !ok {
			fields = append(fields, f)
		}
	}
	t.Fields = fields
	return t
}

// orderContainersFirst keeps file order within each kind. Embedded files are
// read alphabetically, which would otherwise interleave kinds.
func orderContainersFirst(types []NodeType) []NodeType {
	out := make([]NodeType, 0, len(types))
	for _, t := range types {
		if t.Kind == KindContainer {
			out = append(out, t)
		}
	}
	for _, t := range types {
		if t.Kind != KindContainer {
			out = append(out, t)
		}
	}
	return out
}
