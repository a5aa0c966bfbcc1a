package codegen

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ErrSyntax is returned when generated source does not parse as JSX.
var ErrSyntax = errors.New("generated source does not parse")

// Validate parses source with the JavaScript grammar (JSX included) and
// reports the first error or missing node.
func Validate(ctx context.Context, source string) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(source))
	if err != nil {
		return fmt.Errorf("parsing source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	if n := firstError(root); n != nil {
		p := n.StartPoint()
		kind := "unexpected " + n.Type()
		if n.IsMissing() {
			kind = "missing " + n.Type()
		}
		return fmt.Errorf("line %d col %d: %s: %w", p.Row+1, p.Column+1, kind, ErrSyntax)
	}
	return ErrSyntax
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if e := firstError(c); e != nil {
			return e
		}
	}
	return nil
}
