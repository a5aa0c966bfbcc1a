package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/editor"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Edit nodes of the saved design",
	}

	cmd.AddCommand(
		nodeAddCmd(),
		nodeSetCmd(),
		nodeRemoveCmd(),
		nodeMoveCmd(),
	)
	return cmd
}

func nodeAddCmd() *cobra.Command {
	var parent string
	var x, y float64

	cmd := &cobra.Command{
		Use:               "add <type>",
		Short:             "Add a section, or a component inside one with --parent",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: typeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			var added document.Node
			err := editDesign(context.Background(), func(ws *editor.Workspace) error {
				var err error
				if parent == "" {
					added, err = ws.AddNode(args[0])
				} else {
					added, err = ws.AddChild(document.NodeID(parent), args[0], document.Position{X: x, Y: y})
				}
				return err
			})
			if err != nil {
				fail("%v", err)
			}
			ui.Good.Printf("  %s added %s %s\n", ui.StatusIcon(true), added.Type, ui.Subtle.Sprint(added.ID))
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "Container to add the component to")
	cmd.Flags().Float64Var(&x, "x", 0, "Horizontal offset inside the parent")
	cmd.Flags().Float64Var(&y, "y", 0, "Vertical offset inside the parent")
	_ = cmd.RegisterFlagCompletionFunc("parent", containerCompletionFunc)
	return cmd
}

func nodeSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <id> key=value...",
		Short:             "Set node attributes",
		Long:              "Set node attributes. Values that parse as JSON keep their type; anything\nelse is stored as a string.",
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			patch, err := parseAssignments(args[1:])
			if err != nil {
				fail("%v", err)
			}
			err = editDesign(context.Background(), func(ws *editor.Workspace) error {
				_, err := ws.EditNode(document.NodeID(args[0]), patch)
				return err
			})
			if err != nil {
				fail("%v", err)
			}
			ui.Good.Printf("  %s updated %s\n", ui.StatusIcon(true), args[0])
		},
	}
}

// parseAssignments turns key=value arguments into an attribute patch.
func parseAssignments(args []string) (document.Attributes, error) {
	patch := make(document.Attributes, len(args))
	for _, a := range args {
		key, raw, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		patch[key] = document.NormalizeValue(v)
	}
	return patch, nil
}

func nodeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "rm <id>",
		Aliases:           []string{"remove", "delete"},
		Short:             "Remove a node and its children",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			var removed bool
			err := editDesign(context.Background(), func(ws *editor.Workspace) error {
				removed = ws.Delete(document.NodeID(args[0]))
				return nil
			})
			if err != nil {
				fail("%v", err)
			}
			if !removed {
				fmt.Printf("  %s is not in the design\n", args[0])
				return
			}
			ui.Good.Printf("  %s removed %s\n", ui.StatusIcon(true), args[0])
		},
	}
}

func nodeMoveCmd() *cobra.Command {
	var to string
	var x, y float64

	cmd := &cobra.Command{
		Use:               "move <id>",
		Short:             "Reposition a component, optionally into another container",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			err := editDesign(context.Background(), func(ws *editor.Workspace) error {
				return ws.Move(document.NodeID(args[0]), document.NodeID(to), document.Position{X: x, Y: y})
			})
			if err != nil {
				fail("%v", err)
			}
			ui.Good.Printf("  %s moved %s to (%g, %g)\n", ui.StatusIcon(true), args[0], x, y)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Destination container (default: current parent)")
	cmd.Flags().Float64Var(&x, "x", 0, "Horizontal offset")
	cmd.Flags().Float64Var(&y, "y", 0, "Vertical offset")
	_ = cmd.RegisterFlagCompletionFunc("to", containerCompletionFunc)
	return cmd
}
