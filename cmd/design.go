package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/editor"
	"github.com/msalah0e/canopy/internal/store"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func designCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Inspect and manage the saved design",
	}

	cmd.AddCommand(
		designShowCmd(),
		designClearCmd(),
		designImportCmd(),
		designDumpCmd(),
	)
	return cmd
}

func designShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"ls", "tree"},
		Short:   "Show the saved design as a tree",
		Run: func(cmd *cobra.Command, args []string) {
			st, err := openStore()
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()

			design, ok, err := st.LoadDesign(context.Background())
			if err != nil {
				fail("%v", err)
			}
			ui.Banner("design")
			if !ok || design.Components.Len() == 0 {
				fmt.Println("  Nothing saved yet.")
				fmt.Println("  Add a section with `canopy node add hero`")
				return
			}

			r := catalogRegistry(context.Background())
			var rows [][]string
			design.Components.Walk(func(n document.Node, parent document.NodeID) bool {
				name := n.Type
				pos := "-"
				if parent != "" {
					name = "  └ " + n.Type
					p := n.Placed()
					pos = fmt.Sprintf("%g, %g", p.X, p.Y)
				}
				if _, known := r.Get(n.Type); !known {
					name += ui.Warn.Sprint(" ?")
				}
				rows = append(rows, []string{name, string(n.ID), pos, ui.Truncate(summary(n), 40)})
				return true
			})
			ui.Table([]string{"Node", "ID", "Position", "Attributes"}, rows)

			fmt.Printf("\n  %d sections · saved %s\n", design.Components.Len(), design.SavedAt().Local().Format("Jan 02 15:04:05"))
			for _, n := range design.Components {
				if unknown := r.UnknownKeys(n); len(unknown) > 0 {
					ui.Warn.Printf("  %s %s carries undeclared attributes: %s\n", ui.WarnIcon(), n.ID, strings.Join(unknown, ", "))
				}
			}
		},
	}
}

func summary(n document.Node) string {
	for _, key := range []string{"title", "text", "content", "brand", "label"} {
		if s := n.Attr(key); s != "" {
			return key + "=" + s
		}
	}
	return fmt.Sprintf("%d attributes", len(n.Attrs))
}

func designClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the saved design",
		Run: func(cmd *cobra.Command, args []string) {
			if !yes {
				fail("refusing to clear without --yes")
			}
			err := editDesign(context.Background(), func(ws *editor.Workspace) error {
				ws.Clear()
				return nil
			})
			if err != nil {
				fail("%v", err)
			}
			ui.Good.Printf("  %s Design cleared\n", ui.StatusIcon(true))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm")
	return cmd
}

func designImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the saved design with a JSON file",
		Long: "Replace the saved design with the contents of a JSON file, either a\n" +
			"saved design object or a bare array of nodes.",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fail("%v", err)
			}
			design, err := store.DecodeDesign(data)
			if err != nil {
				fail("%v", err)
			}
			err = editDesign(context.Background(), func(ws *editor.Workspace) error {
				return ws.Replace(design.Components, "imported from "+args[0])
			})
			if err != nil {
				fail("%v", err)
			}
			ui.Good.Printf("  %s Imported %d sections from %s\n", ui.StatusIcon(true), design.Components.Len(), args[0])
		},
	}
}

func designDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the saved design as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			st, err := openStore()
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()

			design, _, err := st.LoadDesign(context.Background())
			if err != nil {
				fail("%v", err)
			}
			data, _ := json.MarshalIndent(design, "", "  ")
			fmt.Println(string(data))
		},
	}
}
