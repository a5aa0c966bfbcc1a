package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/canopy/internal/registry"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"types"},
		Short:   "Browse and manage node types",
	}

	cmd.AddCommand(
		catalogListCmd(),
		catalogInfoCmd(),
		catalogRegisterCmd(),
		catalogRemoveCmd(),
		catalogExportCmd(),
	)
	return cmd
}

func catalogListCmd() *cobra.Command {
	var category string
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List node types",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			ws, st, err := openWorkspace(ctx, false)
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()
			r := ws.Registry()

			var types []registry.NodeType
			if query != "" {
				types = r.Search(query)
			} else {
				types = r.ListCreatable(category)
			}
			if len(types) == 0 {
				fmt.Println("  No matching node types")
				return
			}

			ui.Banner("catalog")
			var rows [][]string
			for _, t := range types {
				name := t.Type
				if t.RegisteredAt != "" {
					name += ui.Subtle.Sprint(" *")
				}
				rows = append(rows, []string{t.Icon + " " + name, t.Name, string(t.Kind), t.Category, t.Module})
			}
			ui.Table([]string{"Type", "Name", "Kind", "Category", "Module"}, rows)
			fmt.Printf("\n  %d types · categories: %s\n", len(types), strings.Join(r.Categories(), ", "))
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list one category")
	cmd.Flags().StringVarP(&query, "search", "s", "", "Search by type, name, category or tag")
	return cmd
}

func catalogInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "info <type>",
		Short:             "Show a node type's fields and defaults",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: typeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			t, ok := catalogRegistry(context.Background()).Get(args[0])
			if !ok {
				fail("unknown node type %q", args[0])
			}

			ui.Banner(t.Name)
			ui.KV("type", t.Type)
			ui.KV("kind", string(t.Kind))
			ui.KV("category", t.Category)
			ui.KV("component", t.ComponentName())
			if t.Module != "" {
				ui.KV("import", "./"+t.Module)
			}
			if len(t.Tags) > 0 {
				ui.KV("tags", strings.Join(t.Tags, ", "))
			}
			fmt.Println()

			defaults := t.DefaultAttrs()
			var rows [][]string
			for _, f := range t.Fields {
				out := "-"
				if f.Projected() {
					out = f.Mode()
					if f.Param != "" {
						out += " " + f.Param
					}
				}
				def := ""
				if v, ok := defaults[f.Key]; ok {
					def = ui.Truncate(fmt.Sprint(v), 30)
				}
				rows = append(rows, []string{f.Key, f.Label, inputOf(f), out, def})
			}
			ui.Table([]string{"Key", "Label", "Input", "Emits", "Default"}, rows)
		},
	}
}

func inputOf(f registry.Field) string {
	in := f.Input
	if in == "" {
		in = "text"
	}
	if len(f.Options) > 0 {
		in += " (" + strings.Join(f.Options, "|") + ")"
	}
	return in
}

func catalogRegisterCmd() *cobra.Command {
	var file string
	var kind string
	var module string
	var category string

	cmd := &cobra.Command{
		Use:   "register [type]",
		Short: "Register custom node types",
		Long: "Register a node type by name, or every [[types]] entry of a TOML file\n" +
			"in the catalog format. Registered types are saved with the design.",
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var types []registry.NodeType
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					fail("%v", err)
				}
				var tf struct {
					Types []registry.NodeType `toml:"types"`
				}
				if err := toml.Unmarshal(data, &tf); err != nil {
					fail("parsing %s: %v", file, err)
				}
				types = tf.Types
			case len(args) == 1:
				types = []registry.NodeType{{
					Type:     args[0],
					Kind:     registry.Kind(kind),
					Module:   module,
					Category: category,
				}}
			default:
				fail("give a type name or --file")
			}

			ctx := context.Background()
			ws, st, err := openWorkspace(ctx, false)
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()

			for _, t := range types {
				if err := ws.Register(ctx, t); err != nil {
					fmt.Printf("  %s %s: %v\n", ui.StatusIcon(false), t.Type, err)
					continue
				}
				fmt.Printf("  %s registered %s\n", ui.StatusIcon(true), ui.Brand.Sprint(t.Type))
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "TOML file with [[types]] entries")
	cmd.Flags().StringVarP(&kind, "kind", "k", "leaf", "container or leaf")
	cmd.Flags().StringVarP(&module, "module", "m", "", "Import path of the component")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Palette category")
	return cmd
}

func catalogRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <type>",
		Aliases:           []string{"rm"},
		Short:             "Remove a node type",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: typeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			ws, st, err := openWorkspace(ctx, false)
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()

			removed, err := ws.Unregister(ctx, args[0])
			if err != nil {
				fail("%v", err)
			}
			if !removed {
				fmt.Printf("  %s is not registered\n", args[0])
				return
			}
			ui.Good.Printf("  %s removed %s\n", ui.StatusIcon(true), args[0])
		},
	}
}

func catalogExportCmd() *cobra.Command {
	var custom bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the catalog as [type, config] JSON pairs",
		Run: func(cmd *cobra.Command, args []string) {
			r := catalogRegistry(context.Background())
			entries := r.Entries()
			if custom {
				entries = r.Custom()
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				fail("%v", err)
			}
			fmt.Println(string(data))
		},
	}

	cmd.Flags().BoolVar(&custom, "custom", false, "Only registered types")
	return cmd
}
