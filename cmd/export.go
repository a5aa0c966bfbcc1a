package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/msalah0e/canopy/internal/activity"
	"github.com/msalah0e/canopy/internal/codegen"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var output string
	var check bool
	var manifest bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate React source for the saved design",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			ws, st, err := openWorkspace(ctx, true)
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()

			res := ws.Generate()
			if check {
				if err := codegen.Validate(ctx, res.Source); err != nil {
					fail("generated code does not parse: %v", err)
				}
			}

			if manifest {
				var rows [][]string
				for _, imp := range res.Imports {
					rows = append(rows, []string{imp.Type, imp.Component, "./" + imp.Path})
				}
				ui.Table([]string{"Type", "Component", "Path"}, rows)
				return
			}

			if output == "" {
				fmt.Print(res.Source)
				return
			}
			if output == "." {
				output = codegen.FileName
			}
			if err := os.WriteFile(output, []byte(res.Source), 0o644); err != nil {
				fail("writing %s: %v", output, err)
			}
			_ = activity.Logf(activity.ActionExport, "", "", "%s, %d imports", output, len(res.Imports))
			ui.Good.Printf("  %s Wrote %s (%d imports)\n", ui.StatusIcon(true), output, len(res.Imports))
			if check {
				fmt.Printf("  %s parses as JSX\n", ui.StatusIcon(true))
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout (\".\" for "+codegen.FileName+")")
	cmd.Flags().BoolVar(&check, "check", false, "Parse the generated code and fail on syntax errors")
	cmd.Flags().BoolVar(&manifest, "imports", false, "Print the import manifest instead of the code")
	return cmd
}
