package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/msalah0e/canopy/internal/activity"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func actlogCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"activity", "history"},
		Short:   "Show the design activity journal",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity log")

			entries, err := activity.Read(count)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity recorded yet.")
				fmt.Println("  Edits made through `canopy serve` and `canopy node` are journaled here")
				return
			}

			printEntries(entries, 30)
			fmt.Printf("\n  Showing %d most recent entries\n", len(entries))
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of entries to show (0 for all)")
	cmd.AddCommand(
		actlogSearchCmd(),
		actlogClearCmd(),
		actlogExportCmd(),
		actlogStatsCmd(),
	)
	return cmd
}

func printEntries(entries []activity.Entry, width int) {
	var rows [][]string
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Format("Jan 02 15:04:05"),
			e.Action,
			orDash(e.Type),
			orDash(ui.Truncate(e.Node, 12)),
			ui.Truncate(e.Details, width),
		})
	}
	ui.Table([]string{"Time", "Action", "Type", "Node", "Details"}, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func actlogSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search activity log entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			results, err := activity.Search(args[0], 50)
			if err != nil || len(results) == 0 {
				fmt.Printf("  No entries matching %q\n", args[0])
				return
			}

			ui.Banner("search results")
			printEntries(results, 40)
			fmt.Printf("\n  %d results\n", len(results))
		},
	}
}

func actlogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the activity log",
		Run: func(cmd *cobra.Command, args []string) {
			if err := activity.Clear(); err != nil {
				fail("Failed to clear: %v", err)
			}
			ui.Good.Printf("  %s Activity log cleared\n", ui.StatusIcon(true))
		},
	}
}

func actlogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the activity log as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := activity.Read(0)
			if err != nil {
				fail("%v", err)
			}
			data, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func actlogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count journaled actions by kind and node type",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity stats")

			entries, err := activity.Read(0)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity data")
				return
			}

			actions := make(map[string]int)
			types := make(map[string]int)
			for _, e := range entries {
				actions[e.Action]++
				if e.Type != "" {
					types[e.Type]++
				}
			}

			fmt.Printf("  Total entries: %d\n\n", len(entries))
			fmt.Println("  By action:")
			printCounts(actions)
			if len(types) > 0 {
				fmt.Println("\n  By node type:")
				printCounts(types)
			}
		},
	}
}

func printCounts(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Printf("    %-20s %d\n", k, m[k])
	}
}
