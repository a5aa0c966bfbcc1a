package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msalah0e/canopy/internal/preview"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var serverURL string
	var showCode bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live preview from the terminal",
		Long: "Connect to a running authoring server as a preview renderer and print\n" +
			"each design update as it arrives.",
		Run: func(cmd *cobra.Command, args []string) {
			c := loadConfig()
			if serverURL == "" {
				serverURL = c.Server.Origin
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.Banner("live preview")
			fmt.Printf("  Waiting for design data from %s\n\n", serverURL)

			client := &preview.Client{
				Server: serverURL,
				Origin: c.RendererOrigin(),
				OnUpdate: func(v preview.View) {
					printView(v, showCode)
				},
				OnError: func(err error) {
					ui.Warn.Printf("  %s %v\n", ui.WarnIcon(), err)
				},
			}
			if err := client.Run(ctx); err != nil {
				fail("%v", err)
			}
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", "", "Authoring server URL (default from config)")
	cmd.Flags().BoolVar(&showCode, "code", false, "Print the generated code with each update")
	return cmd
}

func printView(v preview.View, showCode bool) {
	switch v.State {
	case preview.ViewError:
		ui.Bad.Printf("  Preview error: %v\n", v.Err)
		return
	case preview.ViewEmpty:
		fmt.Printf("  %s design is empty\n", ui.Subtle.Sprint(v.Snapshot.Time().Format("15:04:05")))
		return
	}

	fmt.Printf("  %s %d components\n", ui.Subtle.Sprint(v.Snapshot.Time().Format("15:04:05")), v.Snapshot.Components.Len())
	for _, n := range v.Snapshot.Components {
		fmt.Printf("    %s %s\n", ui.Info.Sprint(n.Type), ui.Subtle.Sprint(n.ID))
		for _, ch := range n.Children {
			p := ch.Placed()
			fmt.Printf("      └ %s at (%g, %g)\n", ch.Type, p.X, p.Y)
		}
	}
	if showCode {
		fmt.Println()
		fmt.Println(v.Snapshot.GeneratedCode)
	}
	fmt.Println()
}
