package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/canopy/internal/config"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and initialize canopy configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Long:  "Print the configuration after the config file, .canopy.toml, .env and\nCANOPY_* environment overrides are applied.",
			Run: func(cmd *cobra.Command, args []string) {
				if err := toml.NewEncoder(os.Stdout).Encode(loadConfig()); err != nil {
					fail("%v", err)
				}
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(config.Path())
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default config file if none exists",
			Run: func(cmd *cobra.Command, args []string) {
				if err := config.EnsureExists(); err != nil {
					fail("%v", err)
				}
				ui.Good.Printf("  %s %s\n", ui.StatusIcon(true), config.Path())
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the effective configuration",
			Run: func(cmd *cobra.Command, args []string) {
				c := loadConfig()
				if err := c.Validate(); err != nil {
					fail("%v", err)
				}
				ui.KV("store", c.Store.Backend+" "+c.StorePath())
				ui.KV("catalog", c.PluginDir())
				ui.KV("server", c.Server.Origin)
				ui.KV("renderer", c.RendererOrigin())
				fmt.Printf("\n  %s configuration is valid\n", ui.StatusIcon(true))
			},
		},
	)
	return cmd
}
