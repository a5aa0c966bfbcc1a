package cmd

import (
	"context"
	"strings"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
func completionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate completion scripts for your shell.

  # Bash (add to ~/.bashrc)
  eval "$(canopy completion bash)"

  # Zsh (add to ~/.zshrc)
  eval "$(canopy completion zsh)"

  # Fish
  canopy completion fish | source

  # PowerShell
  canopy completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				_ = rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				_ = rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				_ = rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				_ = rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}

	return cmd
}

// typeCompletionFunc completes node type names.
func typeCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, t := range catalogRegistry(context.Background()).All() {
		completions = append(completions, t.Type+"\t"+t.Name+" ("+t.Category+")")
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// containerCompletionFunc completes the ids of saved container nodes.
func containerCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	rules := catalogRegistry(context.Background()).Rules()
	return nodeCompletions(func(n document.Node, parent document.NodeID) bool {
		return parent == "" && rules.IsContainer(n.Type)
	}), cobra.ShellCompDirectiveNoFileComp
}

// nodeCompletionFunc completes the ids of saved nodes.
func nodeCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nodeCompletions(func(document.Node, document.NodeID) bool { return true }), cobra.ShellCompDirectiveNoFileComp
}

func nodeCompletions(keep func(n document.Node, parent document.NodeID) bool) []string {
	st, err := openStore()
	if err != nil {
		return nil
	}
	defer st.Close()
	design, ok, err := st.LoadDesign(context.Background())
	if err != nil || !ok {
		return nil
	}

	var completions []string
	design.Components.Walk(func(n document.Node, parent document.NodeID) bool {
		if keep(n, parent) {
			desc := n.Type
			if title := n.Attr("title"); title != "" {
				desc += " " + strings.TrimSpace(title)
			}
			completions = append(completions, string(n.ID)+"\t"+desc)
		}
		return true
	})
	return completions
}
