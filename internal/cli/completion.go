package cli

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graftwood/pkg/provider/builtin"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for graftwood.

  bash        source <(graftwood completion bash)
  zsh         graftwood completion zsh > "${fpath[1]}/_graftwood"
  fish        graftwood completion fish > ~/.config/fish/completions/graftwood.fish
  powershell  graftwood completion powershell | Out-String | Invoke-Expression

Source arguments of build, expand and explore complete to files with a
supported extension.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// sourceExtensions lists the file extensions of every builtin format,
// without the leading dot.
func sourceExtensions() []string {
	var exts []string
	for _, f := range builtin.All {
		for _, ext := range f.Extensions {
			ext = strings.TrimPrefix(filepath.Ext(ext), ".")
			if ext != "" && !slices.Contains(exts, ext) {
				exts = append(exts, ext)
			}
		}
	}
	return exts
}

// completeSource completes the first positional argument with source files.
func completeSource(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sourceExtensions(), cobra.ShellCompDirectiveFilterFileExt
}
