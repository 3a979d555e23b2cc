package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for bf2marc.

To load completions:

Bash:
  $ source <(bf2marc completion bash)
  # Or add to ~/.bashrc:
  $ echo 'source <(bf2marc completion bash)' >> ~/.bashrc

Zsh:
  $ source <(bf2marc completion zsh)
  # Or add to ~/.zshrc:
  $ echo 'source <(bf2marc completion zsh)' >> ~/.zshrc

Fish:
  $ bf2marc completion fish | source
  # Or add to config:
  $ bf2marc completion fish > ~/.config/fish/completions/bf2marc.fish
`,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				rootCmd.GenFishCompletion(os.Stdout, true)
			}
		},
	})
}
