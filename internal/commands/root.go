package commands

import (
	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/buildinfo"
	"github.com/tally-dev/tally/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Turn bank exports into a deduplicated transaction graph",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.FileName, "path to tally.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level from the config")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand(opts))
	rootCmd.AddCommand(newNodesCommand(opts))

	return rootCmd
}
