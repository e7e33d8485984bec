package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:     "meudinheiro",
		Short:   "Personal finance: statement import, tagging and balances",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&dir, "project", "C", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(&dir),
		newBalanceCommand(&dir),
		newNetWorthCommand(&dir),
		newAccountsCommand(&dir),
		newRulesCommand(&dir),
		newExportCommand(&dir),
		newRestoreCommand(&dir),
		newServeCommand(&dir),
	)

	return rootCmd
}
