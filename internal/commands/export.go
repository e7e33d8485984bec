package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/journal"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

func newExportCommand(dir *string) *cobra.Command {
	var accountID int64
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an account's transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := p.withLogger(cmd.Context())
			if _, err := p.store.GetAccount(ctx, accountID); err != nil {
				return fmt.Errorf("account %d: %w", accountID, err)
			}
			txns, err := p.store.ListTransactions(ctx, store.Filter{AccountID: accountID})
			if err != nil {
				return fmt.Errorf("listing transactions: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := journal.WriteTransactions(w, txns); err != nil {
				return err
			}
			p.log.Info().Int64("account_id", accountID).Int("transactions", len(txns)).Msg("exported")
			return nil
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account to export (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func newRestoreCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Load transactions written by export",
		Long: "Load transactions written by export, keeping their IDs and tags. Rows\n" +
			"already present are skipped, so a restore can be repeated.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := p.importer().Restore(p.withLogger(cmd.Context()), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d restored, %d already present\n", res.Imported, res.Skipped)
			return nil
		},
	}
}
