package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/ledger"
)

func newBalanceCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's balance, available credit and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("account", args[0])
			if err != nil {
				return err
			}

			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := p.withLogger(cmd.Context())
			acct, err := p.store.GetAccount(ctx, id)
			if err != nil {
				return fmt.Errorf("account %d: %w", id, err)
			}
			sum, err := ledger.New(p.store).Summarize(ctx, acct)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}

func printSummary(out io.Writer, sum ledger.Summary) {
	fmt.Fprintf(out, "%s (%s)\n", sum.Account.Name, sum.Account.Type)
	fmt.Fprintf(out, "  balance:          %s\n", sum.Balance.StringFixed(2))
	if sum.AvailableCredit.Valid {
		fmt.Fprintf(out, "  available credit: %s\n", sum.AvailableCredit.Decimal.StringFixed(2))
	}
	for _, a := range sum.Alerts {
		fmt.Fprintf(out, "  ! %s\n", a)
	}
}

func newNetWorthCommand(dir *string) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "networth",
		Short: "Sum the balances of every visible account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			if userID == 0 {
				userID = p.cfg.User.ID
			}
			ctx := p.withLogger(cmd.Context())
			accts, err := p.store.ListAccounts(ctx, userID)
			if err != nil {
				return fmt.Errorf("listing accounts: %w", err)
			}
			total, err := ledger.New(p.store).NetWorth(ctx, accts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "net worth: %s\n", total.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user (defaults to user.id from the config)")
	return cmd
}
