package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/accounts"
	"github.com/meudinheiro/meudinheiro/internal/model"
)

func newAccountsCommand(dir *string) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	accountsCmd.AddCommand(
		newAccountsAddCommand(dir),
		newAccountsListCommand(dir),
		newAccountsLoadCommand(dir),
	)
	return accountsCmd
}

func newAccountsAddCommand(dir *string) *cobra.Command {
	var (
		accountType string
		institution string
		opening     string
		overdraft   string
		credit      string
		safety      string
		closingDay  int
		dueDay      int
		hidden      bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct := model.Account{
				Name:                args[0],
				Type:                model.AccountType(accountType),
				Institution:         institution,
				StatementClosingDay: closingDay,
				StatementDueDay:     dueDay,
				HideFromNetWorth:    hidden,
			}
			var err error
			if acct.OpeningBalance, err = decimalFlag("opening", opening); err != nil {
				return err
			}
			if acct.OverdraftLimit, err = nullDecimalFlag("overdraft", overdraft); err != nil {
				return err
			}
			if acct.CreditLimit, err = nullDecimalFlag("credit-limit", credit); err != nil {
				return err
			}
			if acct.SafetyBalance, err = nullDecimalFlag("safety", safety); err != nil {
				return err
			}

			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			acct.UserID = p.cfg.User.ID
			if err := accounts.NewService(p.store).Add(p.withLogger(cmd.Context()), &acct); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %d (%s)\n", acct.ID, acct.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "type", string(model.AccountTypeChecking), "checking, credit_card, savings or cash")
	cmd.Flags().StringVar(&institution, "institution", "", "bank or issuer")
	cmd.Flags().StringVar(&opening, "opening", "0", "opening balance")
	cmd.Flags().StringVar(&overdraft, "overdraft", "", "overdraft limit (checking)")
	cmd.Flags().StringVar(&credit, "credit-limit", "", "credit limit (credit_card)")
	cmd.Flags().StringVar(&safety, "safety", "", "alert when the balance drops below this")
	cmd.Flags().IntVar(&closingDay, "closing-day", 0, "statement closing day (credit_card)")
	cmd.Flags().IntVar(&dueDay, "due-day", 0, "statement due day (credit_card)")
	cmd.Flags().BoolVar(&hidden, "hide", false, "exclude from net worth")

	return cmd
}

func decimalFlag(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid amount %q", name, s)
	}
	return d, nil
}

func nullDecimalFlag(name, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimalFlag(name, s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func newAccountsListCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			accts, err := accounts.NewService(p.store).List(p.withLogger(cmd.Context()), p.cfg.User.ID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tINSTITUTION\tOPENING")
			for _, a := range accts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, a.Institution, a.OpeningBalance.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func newAccountsLoadCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <accounts.csv>",
		Short: "Create the accounts listed in a CSV file",
		Long:  "Create the accounts listed in a CSV file. Accounts whose account_id already exists are left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := accounts.NewService(p.store).LoadFile(p.withLogger(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d already present\n", res.Created, res.Existing)
			return nil
		},
	}
}
