package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

func newRulesCommand(dir *string) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword tagging rules",
	}
	rulesCmd.AddCommand(newRulesAddCommand(dir), newRulesListCommand(dir))
	return rulesCmd
}

func newRulesAddCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyword> <tag>",
		Short: "Tag descriptions containing keyword",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if model.NormalizeKeyword(args[0]) == "" {
				return errors.New("keyword is blank")
			}

			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			rule := model.Rule{UserID: p.cfg.User.ID, Keyword: args[0], Tag: args[1]}
			if err := p.store.CreateRule(p.withLogger(cmd.Context()), &rule); err != nil {
				return fmt.Errorf("adding rule: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", rule.Keyword, rule.Tag)
			return nil
		},
	}
}

func newRulesListCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			rules, err := p.store.ListRules(p.withLogger(cmd.Context()), p.cfg.User.ID)
			if err != nil {
				return fmt.Errorf("listing rules: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEYWORD\tTAG")
			for _, r := range rules {
				fmt.Fprintf(tw, "%s\t%s\n", r.Keyword, r.Tag)
			}
			return tw.Flush()
		},
	}
}
