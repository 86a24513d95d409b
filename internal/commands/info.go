package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/expense-tracker/internal/categorize"
	"github.com/cleared-dev/expense-tracker/internal/importlog"
)

func newAccountsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List account identifiers that have a parser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			for _, account := range reg.Accounts() {
				if err := printf(cmd.OutOrStdout(), "%s\n", account); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRulesCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List categorization rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			chain, err := categorize.Load(cfg.Rules.File, cfg.Rules.UseDefaults)
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, r := range chain.Rules() {
				fmt.Fprintf(tw, "%d\t%s\n", i+1, r)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			entries, err := importlog.New(cfg.AuditLog.Path).Read()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				return printf(out, "No imports yet\n")
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tACCOUNT\tFILE\tIMPORTED\tDUPLICATES\tFAILED\tCATEGORIZED")
			for _, en := range entries {
				file := en.File
				if en.DryRun {
					file += " (dry run)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					en.Timestamp.Local().Format("2006-01-02 15:04"), en.Account, file,
					en.Imported, en.Duplicates, en.Failed, en.Categorized)
			}
			return tw.Flush()
		},
	}
}
