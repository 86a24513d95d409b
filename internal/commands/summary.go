package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/expense-tracker/internal/id"
)

func newSummaryCommand(e *env) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show debits, credits and top categories for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = time.Now().Format("2006-01")
			}
			y, m, err := id.ParseMonth(month)
			if err != nil {
				return err
			}
			return runSummary(cmd, e, y, m)
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default: current month)")

	return cmd
}

func runSummary(cmd *cobra.Command, e *env, year, month int) error {
	a, err := e.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.MonthlySummary(cmd.Context(), year, month)
	if err != nil {
		return err
	}
	return s.WriteText(cmd.OutOrStdout())
}
