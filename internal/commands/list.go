package commands

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/expense-tracker/internal/model"
	"github.com/cleared-dev/expense-tracker/internal/report"
	"github.com/cleared-dev/expense-tracker/internal/store"
)

func newListCommand(e *env) *cobra.Command {
	var (
		from, to, typ string
		asCSV         bool
		f             store.Filter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			f.From, f.To = dates.From, dates.To
			if typ != "" {
				if f.Type, err = model.ParseTransactionType(typ); err != nil {
					return err
				}
			}
			return runList(cmd, e, f, asCSV)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&f.Account, "account", "a", "", "only this account")
	cmd.Flags().StringVarP(&f.Category, "category", "c", "", "only this category")
	cmd.Flags().StringVar(&typ, "type", "", "Debit or Credit")
	cmd.Flags().BoolVar(&f.Uncategorized, "uncategorized", false, "only Uncategorized transactions")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 0, "maximum rows (0 for all)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")

	return cmd
}

func runList(cmd *cobra.Command, e *env, f store.Filter, asCSV bool) error {
	a, err := e.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	txns, err := a.svc.List(cmd.Context(), f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asCSV {
		return report.WriteTransactionsCSV(out, txns)
	}
	if len(txns) == 0 {
		return printf(out, "No transactions\n")
	}
	return writeTable(out, txns)
}

// dateFilter parses optional --from/--to values.
func dateFilter(from, to string) (store.Filter, error) {
	var f store.Filter
	var err error
	if from != "" {
		if f.From, err = civil.ParseDate(from); err != nil {
			return f, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if f.To, err = civil.ParseDate(to); err != nil {
			return f, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to)
		}
	}
	if from != "" && to != "" && f.To.Before(f.From) {
		return f, fmt.Errorf("--to %s is before --from %s", f.To, f.From)
	}
	return f, nil
}
