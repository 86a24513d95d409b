package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/expense-tracker/internal/store"
)

func newCategorizeCommand(e *env) *cobra.Command {
	var (
		from, to, account string
		overwrite         bool
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Apply categorization rules to stored transactions",
		Long:  "Apply categorization rules to stored transactions. Only Uncategorized\ntransactions change unless --overwrite is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			f.Account = account
			return runCategorize(cmd, e, f, overwrite)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&account, "account", "a", "", "only this account")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "re-categorize already categorized transactions")

	return cmd
}

func runCategorize(cmd *cobra.Command, e *env, f store.Filter, overwrite bool) error {
	a, err := e.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.svc.Recategorize(cmd.Context(), f, overwrite)
	if err != nil {
		return err
	}
	return printf(cmd.OutOrStdout(), "Categorized %d transaction(s)\n", n)
}
