package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/expense-tracker/internal/ledger"
	"github.com/cleared-dev/expense-tracker/internal/model"
)

type importFlags struct {
	account    string
	categorize bool
	dryRun     bool
	show       bool
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.account, "account", "a", "", "account identifier, see 'accounts' (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().BoolVar(&f.categorize, "categorize", true, "categorize new transactions (default from config)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "report what would be imported without writing")
	cmd.Flags().BoolVar(&f.show, "show", false, "print the imported transactions")
}

func (f *importFlags) options(cmd *cobra.Command, a *app) ledger.Options {
	opts := ledger.Options{Categorize: a.cfg.Import.Categorize, DryRun: f.dryRun}
	if cmd.Flags().Changed("categorize") {
		opts.Categorize = f.categorize
	}
	return opts
}

func newImportCommand(e *env) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a statement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, e, args[0], &flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func runImport(cmd *cobra.Command, e *env, path string, flags *importFlags) error {
	a, err := e.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Import(cmd.Context(), path, flags.account, flags.options(cmd, a))
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, flags.show)
}

func newImportDirCommand(e *env) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import-dir [directory]",
		Short: "Import every statement in an inbox directory",
		Long:  "Import every statement in an inbox directory (default: the configured inbox).\nImported files are moved to <directory>/processed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return runImportDir(cmd, e, dir, &flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func runImportDir(cmd *cobra.Command, e *env, dir string, flags *importFlags) error {
	a, err := e.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if dir == "" {
		dir = a.cfg.Import.InboxDir
	}
	results, err := a.svc.ImportDir(cmd.Context(), dir, flags.account, flags.options(cmd, a))
	out := cmd.OutOrStdout()
	if len(results) == 0 && err == nil {
		return printf(out, "No statements found in %s\n", dir)
	}
	for _, res := range results {
		if perr := printf(out, "%s: ", res.File); perr != nil {
			return perr
		}
		if perr := printResult(out, res, flags.show); perr != nil {
			return perr
		}
	}
	return err
}

func printResult(w io.Writer, res *ledger.ImportResult, show bool) error {
	if _, err := io.WriteString(w, res.Summary()); err != nil {
		return err
	}
	if !show || len(res.Transactions) == 0 {
		return nil
	}
	return writeTable(w, res.Transactions)
}

func writeTable(w io.Writer, txns []model.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tACCOUNT\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date, t.Account, t.Type, model.FormatAmount(t.Amount), t.Category, t.Description)
	}
	return tw.Flush()
}
