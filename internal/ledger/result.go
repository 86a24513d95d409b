package ledger

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/expense-tracker/internal/importer"
	"github.com/cleared-dev/expense-tracker/internal/model"
)

// ImportResult is the outcome of one import. Imported counts rows that were
// stored, or would have been in a dry run.
type ImportResult struct {
	RunID       string
	File        string
	Account     string
	DryRun      bool
	Parsed      int // transactions plus failed rows
	Imported    int
	Duplicates  int
	Categorized int // imported rows given a category other than Uncategorized
	Skipped     int // non-transaction rows the parser passed over
	FailedRows  []*importer.ParseError

	Transactions []model.Transaction // imported, in file order
	Duplicated   []model.Transaction // skipped as duplicates, in file order
}

func (r *ImportResult) addImported(t model.Transaction) {
	r.Imported++
	if t.IsCategorized() {
		r.Categorized++
	}
	r.Transactions = append(r.Transactions, t)
}

func (r *ImportResult) addDuplicate(t model.Transaction) {
	r.Duplicates++
	r.Duplicated = append(r.Duplicated, t)
}

// Summary renders the result for a terminal.
func (r *ImportResult) Summary() string {
	var b strings.Builder
	verb := "Imported"
	if r.DryRun {
		verb = "Would import"
	}
	fmt.Fprintf(&b, "%s %d transaction(s) into %s", verb, r.Imported, r.Account)
	fmt.Fprintf(&b, " (%d duplicate, %d failed, %d categorized)\n", r.Duplicates, len(r.FailedRows), r.Categorized)
	for _, pe := range r.FailedRows {
		fmt.Fprintf(&b, "  ! %v\n", pe)
	}
	return b.String()
}
