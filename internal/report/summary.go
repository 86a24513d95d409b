// Package report turns stored transactions into summaries and exports.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// TopN is how many spending categories Top and WriteText show.
const TopN = 5

// Group is the total of one (type, category) pair within a month.
type Group struct {
	Type     model.TransactionType
	Category string
	Count    int
	Total    decimal.Decimal
}

// CategoryTotal is a category with its summed amount.
type CategoryTotal struct {
	Category string
	Count    int
	Total    decimal.Decimal
}

// MonthlySummary aggregates one calendar month.
type MonthlySummary struct {
	Year  int
	Month int

	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	DebitCount   int
	CreditCount  int

	DebitsByCategory  []CategoryTotal // largest first
	CreditsByCategory []CategoryTotal // largest first
}

// Summarize folds grouped totals into a MonthlySummary.
func Summarize(year, month int, groups []Group) *MonthlySummary {
	s := &MonthlySummary{Year: year, Month: month}
	debits := map[string]*CategoryTotal{}
	credits := map[string]*CategoryTotal{}

	for _, g := range groups {
		cat := g.Category
		if cat == "" {
			cat = model.Uncategorized
		}
		target := debits
		switch g.Type {
		case model.Debit:
			s.TotalDebits = s.TotalDebits.Add(g.Total)
			s.DebitCount += g.Count
		case model.Credit:
			s.TotalCredits = s.TotalCredits.Add(g.Total)
			s.CreditCount += g.Count
			target = credits
		default:
			continue
		}
		ct, ok := target[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat}
			target[cat] = ct
		}
		ct.Count += g.Count
		ct.Total = ct.Total.Add(g.Total)
	}

	s.DebitsByCategory = sortTotals(debits)
	s.CreditsByCategory = sortTotals(credits)
	return s
}

// SummarizeTransactions builds a summary from individual transactions,
// ignoring those outside the month.
func SummarizeTransactions(year, month int, txns []model.Transaction) *MonthlySummary {
	type key struct {
		typ model.TransactionType
		cat string
	}
	idx := map[key]int{}
	var groups []Group
	for _, t := range txns {
		if t.Date.Year != year || int(t.Date.Month) != month {
			continue
		}
		k := key{t.Type, t.Category}
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group{Type: t.Type, Category: t.Category})
		}
		groups[i].Count++
		groups[i].Total = groups[i].Total.Add(t.Amount)
	}
	return Summarize(year, month, groups)
}

func sortTotals(m map[string]*CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(m))
	for _, ct := range m {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// NetFlow is credits minus debits.
func (s *MonthlySummary) NetFlow() decimal.Decimal {
	return s.TotalCredits.Sub(s.TotalDebits)
}

// Count is the number of transactions in the month.
func (s *MonthlySummary) Count() int {
	return s.DebitCount + s.CreditCount
}

// TopCategories returns up to n spending categories, largest first.
func (s *MonthlySummary) TopCategories(n int) []CategoryTotal {
	if n > len(s.DebitsByCategory) {
		n = len(s.DebitsByCategory)
	}
	return s.DebitsByCategory[:n]
}

// WriteText renders the summary for a terminal.
func (s *MonthlySummary) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	title := time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")

	fmt.Fprintf(tw, "Monthly Summary - %s\n\n", title)
	fmt.Fprintf(tw, "Transactions:\t%d\n", s.Count())
	fmt.Fprintf(tw, "Debits:\t%s\t(%d)\n", s.TotalDebits.StringFixed(2), s.DebitCount)
	fmt.Fprintf(tw, "Credits:\t%s\t(%d)\n", s.TotalCredits.StringFixed(2), s.CreditCount)
	fmt.Fprintf(tw, "Net:\t%s\n", s.NetFlow().StringFixed(2))

	if top := s.TopCategories(TopN); len(top) > 0 {
		fmt.Fprintf(tw, "\nTop Spending Categories:\n")
		for _, ct := range top {
			fmt.Fprintf(tw, "  %s\t%s\t(%d)\n", ct.Category, ct.Total.StringFixed(2), ct.Count)
		}
	}
	return tw.Flush()
}
