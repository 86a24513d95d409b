package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "", "CAD", "", "USD", "")

// parseAmount reads a signed amount as printed on a statement.
// Accepts currency symbols, thousands separators, a leading or trailing
// minus sign and accounting-style parentheses.
func parseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = amountReplacer.Replace(strings.TrimSpace(s))
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		neg = !neg
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.Replace(s, "\u2212", "-", 1)
	if s == "" {
		return decimal.Zero, fmt.Errorf("parsing amount %q: empty", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// directionFromSign splits a signed amount into magnitude and direction.
// negative is the type a negative amount represents for this source.
func directionFromSign(d decimal.Decimal, negative model.TransactionType) (decimal.Decimal, model.TransactionType) {
	positive := model.Credit
	if negative == model.Credit {
		positive = model.Debit
	}
	if d.IsNegative() {
		return d.Abs(), negative
	}
	return d, positive
}
