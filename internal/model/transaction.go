package model

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Uncategorized is the category every transaction starts with.
const Uncategorized = "Uncategorized"

// TransactionType is the direction of money relative to the account.
type TransactionType string

const (
	Debit  TransactionType = "Debit"  // money leaving the account
	Credit TransactionType = "Credit" // money entering the account
)

// Valid reports whether t is one of the two known directions.
func (t TransactionType) Valid() bool {
	return t == Debit || t == Credit
}

// ParseTransactionType accepts "debit" or "credit" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit":
		return Debit, nil
	case "credit":
		return Credit, nil
	}
	return "", &ValidationError{Field: "type", Value: s, Reason: "must be Debit or Credit"}
}

// RawData is the original parsed row, kept for audit only.
type RawData map[string]string

// Transaction is the canonical record every parser produces.
type Transaction struct {
	ID          int64
	Date        civil.Date
	Description string
	Amount      decimal.Decimal // never negative; direction lives in Type
	Type        TransactionType
	Account     string
	RawData     RawData
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds a validated Transaction from typed values.
func New(date civil.Date, description string, amount decimal.Decimal, typ TransactionType, account string) (Transaction, error) {
	if !date.IsValid() {
		return Transaction{}, &ValidationError{Field: "date", Value: date.String(), Reason: "not a calendar date"}
	}
	if amount.IsNegative() {
		return Transaction{}, &ValidationError{Field: "amount", Value: amount.String(), Reason: "must not be negative"}
	}
	if !typ.Valid() {
		return Transaction{}, &ValidationError{Field: "type", Value: string(typ), Reason: "must be Debit or Credit"}
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return Transaction{}, &ValidationError{Field: "account", Reason: "required"}
	}
	desc := NormalizeDescription(description)
	if desc == "" {
		return Transaction{}, &ValidationError{Field: "description", Value: description, Reason: "required"}
	}

	return Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Account:     account,
		Category:    Uncategorized,
	}, nil
}

// Fields holds the textual form of a transaction as read from a file.
type Fields struct {
	Date        string
	Description string
	Amount      string
	Type        string
	Account     string
}

// Parse builds a validated Transaction from its textual fields.
func Parse(f Fields) (Transaction, error) {
	date, err := ParseDate(f.Date)
	if err != nil {
		return Transaction{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(f.Amount))
	if err != nil {
		return Transaction{}, &ValidationError{Field: "amount", Value: f.Amount, Reason: "not a number"}
	}
	typ, err := ParseTransactionType(f.Type)
	if err != nil {
		return Transaction{}, err
	}
	return New(date, f.Description, amount, typ, f.Account)
}

// DateLayouts are the date formats ParseDate understands, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006",
	"02 Jan. 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses s using the first matching layout in DateLayouts.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, &ValidationError{Field: "date", Value: s, Reason: "unrecognized date"}
}

// NormalizeDescription trims, collapses whitespace runs and NFC-normalizes s.
// Case and punctuation are left alone.
func NormalizeDescription(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// FormatAmount renders an amount the way it is stored and compared.
// Two decimal places unless the value carries more precision.
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

// SignedAmount returns Amount negated for debits. Only for aggregates.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsCategorized reports whether a non-default category is assigned.
func (t Transaction) IsCategorized() bool {
	return t.Category != "" && t.Category != Uncategorized
}

func (t Transaction) String() string {
	sign := "-"
	if t.Type == Credit {
		sign = "+"
	}
	desc := t.Description
	if r := []rune(desc); len(r) > 30 {
		desc = string(r[:30])
	}
	return fmt.Sprintf("Transaction(%s, %s, %s$%s)", t.Date, desc, sign, FormatAmount(t.Amount))
}
