package model

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func TestNew(t *testing.T) {
	txn, err := New(day(2025, 1, 3), "  STARBUCKS   COFFEE #123 ", dec("4.50"), Debit, "amex")
	require.NoError(t, err)

	assert.Equal(t, "STARBUCKS COFFEE #123", txn.Description)
	assert.Equal(t, "4.50", FormatAmount(txn.Amount))
	assert.Equal(t, Debit, txn.Type)
	assert.Equal(t, "amex", txn.Account)
	assert.Equal(t, Uncategorized, txn.Category)
	assert.False(t, txn.IsCategorized())
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		date   civil.Date
		desc   string
		amount string
		typ    TransactionType
		acct   string
		field  string
	}{
		{"negative amount", day(2025, 1, 3), "x", "-1.00", Debit, "amex", "amount"},
		{"bad type", day(2025, 1, 3), "x", "1.00", TransactionType("Transfer"), "amex", "type"},
		{"empty type", day(2025, 1, 3), "x", "1.00", "", "amex", "type"},
		{"invalid date", day(2025, 2, 30), "x", "1.00", Debit, "amex", "date"},
		{"zero date", civil.Date{}, "x", "1.00", Debit, "amex", "date"},
		{"missing account", day(2025, 1, 3), "x", "1.00", Credit, "  ", "account"},
		{"blank description", day(2025, 1, 3), " \t ", "1.00", Credit, "amex", "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.date, tt.desc, dec(tt.amount), tt.typ, tt.acct)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParse(t *testing.T) {
	txn, err := Parse(Fields{Date: "2025-01-15", Description: "ACME PAYROLL", Amount: "3500.00", Type: "credit", Account: "cibc-chequing"})
	require.NoError(t, err)
	assert.Equal(t, Credit, txn.Type)
	assert.Equal(t, day(2025, 1, 15), txn.Date)
	assert.True(t, txn.Amount.Equal(dec("3500")))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		f     Fields
		field string
	}{
		{"unparsable date", Fields{Date: "yesterday", Description: "x", Amount: "1", Type: "Debit", Account: "a"}, "date"},
		{"non-numeric amount", Fields{Date: "2025-01-01", Description: "x", Amount: "ten", Type: "Debit", Account: "a"}, "amount"},
		{"negative amount", Fields{Date: "2025-01-01", Description: "x", Amount: "-10", Type: "Debit", Account: "a"}, "amount"},
		{"unknown type", Fields{Date: "2025-01-01", Description: "x", Amount: "10", Type: "Refund", Account: "a"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.f)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseDate_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want civil.Date
	}{
		{"2025-01-03", day(2025, 1, 3)},
		{"2025/01/03", day(2025, 1, 3)},
		{"01/03/2025", day(2025, 1, 3)},
		{"1/3/2025", day(2025, 1, 3)},
		{"03 Jan 2025", day(2025, 1, 3)},
		{"03 Jan. 2025", day(2025, 1, 3)},
		{"Jan 3, 2025", day(2025, 1, 3)},
		{"January 3, 2025", day(2025, 1, 3)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  AMZN Mktp CA*2X4  ", "AMZN Mktp CA*2X4"},
		{"TIM\tHORTONS\n#123", "TIM HORTONS #123"},
		{"Café Luna", "Café Luna"},
		{"already clean", "already clean"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDescription(tt.in))
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "4.00", FormatAmount(dec("4")))
	assert.Equal(t, "4.50", FormatAmount(dec("4.5")))
	assert.Equal(t, "4.50", FormatAmount(dec("4.500")))
	assert.Equal(t, "0.125", FormatAmount(dec("0.125")))
}

func TestSignedAmount(t *testing.T) {
	debit, err := New(day(2025, 1, 3), "FEE", dec("2.50"), Debit, "amex")
	require.NoError(t, err)
	credit, err := New(day(2025, 1, 3), "REFUND", dec("2.50"), Credit, "amex")
	require.NoError(t, err)

	assert.Equal(t, "-2.50", debit.SignedAmount().StringFixed(2))
	assert.Equal(t, "2.50", credit.SignedAmount().StringFixed(2))
}

func TestKey_ExcludesCategoryAndRawData(t *testing.T) {
	a, err := New(day(2025, 1, 3), "UBER TRIP", dec("12.3"), Debit, "amex")
	require.NoError(t, err)
	b := a
	b.Category = "Transport"
	b.RawData = RawData{"Merchant Address": "SAN FRANCISCO"}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Key().Fingerprint(), b.Key().Fingerprint())
}

func TestKey_AmountScaleInsensitive(t *testing.T) {
	a, err := New(day(2025, 1, 3), "UBER TRIP", dec("12.3"), Debit, "amex")
	require.NoError(t, err)
	b, err := New(day(2025, 1, 3), "UBER TRIP", dec("12.300"), Debit, "amex")
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
}

func TestKey_DiffersByAccountAndDate(t *testing.T) {
	a, _ := New(day(2025, 1, 3), "UBER TRIP", dec("12.30"), Debit, "amex")
	b, _ := New(day(2025, 1, 3), "UBER TRIP", dec("12.30"), Debit, "cibc-chequing")
	c, _ := New(day(2025, 1, 4), "UBER TRIP", dec("12.30"), Debit, "amex")

	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestParseTransactionType(t *testing.T) {
	typ, err := ParseTransactionType(" DEBIT ")
	require.NoError(t, err)
	assert.Equal(t, Debit, typ)

	_, err = ParseTransactionType("withdrawal")
	assert.Error(t, err)
}

func TestString_TruncatesByRune(t *testing.T) {
	desc := strings.Repeat("É", 29) + "ÝCAFÉ"
	txn, err := New(day(2025, 1, 2), desc, dec("4.50"), Debit, "amex")
	require.NoError(t, err)

	got := txn.String()
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, strings.Repeat("É", 29)+"Ý,")
	assert.NotContains(t, got, "CAF")
}
