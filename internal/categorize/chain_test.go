package categorize

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

func txn(t *testing.T, desc, amount string, typ model.TransactionType) model.Transaction {
	t.Helper()
	tx, err := model.New(civil.Date{Year: 2025, Month: 1, Day: 3}, desc, decimal.RequireFromString(amount), typ, "amex")
	require.NoError(t, err)
	return tx
}

func TestChain_FirstMatchWins(t *testing.T) {
	c, err := NewChain([]RuleSpec{
		{Kind: "keyword", Pattern: "COFFEE", Category: "Dining"},
		{Kind: "keyword", Pattern: "STARBUCKS COFFEE", Category: "Coffee Shops"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Dining", c.Categorize(txn(t, "STARBUCKS COFFEE #123", "4.50", model.Debit)))
}

func TestChain_UserBeatsBuiltin(t *testing.T) {
	c, err := NewChain(
		[]RuleSpec{{Kind: "keyword", Pattern: "starbucks", Category: "Treats"}},
		[]RuleSpec{{Kind: "keyword", Pattern: "STARBUCKS", Category: "Coffee"}},
	)
	require.NoError(t, err)

	tx := txn(t, "STARBUCKS COFFEE #123", "4.50", model.Debit)
	assert.Equal(t, "Treats", c.Categorize(tx))

	r, ok := c.Match(tx)
	require.True(t, ok)
	assert.Equal(t, UserDefined, r.Tier)
}

func TestChain_UncategorizedFallback(t *testing.T) {
	c, err := NewChain(nil, DefaultRules())
	require.NoError(t, err)

	assert.Equal(t, model.Uncategorized, c.Categorize(txn(t, "ZZZ UNKNOWN MERCHANT", "1.00", model.Debit)))

	empty, err := NewChain(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Uncategorized, empty.Categorize(txn(t, "STARBUCKS", "1.00", model.Debit)))
}

func TestChain_KeywordCaseInsensitive(t *testing.T) {
	c, err := NewChain([]RuleSpec{{Kind: "keyword", Pattern: "tim hortons", Category: "Coffee"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", c.Categorize(txn(t, "TIM HORTONS #2211", "2.00", model.Debit)))
}

func TestChain_RegexMatchesAnywhere(t *testing.T) {
	c, err := NewChain([]RuleSpec{{Kind: "regex", Pattern: `amzn\s+mktp`, Category: "Shopping"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Shopping", c.Categorize(txn(t, "POS AMZN MKTP CA*2X4", "9.00", model.Debit)))
}

func TestChain_RegexCaseSensitive(t *testing.T) {
	c, err := NewChain([]RuleSpec{{Kind: "regex", Pattern: `^AMZN`, Category: "Shopping", CaseSensitive: true}}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Uncategorized, c.Categorize(txn(t, "amzn digital", "9.00", model.Debit)))
	assert.Equal(t, "Shopping", c.Categorize(txn(t, "AMZN digital", "9.00", model.Debit)))
}

func TestChain_Filters(t *testing.T) {
	c, err := NewChain([]RuleSpec{
		{Kind: "keyword", Pattern: "AMAZON", Category: "Refunds", TransactionType: "credit"},
		{Kind: "keyword", Pattern: "AMAZON", Category: "Big Purchases", MinAmount: "500"},
		{Kind: "keyword", Pattern: "AMAZON", Category: "Work", Account: "cibc-chequing"},
		{Kind: "keyword", Pattern: "AMAZON", Category: "Shopping"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Refunds", c.Categorize(txn(t, "AMAZON.CA", "25.00", model.Credit)))
	assert.Equal(t, "Big Purchases", c.Categorize(txn(t, "AMAZON.CA", "999.00", model.Debit)))
	assert.Equal(t, "Shopping", c.Categorize(txn(t, "AMAZON.CA", "25.00", model.Debit)))

	work := txn(t, "AMAZON.CA", "25.00", model.Debit)
	work.Account = "cibc-chequing"
	assert.Equal(t, "Work", c.Categorize(work))
}

func TestChain_PatternsExpandInOrder(t *testing.T) {
	c, err := NewChain([]RuleSpec{{Type: "keyword", Patterns: []string{"loblaws", "metro"}, Category: "Groceries"}}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "loblaws", c.Rules()[0].Pattern)
	assert.Equal(t, "Groceries", c.Categorize(txn(t, "METRO 123", "10.00", model.Debit)))
}

func TestChain_Deterministic(t *testing.T) {
	c, err := NewChain(nil, DefaultRules())
	require.NoError(t, err)
	tx := txn(t, "UBER EATS TORONTO", "31.20", model.Debit)
	first := c.Categorize(tx)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Categorize(tx))
	}
	assert.Equal(t, "Dining", first)
}

func TestNewChain_InvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec RuleSpec
		msg  string
	}{
		{"bad regex", RuleSpec{Kind: "regex", Pattern: "([a-z", Category: "X"}, "invalid regex"},
		{"empty pattern", RuleSpec{Kind: "keyword", Pattern: "  ", Category: "X"}, "pattern cannot be empty"},
		{"no pattern", RuleSpec{Kind: "keyword", Category: "X"}, "pattern is required"},
		{"no category", RuleSpec{Kind: "keyword", Pattern: "a"}, "category is required"},
		{"unknown kind", RuleSpec{Kind: "fuzzy", Pattern: "a", Category: "X"}, "unknown kind"},
		{"bad transaction type", RuleSpec{Kind: "keyword", Pattern: "a", Category: "X", TransactionType: "Refund"}, "Debit or Credit"},
		{"bad amount", RuleSpec{Kind: "keyword", Pattern: "a", Category: "X", MinAmount: "lots"}, "min_amount"},
		{"inverted bounds", RuleSpec{Kind: "keyword", Pattern: "a", Category: "X", MinAmount: "10", MaxAmount: "1"}, "greater than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChain([]RuleSpec{{Kind: "keyword", Pattern: "ok", Category: "OK"}, tt.spec}, nil)
			require.Error(t, err)

			var cerr *RuleConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, 1, cerr.Index)
			assert.Equal(t, UserDefined, cerr.Source)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewChain_InvalidBuiltin(t *testing.T) {
	_, err := NewChain(nil, []RuleSpec{{Kind: "regex", Pattern: "(", Category: "X"}})
	var cerr *RuleConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, BuiltIn, cerr.Source)
	assert.Equal(t, 0, cerr.Index)
}

func TestDefaultRules(t *testing.T) {
	c, err := NewChain(nil, DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		desc string
		typ  model.TransactionType
		want string
	}{
		{"ZEHRS KINGSVILLE #572 KINGSVILLE ON", model.Debit, "Groceries"},
		{"STARBUCKS COFFEE #123", model.Debit, "Coffee"},
		{"PAYMENT THANK YOU/PAIEMENT MERCI", model.Credit, "Card Payments"},
		{"AMZN MKTP CA REFUND", model.Credit, "Refunds"},
		{"AMZN MKTP CA", model.Debit, "Shopping"},
		{"Service Charge MONTHLY FEE", model.Debit, "Fees"},
		{"ACME PAYROLL", model.Credit, "Income"},
		{"Internet Banking E-TRANSFER 1234 Jane Doe", model.Debit, "Transfers"},
		{"PETRO-CANADA 1234 WINDSOR ON", model.Debit, "Fuel"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Categorize(txn(t, tt.desc, "10.00", tt.typ)), tt.desc)
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - kind: keyword
    pattern: COSTCO
    category: Bulk
  - type: regex
    patterns: ["^AMZN.*REFUND"]
    category: Refunds
    transaction_type: Credit
`), 0o644))

	specs, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "COSTCO", specs[0].Pattern)
	assert.Equal(t, "regex", specs[1].Type)

	c, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "Bulk", c.Categorize(txn(t, "COSTCO WHOLESALE W123", "210.00", model.Debit)))
	assert.Equal(t, "Refunds", c.Categorize(txn(t, "AMZN MKTP CA REFUND", "25.00", model.Credit)))
}

func TestLoadRules_MissingFile(t *testing.T) {
	specs, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, specs)

	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadRules_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [\n"), 0o644))
	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestSaveRules_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	in := []RuleSpec{{Kind: "keyword", Pattern: "NETFLIX", Category: "Subscriptions"}}
	require.NoError(t, SaveRules(path, in))

	out, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
