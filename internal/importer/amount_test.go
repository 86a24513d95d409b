package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4.50", "4.50"},
		{"$1,204.33", "1204.33"},
		{"-$25.00", "-25.00"},
		{"(12.00)", "-12.00"},
		{"12.00-", "-12.00"},
		{" 7 ", "7.00"},
		{"1 000.10", "1000.10"},
		{"CAD 3.00", "3.00"},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.StringFixed(2), tt.in)
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "$", "1.2.3"} {
		_, err := parseAmount(in)
		assert.Error(t, err, in)
	}
}

func TestDirectionFromSign(t *testing.T) {
	abs, typ := directionFromSign(decimal.RequireFromString("-3.25"), model.Debit)
	assert.Equal(t, "3.25", abs.StringFixed(2))
	assert.Equal(t, model.Debit, typ)

	abs, typ = directionFromSign(decimal.RequireFromString("3.25"), model.Debit)
	assert.Equal(t, "3.25", abs.StringFixed(2))
	assert.Equal(t, model.Credit, typ)

	_, typ = directionFromSign(decimal.RequireFromString("-1"), model.Credit)
	assert.Equal(t, model.Credit, typ)
	_, typ = directionFromSign(decimal.RequireFromString("1"), model.Credit)
	assert.Equal(t, model.Debit, typ)
}
