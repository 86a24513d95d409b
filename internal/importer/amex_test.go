package importer

import (
	"bytes"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// amexWorkbook writes rows to the first sheet of a new xlsx file.
func amexWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", ref, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

var amexPreamble = [][]any{
	{"American Express"},
	{"Transaction Details"},
	{"Prepared for"},
	{"JOHN DOE"},
	{"Date", "Description", "Cardmember", "Amount", "Merchant Address", "Additional Information"},
}

func amexStatement(t *testing.T, data ...[]any) []byte {
	return amexWorkbook(t, append(append([][]any{}, amexPreamble...), data...))
}

func TestAmexParser_Parse(t *testing.T) {
	data := amexStatement(t,
		[]any{"03 Jan. 2025", "STARBUCKS COFFEE #123", "JOHN DOE", "$4.50"},
		[]any{"05 Jan. 2025", "AMAZON.CA   MARKETPLACE", "JOHN DOE", "1,204.33"},
		[]any{"07 Jan. 2025", "", "-$25.00", "", "AMAZON.CA REFUND"},
		[]any{"12 Jan. 2025", "PAYMENT RECEIVED - THANK YOU", "JOHN DOE", "-500.00"},
		[]any{"14 Jan. 2025", "ANNUAL FEE", "JOHN DOE", "120.00"},
		[]any{"15 Jan. 2025", "BROKEN ROW", "JOHN DOE", "abc"},
	)

	res, err := (&AmexParser{}).Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 5)
	require.Len(t, res.Failures, 1)

	coffee := res.Transactions[0]
	assert.Equal(t, civil.Date{Year: 2025, Month: 1, Day: 3}, coffee.Date)
	assert.Equal(t, "STARBUCKS COFFEE #123", coffee.Description)
	assert.Equal(t, "4.50", model.FormatAmount(coffee.Amount))
	assert.Equal(t, model.Debit, coffee.Type)
	assert.Equal(t, AmexAccount, coffee.Account)
	assert.Equal(t, "JOHN DOE", coffee.RawData["Cardmember"])

	assert.Equal(t, "AMAZON.CA MARKETPLACE", res.Transactions[1].Description)
	assert.Equal(t, "1204.33", model.FormatAmount(res.Transactions[1].Amount))

	refund := res.Transactions[2]
	assert.Equal(t, "AMAZON.CA REFUND", refund.Description)
	assert.Equal(t, "25.00", model.FormatAmount(refund.Amount))
	assert.Equal(t, model.Credit, refund.Type)

	payment := res.Transactions[3]
	assert.Equal(t, "PAYMENT RECEIVED - THANK YOU", payment.Description)
	assert.Equal(t, "500.00", model.FormatAmount(payment.Amount))
	assert.Equal(t, model.Credit, payment.Type)

	fee := res.Transactions[4]
	assert.Equal(t, "ANNUAL FEE", fee.Description)
	assert.Equal(t, model.Debit, fee.Type)

	failure := res.Failures[0]
	assert.Equal(t, AmexAccount, failure.Account)
	assert.Equal(t, 11, failure.Row)
	assert.Contains(t, failure.Context, "BROKEN ROW")
	assert.Contains(t, failure.Error(), "parsing amount")
}

func TestAmexParser_NegativeAmountIsCredit(t *testing.T) {
	data := amexStatement(t, []any{"2025-02-01", "MERCHANT ADJUSTMENT", "JOHN DOE", "-3.10"})
	res, err := (&AmexParser{}).Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, model.Credit, res.Transactions[0].Type)
	assert.Equal(t, "3.10", model.FormatAmount(res.Transactions[0].Amount))
}

func TestAmexParser_GreyCreditFallsBackToAdditionalInformation(t *testing.T) {
	data := amexStatement(t, []any{"2025-02-01", "", "-$9.99", "", "", "STREAMING CREDIT"})
	res, err := (&AmexParser{}).Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "STREAMING CREDIT", res.Transactions[0].Description)
	assert.Equal(t, model.Credit, res.Transactions[0].Type)
}

func TestAmexParser_SkipsRowsWithoutDate(t *testing.T) {
	data := amexStatement(t,
		[]any{"2025-02-01", "COFFEE", "JOHN DOE", "3.00"},
		[]any{"", "Total", "", "3.00"},
	)
	res, err := (&AmexParser{}).Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 1)
	assert.Empty(t, res.Failures)
	assert.Equal(t, len(amexPreamble)+1, res.Skipped)
}

func TestAmexParser_NoHeader(t *testing.T) {
	data := amexWorkbook(t, [][]any{{"foo", "bar"}, {"1", "2"}})
	_, err := (&AmexParser{}).Parse(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestAmexParser_NotAWorkbook(t *testing.T) {
	_, err := (&AmexParser{}).Parse(bytes.NewReader([]byte("Date,Description,Amount\n")))
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotWorkbook)
}

func TestParseSheetDate(t *testing.T) {
	d, err := parseSheetDate("45658")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2025, Month: 1, Day: 1}, d)

	d, err = parseSheetDate("03 Jan. 2025")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2025, Month: 1, Day: 3}, d)

	_, err = parseSheetDate("soon")
	assert.Error(t, err)
}
