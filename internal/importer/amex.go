package importer

import (
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// AmexAccount is the registry identifier for American Express exports.
const AmexAccount = "amex"

const (
	amexColDate       = "Date"
	amexColDesc       = "Description"
	amexColAmount     = "Amount"
	amexColCardmember = "Cardmember"
	amexColMerchant   = "Merchant Address"
	amexColAdditional = "Additional Information"

	// amexHeaderSearchRows bounds the search for the header row below the
	// account summary block.
	amexHeaderSearchRows = 20

	amexPaymentMarker = "PAYMENT RECEIVED"
)

// AmexParser parses American Express Excel statements (.xlsx and .xls).
//
// Regular rows are purchases. Credits show up either as a negative Amount or
// as "grey" rows whose Description is empty, whose signed amount sits in the
// Cardmember column and whose text moved to Merchant Address.
type AmexParser struct{}

// Account returns the registry identifier.
func (p *AmexParser) Account() string { return AmexAccount }

// Parse reads an Amex workbook.
func (p *AmexParser) Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading amex statement: %w", err)
	}
	rows, err := readSpreadsheet(data)
	if err != nil {
		return nil, fmt.Errorf("reading amex statement: %w", err)
	}
	return parseAmexRows(rows)
}

func findAmexHeader(rows [][]string) int {
	for i := 0; i < len(rows) && i < amexHeaderSearchRows; i++ {
		joined := strings.ToLower(strings.Join(rows[i], " "))
		if strings.Contains(joined, "date") && strings.Contains(joined, "description") && strings.Contains(joined, "amount") {
			return i
		}
	}
	return -1
}

func parseAmexRows(rows [][]string) (*Result, error) {
	h := findAmexHeader(rows)
	if h < 0 {
		return nil, fmt.Errorf("amex statement: no header row with Date, Description and Amount in the first %d rows", amexHeaderSearchRows)
	}
	header := rows[h]
	cols := newColumnIndex(header)
	for _, name := range []string{amexColDate, amexColDesc, amexColAmount} {
		if !cols.has(name) {
			return nil, fmt.Errorf("amex statement: header missing column %q", name)
		}
	}

	res := &Result{Skipped: h + 1}
	for i := h + 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) || cols.get(row, amexColDate) == "" {
			res.Skipped++
			continue
		}
		txn, err := parseAmexRow(cols, header, row)
		if err != nil {
			res.fail(AmexAccount, i+1, rowContext(row), err)
			continue
		}
		res.add(txn)
	}
	return res, nil
}

func isAmexGreyCredit(cols columnIndex, row []string) bool {
	if cols.get(row, amexColDesc) != "" {
		return false
	}
	cm := cols.get(row, amexColCardmember)
	return strings.HasPrefix(cm, "-") || strings.Contains(cm, "-&")
}

func parseAmexRow(cols columnIndex, header, row []string) (model.Transaction, error) {
	date, err := parseSheetDate(cols.get(row, amexColDate))
	if err != nil {
		return model.Transaction{}, err
	}

	desc := cols.get(row, amexColDesc)
	merchant := cols.get(row, amexColMerchant)
	var typ model.TransactionType

	switch {
	case isAmexGreyCredit(cols, row):
		amount, err := parseAmount(strings.ReplaceAll(cols.get(row, amexColCardmember), "&", ""))
		if err != nil {
			return model.Transaction{}, err
		}
		desc = merchant
		if desc == "" {
			desc = cols.get(row, amexColAdditional)
		}
		if desc == "" {
			desc = "CREDIT"
		}
		return newAmexTxn(date, desc, amount.Abs(), model.Credit, header, row)

	case strings.Contains(strings.ToUpper(merchant), amexPaymentMarker),
		strings.Contains(strings.ToUpper(desc), amexPaymentMarker):
		if desc == "" {
			desc = merchant
		}
		typ = model.Credit
	}

	amount, err := parseAmount(cols.get(row, amexColAmount))
	if err != nil {
		return model.Transaction{}, err
	}
	abs, signTyp := directionFromSign(amount, model.Credit)
	if typ == "" {
		typ = signTyp
	}
	return newAmexTxn(date, desc, abs, typ, header, row)
}

func newAmexTxn(date civil.Date, desc string, amount decimal.Decimal, typ model.TransactionType, header, row []string) (model.Transaction, error) {
	txn, err := model.New(date, desc, amount, typ, AmexAccount)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.RawData = rawData(header, row)
	return txn, nil
}
