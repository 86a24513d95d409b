package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// Header is the CSV header for transaction exports.
const Header = "id,date,description,amount,type,account,category"

const (
	numFields   = 7
	colID       = 0
	colDate     = 1
	colDesc     = 2
	colAmount   = 3
	colType     = 4
	colAccount  = 5
	colCategory = 6
)

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	if t.ID != 0 {
		row[colID] = strconv.FormatInt(t.ID, 10)
	}
	row[colDate] = t.Date.String()
	row[colDesc] = t.Description
	row[colAmount] = model.FormatAmount(t.Amount)
	row[colType] = string(t.Type)
	row[colAccount] = t.Account
	row[colCategory] = t.Category
	return row
}

// WriteTransactionsCSV writes txns to w, header first.
func WriteTransactionsCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
