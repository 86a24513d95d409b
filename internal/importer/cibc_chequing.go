package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// CIBCChequingAccount is the registry identifier for CIBC chequing CSV exports.
const CIBCChequingAccount = "cibc-chequing"

const (
	cibcMinFields = 4
	cibcColDate   = 0
	cibcColDesc   = 1
	cibcColDebit  = 2
	cibcColCredit = 3
)

var cibcRawKeys = []string{"date", "description", "debit", "credit", "card"}

// CIBCChequingParser parses CIBC chequing account CSV exports.
// The export has no header. Money out is in the debit column, money in is
// in the credit column, and exactly one of them is filled.
type CIBCChequingParser struct{}

// Account returns the registry identifier.
func (p *CIBCChequingParser) Account() string { return CIBCChequingAccount }

// Parse reads a CIBC chequing CSV.
func (p *CIBCChequingParser) Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	res := &Result{}
	wide := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed quoting spoils one record, anything else the whole file.
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("reading cibc CSV: %w", err)
			}
			res.fail(CIBCChequingAccount, perr.Line, "", perr.Err)
			continue
		}
		line, _ := cr.FieldPos(0)
		if blankRow(rec) || (line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date")) {
			res.Skipped++
			continue
		}
		if len(rec) >= cibcMinFields {
			wide = true
		}
		txn, err := parseCIBCChequingRow(rec)
		if err != nil {
			res.fail(CIBCChequingAccount, line, rowContext(rec), err)
			continue
		}
		res.add(txn)
	}
	// Bad cells only fail their row. A file with no record wide enough to
	// hold date, description, debit and credit is not a CIBC export.
	if !wide && len(res.Failures) > 0 {
		return nil, fmt.Errorf("cibc CSV: no record has the %d expected columns, first error: %w", cibcMinFields, res.Failures[0])
	}
	return res, nil
}

func parseCIBCChequingRow(rec []string) (model.Transaction, error) {
	if len(rec) < cibcMinFields {
		return model.Transaction{}, fmt.Errorf("expected at least %d fields, got %d", cibcMinFields, len(rec))
	}
	date, err := model.ParseDate(rec[cibcColDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[cibcColDate], err)
	}

	debit := strings.TrimSpace(rec[cibcColDebit])
	credit := strings.TrimSpace(rec[cibcColCredit])
	var (
		cell string
		typ  model.TransactionType
	)
	switch {
	case debit != "" && credit != "":
		return model.Transaction{}, fmt.Errorf("both debit %q and credit %q are set", debit, credit)
	case debit != "":
		cell, typ = debit, model.Debit
	case credit != "":
		cell, typ = credit, model.Credit
	default:
		return model.Transaction{}, errors.New("neither debit nor credit is set")
	}

	amount, err := parseAmount(cell)
	if err != nil {
		return model.Transaction{}, err
	}
	// A negative figure in either column reverses it.
	if amount.IsNegative() {
		amount = amount.Abs()
		if typ == model.Debit {
			typ = model.Credit
		} else {
			typ = model.Debit
		}
	}

	txn, err := model.New(date, rec[cibcColDesc], amount, typ, CIBCChequingAccount)
	if err != nil {
		return model.Transaction{}, err
	}
	raw := make(model.RawData, len(rec))
	for i, v := range rec {
		if i < len(cibcRawKeys) && strings.TrimSpace(v) != "" {
			raw[cibcRawKeys[i]] = v
		}
	}
	txn.RawData = raw
	return txn, nil
}
