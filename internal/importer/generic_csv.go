package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// GenericCSVSpec describes a CSV export layout declared in configuration.
//
// Columns are header names when HasHeader is set, otherwise 1-based indexes
// written as strings ("1", "2", ...). Either AmountColumn or both
// DebitColumn and CreditColumn must be given.
type GenericCSVSpec struct {
	Name              string
	DateColumn        string
	DateFormat        string // Go layout; empty tries model.DateLayouts
	DescriptionColumn string
	AmountColumn      string
	DebitColumn       string
	CreditColumn      string
	// CreditWhenNegative flips the default reading of a signed amount column,
	// which is negative for money out.
	CreditWhenNegative bool
	HasHeader          bool
	Delimiter          string
	Encoding           string // utf-8 (default), windows-1252, latin1
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (s GenericCSVSpec) validate() error {
	switch {
	case normalizeAccount(s.Name) == "":
		return errors.New("name is required")
	case s.DateColumn == "":
		return errors.New("date_column is required")
	case s.DescriptionColumn == "":
		return errors.New("description_column is required")
	case s.AmountColumn == "" && (s.DebitColumn == "" || s.CreditColumn == ""):
		return errors.New("amount_column or both debit_column and credit_column are required")
	case s.AmountColumn != "" && (s.DebitColumn != "" || s.CreditColumn != ""):
		return errors.New("amount_column cannot be combined with debit_column or credit_column")
	case utf8.RuneCountInString(s.Delimiter) > 1:
		return fmt.Errorf("delimiter %q must be a single character", s.Delimiter)
	}
	if _, err := s.decoder(); err != nil {
		return err
	}
	if !s.HasHeader {
		for _, c := range []string{s.DateColumn, s.DescriptionColumn, s.AmountColumn, s.DebitColumn, s.CreditColumn} {
			if c == "" {
				continue
			}
			if n, err := strconv.Atoi(c); err != nil || n < 1 {
				return fmt.Errorf("column %q must be a 1-based index when has_header is false", c)
			}
		}
	}
	return nil
}

func (s GenericCSVSpec) decoder() (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(s.Encoding)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", s.Encoding)
}

// GenericCSVParser parses a CSV layout described by a GenericCSVSpec.
type GenericCSVParser struct {
	spec GenericCSVSpec
}

// Account returns the registry identifier.
func (p *GenericCSVParser) Account() string { return normalizeAccount(p.spec.Name) }

// Parse reads a CSV file according to the spec.
func (p *GenericCSVParser) Parse(r io.Reader) (*Result, error) {
	dec, err := p.spec.decoder()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", p.Account(), err)
	}
	if dec != nil {
		if data, err = dec.Bytes(data); err != nil {
			return nil, fmt.Errorf("decoding %s CSV: %w", p.Account(), err)
		}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if p.spec.Delimiter != "" {
		cr.Comma, _ = utf8.DecodeRuneInString(p.spec.Delimiter)
	}

	res := &Result{}
	var cols *genericColumns
	if !p.spec.HasHeader {
		cols = p.indexColumns()
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("reading %s CSV: %w", p.Account(), err)
			}
			res.fail(p.Account(), perr.Line, "", perr.Err)
			continue
		}
		line, _ := cr.FieldPos(0)
		if cols == nil {
			if cols, err = p.headerColumns(rec); err != nil {
				return nil, fmt.Errorf("%s CSV header: %w", p.Account(), err)
			}
			res.Skipped++
			continue
		}
		if blankRow(rec) {
			res.Skipped++
			continue
		}
		txn, err := p.parseRow(cols, rec)
		if err != nil {
			res.fail(p.Account(), line, rowContext(rec), err)
			continue
		}
		res.add(txn)
	}
	if cols == nil {
		return nil, fmt.Errorf("%s CSV: missing header row", p.Account())
	}
	return res, nil
}

// genericColumns holds 0-based positions; -1 means unused.
type genericColumns struct {
	header                            []string
	date, desc, amount, debit, credit int
}

func (p *GenericCSVParser) indexColumns() *genericColumns {
	pos := func(c string) int {
		if c == "" {
			return -1
		}
		n, _ := strconv.Atoi(c)
		return n - 1
	}
	return &genericColumns{
		date:   pos(p.spec.DateColumn),
		desc:   pos(p.spec.DescriptionColumn),
		amount: pos(p.spec.AmountColumn),
		debit:  pos(p.spec.DebitColumn),
		credit: pos(p.spec.CreditColumn),
	}
}

func (p *GenericCSVParser) headerColumns(header []string) (*genericColumns, error) {
	idx := newColumnIndex(header)
	pos := func(c string) (int, error) {
		if c == "" {
			return -1, nil
		}
		i, ok := idx[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			return -1, fmt.Errorf("column %q not found", c)
		}
		return i, nil
	}
	cols := &genericColumns{header: header}
	var err error
	for _, f := range []struct {
		dst  *int
		name string
	}{
		{&cols.date, p.spec.DateColumn},
		{&cols.desc, p.spec.DescriptionColumn},
		{&cols.amount, p.spec.AmountColumn},
		{&cols.debit, p.spec.DebitColumn},
		{&cols.credit, p.spec.CreditColumn},
	} {
		if *f.dst, err = pos(f.name); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (p *GenericCSVParser) parseDate(s string) (civil.Date, error) {
	if p.spec.DateFormat == "" {
		return model.ParseDate(s)
	}
	t, err := time.Parse(p.spec.DateFormat, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return civil.DateOf(t), nil
}

func (p *GenericCSVParser) parseRow(cols *genericColumns, rec []string) (model.Transaction, error) {
	date, err := p.parseDate(cell(rec, cols.date))
	if err != nil {
		return model.Transaction{}, err
	}

	var txn model.Transaction
	if cols.amount >= 0 {
		amount, err := parseAmount(cell(rec, cols.amount))
		if err != nil {
			return model.Transaction{}, err
		}
		negative := model.Debit
		if p.spec.CreditWhenNegative {
			negative = model.Credit
		}
		abs, typ := directionFromSign(amount, negative)
		txn, err = model.New(date, cell(rec, cols.desc), abs, typ, p.Account())
		if err != nil {
			return model.Transaction{}, err
		}
	} else {
		debit, credit := cell(rec, cols.debit), cell(rec, cols.credit)
		var (
			raw string
			typ model.TransactionType
		)
		switch {
		case debit != "" && credit != "":
			return model.Transaction{}, fmt.Errorf("both debit %q and credit %q are set", debit, credit)
		case debit != "":
			raw, typ = debit, model.Debit
		case credit != "":
			raw, typ = credit, model.Credit
		default:
			return model.Transaction{}, errors.New("neither debit nor credit is set")
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return model.Transaction{}, err
		}
		txn, err = model.New(date, cell(rec, cols.desc), amount.Abs(), typ, p.Account())
		if err != nil {
			return model.Transaction{}, err
		}
	}
	txn.RawData = rawData(cols.header, rec)
	return txn, nil
}

// RegisterGenericCSV adds a parser for each spec. Existing accounts are
// never replaced.
func RegisterGenericCSV(reg *Registry, specs []GenericCSVSpec) error {
	for i, spec := range specs {
		if err := spec.validate(); err != nil {
			return fmt.Errorf("generic_csv[%d] %q: %w", i, spec.Name, err)
		}
		if reg.Has(spec.Name) {
			return fmt.Errorf("generic_csv[%d]: account %q is already registered", i, spec.Name)
		}
		reg.Register(spec.Name, func() Parser { return &GenericCSVParser{spec: spec} })
	}
	return nil
}
