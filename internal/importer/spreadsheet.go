package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// maxXLSRows caps how many rows are read from a legacy workbook.
const maxXLSRows = 5000

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

var errNotWorkbook = errors.New("not an Excel workbook")

// readSpreadsheet returns the cells of the first sheet of an .xlsx or .xls file.
func readSpreadsheet(data []byte) ([][]string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return readXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		return readXLS(data)
	}
	return nil, errNotWorkbook
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}
	return wb.ReadAllCells(maxXLSRows), nil
}

// parseSheetDate accepts any model.DateLayouts format or an Excel serial number.
func parseSheetDate(s string) (civil.Date, error) {
	d, err := model.ParseDate(s)
	if err == nil {
		return d, nil
	}
	serial, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if ferr != nil || serial <= 0 {
		return civil.Date{}, err
	}
	t, terr := excelize.ExcelDateToTime(serial, false)
	if terr != nil {
		return civil.Date{}, fmt.Errorf("parsing date serial %q: %w", s, terr)
	}
	return civil.DateOf(t), nil
}

// columnIndex maps lowercased header names to their positions.
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

func (c columnIndex) has(name string) bool {
	_, ok := c[strings.ToLower(name)]
	return ok
}

// get returns the trimmed cell for name, or "" when absent or short.
func (c columnIndex) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rawData captures the non-empty cells of row keyed by header.
func rawData(header, row []string) model.RawData {
	raw := make(model.RawData)
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		key := "col" + strconv.Itoa(i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			key = strings.TrimSpace(header[i])
		}
		raw[key] = cell
	}
	return raw
}
