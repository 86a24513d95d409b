// Package importlog keeps an append-only CSV record of every import run.
package importlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultPath is where the log lives relative to the data directory.
const DefaultPath = "logs/import-log.csv"

// Header is the CSV header for import-log.csv.
const Header = "timestamp,run_id,account,file,parsed,imported,duplicates,failed,categorized,dry_run"

const (
	numFields      = 10
	colTimestamp   = 0
	colRunID       = 1
	colAccount     = 2
	colFile        = 3
	colParsed      = 4
	colImported    = 5
	colDuplicates  = 6
	colFailed      = 7
	colCategorized = 8
	colDryRun      = 9
)

// Entry is one import run.
type Entry struct {
	Timestamp   time.Time
	RunID       string
	Account     string
	File        string
	Parsed      int
	Imported    int
	Duplicates  int
	Failed      int
	Categorized int
	DryRun      bool
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colAccount] = e.Account
	row[colFile] = e.File
	row[colParsed] = strconv.Itoa(e.Parsed)
	row[colImported] = strconv.Itoa(e.Imported)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colFailed] = strconv.Itoa(e.Failed)
	row[colCategorized] = strconv.Itoa(e.Categorized)
	row[colDryRun] = strconv.FormatBool(e.DryRun)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	e := Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Account:   record[colAccount],
		File:      record[colFile],
	}
	counts := []struct {
		col int
		dst *int
	}{
		{colParsed, &e.Parsed},
		{colImported, &e.Imported},
		{colDuplicates, &e.Duplicates},
		{colFailed, &e.Failed},
		{colCategorized, &e.Categorized},
	}
	for _, c := range counts {
		n, err := strconv.Atoi(record[c.col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[c.col], err)
		}
		*c.dst = n
	}
	if e.DryRun, err = strconv.ParseBool(record[colDryRun]); err != nil {
		return Entry{}, fmt.Errorf("parsing dry_run %q: %w", record[colDryRun], err)
	}
	return e, nil
}

// Log appends entries to a CSV file.
type Log struct {
	path string
}

// New returns a log writing to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the file the log writes to.
func (l *Log) Path() string { return l.path }

// Append writes entries to the log, creating the file and header if needed.
func (l *Log) Append(entries ...Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries. A missing file yields no entries.
func (l *Log) Read() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
