package importer

import (
	"fmt"
	"strings"
)

// ParseError is a single row that could not become a transaction.
// It is reported in Result.Failures and never aborts a parse.
type ParseError struct {
	Account string
	Row     int    // 1-based row or line number in the source
	Context string // the offending row, rendered for humans
	Err     error
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s row %d: %v", e.Account, e.Row, e.Err)
	}
	return fmt.Sprintf("%s row %d: %v [%s]", e.Account, e.Row, e.Err, e.Context)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedAccountError is returned when no parser is registered for an account.
type UnsupportedAccountError struct {
	Account string
	Known   []string
}

func (e *UnsupportedAccountError) Error() string {
	return fmt.Sprintf("no parser for account %q; available parsers: %s", e.Account, strings.Join(e.Known, ", "))
}

// rowContext renders a source row for error messages.
func rowContext(cells []string) string {
	s := strings.Join(cells, ",")
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
