package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// Parser converts one institution's statement file into canonical transactions.
type Parser interface {
	Parse(r io.Reader) (*Result, error)
	Account() string
}

// Factory builds a fresh Parser. Parsers hold no state between imports.
type Factory func() Parser

// Result is everything a parser extracted from one file.
type Result struct {
	Transactions []model.Transaction
	Failures     []*ParseError
	// Skipped counts rows that are not transactions: headers, totals, blank lines.
	Skipped int
}

func (r *Result) add(txn model.Transaction) {
	r.Transactions = append(r.Transactions, txn)
}

func (r *Result) fail(account string, row int, context string, err error) {
	r.Failures = append(r.Failures, &ParseError{Account: account, Row: row, Context: context, Err: err})
}

// Registry maps account identifiers to parser factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func normalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// Register adds a factory under account. Panics on duplicate account.
func (r *Registry) Register(account string, f Factory) {
	key := normalizeAccount(account)
	if _, ok := r.factories[key]; ok {
		panic("duplicate parser account: " + key)
	}
	r.factories[key] = f
}

// Resolve returns a new parser for account.
func (r *Registry) Resolve(account string) (Parser, error) {
	f, ok := r.factories[normalizeAccount(account)]
	if !ok {
		return nil, &UnsupportedAccountError{Account: account, Known: r.Accounts()}
	}
	return f(), nil
}

// Has reports whether account is registered.
func (r *Registry) Has(account string) bool {
	_, ok := r.factories[normalizeAccount(account)]
	return ok
}

// Accounts returns the registered identifiers, sorted.
func (r *Registry) Accounts() []string {
	accounts := make([]string, 0, len(r.factories))
	for k := range r.factories {
		accounts = append(accounts, k)
	}
	sort.Strings(accounts)
	return accounts
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(AmexAccount, func() Parser { return &AmexParser{} })
	r.Register(CIBCChequingAccount, func() Parser { return &CIBCChequingParser{} })
	r.Register(CIBCCostcoAccount, func() Parser { return &CIBCCostcoParser{} })
	r.Register(OFXAccount, func() Parser { return &OFXParser{account: OFXAccount} })
	return r
}

// FileInfo describes a statement file waiting in an inbox directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// processedDir is the inbox subdirectory imported files are moved to.
const processedDir = "processed"

// StatementExtensions are the file types Scan picks up.
var StatementExtensions = []string{".csv", ".xls", ".xlsx", ".pdf", ".ofx", ".qfx"}

func isStatementFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range StatementExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Scan returns statement files in dir, sorted by name.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !isStatementFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
