// Package ledger drives statement imports: parse, dedup, categorize, persist.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cleared-dev/expense-tracker/internal/categorize"
	"github.com/cleared-dev/expense-tracker/internal/id"
	"github.com/cleared-dev/expense-tracker/internal/importer"
	"github.com/cleared-dev/expense-tracker/internal/importlog"
	"github.com/cleared-dev/expense-tracker/internal/logging"
	"github.com/cleared-dev/expense-tracker/internal/model"
	"github.com/cleared-dev/expense-tracker/internal/report"
	"github.com/cleared-dev/expense-tracker/internal/store"
)

// Store is the persistence the service needs. Insert must report a key
// collision with an error wrapping store.ErrDuplicate.
type Store interface {
	Exists(ctx context.Context, key model.Key) (bool, error)
	Insert(ctx context.Context, t *model.Transaction) error
	List(ctx context.Context, f store.Filter) ([]model.Transaction, error)
	UpdateCategory(ctx context.Context, id int64, category string) error
	MonthlySummary(ctx context.Context, year, month int) ([]store.SummaryRow, error)
}

// AuditLog records finished import runs.
type AuditLog interface {
	Append(entries ...importlog.Entry) error
}

// Service provides the import pipeline and the queries built on it.
type Service struct {
	registry *importer.Registry
	store    Store
	chain    *categorize.Chain
	logger   *log.Logger
	audit    AuditLog
	now      func() time.Time
}

// NewService creates a ledger Service. A nil chain means no rules; a nil
// logger discards output.
func NewService(registry *importer.Registry, st Store, chain *categorize.Chain, logger *log.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		registry: registry,
		store:    st,
		chain:    chain,
		logger:   logger,
		now:      time.Now,
	}
}

// WithAuditLog makes every import append a row to a.
func (s *Service) WithAuditLog(a AuditLog) *Service {
	s.audit = a
	return s
}

// Options tune a single import.
type Options struct {
	Categorize bool // run new transactions through the rule chain
	DryRun     bool // report what would happen without writing
}

// Import reads the statement at path with the parser registered for account
// and stores every transaction not already present.
//
// Duplicates and row failures are reported in the result. Errors are
// returned only for an unknown account, an unreadable or structurally
// broken file, or a store failure.
func (s *Service) Import(ctx context.Context, path, account string, opts Options) (*ImportResult, error) {
	parser, err := s.registry.Resolve(account)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	runID := id.NewRunID()
	logger := s.logger.With("run", runID[:8], "account", parser.Account(), "file", filepath.Base(path))
	logger.Debug("parsing statement")

	parsed, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	result := &ImportResult{
		RunID:      runID,
		File:       path,
		Account:    parser.Account(),
		DryRun:     opts.DryRun,
		Parsed:     len(parsed.Transactions) + len(parsed.Failures),
		Skipped:    parsed.Skipped,
		FailedRows: parsed.Failures,
	}
	for _, pe := range parsed.Failures {
		logger.Warn("row failed", "row", pe.Row, "err", pe.Err)
	}

	seen := make(map[model.Key]struct{}, len(parsed.Transactions))
	for _, txn := range parsed.Transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := txn.Key()
		if _, dup := seen[key]; dup {
			logger.Debug("duplicate within file", "key", key.Fingerprint()[:12])
			result.addDuplicate(txn)
			continue
		}
		seen[key] = struct{}{}

		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			logger.Debug("already stored", "key", key.Fingerprint()[:12])
			result.addDuplicate(txn)
			continue
		}

		if opts.Categorize && s.chain != nil {
			txn.Category = s.chain.Categorize(txn)
		}

		if !opts.DryRun {
			err := s.store.Insert(ctx, &txn)
			if errors.Is(err, store.ErrDuplicate) {
				// Another writer got there between Exists and Insert.
				logger.Debug("insert lost race", "key", key.Fingerprint()[:12])
				result.addDuplicate(txn)
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		result.addImported(txn)
	}

	logger.Info("import complete",
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"failed", len(result.FailedRows),
		"categorized", result.Categorized,
		"dry_run", opts.DryRun,
	)
	s.record(result)
	return result, nil
}

func (s *Service) record(r *ImportResult) {
	if s.audit == nil {
		return
	}
	err := s.audit.Append(importlog.Entry{
		Timestamp:   s.now(),
		RunID:       r.RunID,
		Account:     r.Account,
		File:        filepath.Base(r.File),
		Parsed:      r.Parsed,
		Imported:    r.Imported,
		Duplicates:  r.Duplicates,
		Failed:      len(r.FailedRows),
		Categorized: r.Categorized,
		DryRun:      r.DryRun,
	})
	if err != nil {
		s.logger.Warn("writing import log", "err", err)
	}
}

// ImportDir imports every statement file in dir with account's parser.
// Files that import cleanly are moved to dir/processed unless opts.DryRun
// is set. A failing file does not stop the others; the joined error names
// each failed file.
func (s *Service) ImportDir(ctx context.Context, dir, account string, opts Options) ([]*ImportResult, error) {
	if !s.registry.Has(account) {
		_, err := s.registry.Resolve(account)
		return nil, err
	}
	files, err := importer.Scan(dir)
	if err != nil {
		return nil, err
	}

	var (
		results []*ImportResult
		errs    []error
	)
	for _, f := range files {
		res, err := s.Import(ctx, f.Path, account, opts)
		if err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		results = append(results, res)
		if opts.DryRun {
			continue
		}
		if err := importer.MarkProcessed(dir, f.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Recategorize re-runs the rule chain over stored transactions matching f
// and returns how many changed. Only Uncategorized rows are considered
// unless overwrite is set.
func (s *Service) Recategorize(ctx context.Context, f store.Filter, overwrite bool) (int, error) {
	if s.chain == nil {
		return 0, errors.New("no categorization rules loaded")
	}
	if !overwrite {
		f.Uncategorized = true
	}
	txns, err := s.store.List(ctx, f)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, t := range txns {
		category := s.chain.Categorize(t)
		if category == t.Category {
			continue
		}
		if err := s.store.UpdateCategory(ctx, t.ID, category); err != nil {
			return changed, err
		}
		changed++
	}
	s.logger.Info("recategorized", "considered", len(txns), "changed", changed, "overwrite", overwrite)
	return changed, nil
}

// MonthlySummary aggregates the stored transactions of one month.
func (s *Service) MonthlySummary(ctx context.Context, year, month int) (*report.MonthlySummary, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	rows, err := s.store.MonthlySummary(ctx, year, month)
	if err != nil {
		return nil, err
	}
	groups := make([]report.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, report.Group{
			Type:     r.Type,
			Category: r.Category,
			Count:    r.Count,
			Total:    r.Total,
		})
	}
	return report.Summarize(year, month, groups), nil
}

// List returns stored transactions matching f.
func (s *Service) List(ctx context.Context, f store.Filter) ([]model.Transaction, error) {
	return s.store.List(ctx, f)
}
