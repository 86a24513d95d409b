// Package store persists transactions in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cleared-dev/expense-tracker/internal/id"
	"github.com/cleared-dev/expense-tracker/internal/model"
)

const busyTimeoutMS = 5000

// SQLite is a transaction store backed by a single database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it to
// the current schema.
func Open(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("open", fmt.Errorf("creating %s: %w", dir, err))
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storeErr("open", err)
	}
	// One writer at a time keeps the UNIQUE check and insert serialized.
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, storeErr("migrate", err)
	}
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Exists reports whether a transaction with the given key is stored.
func (s *SQLite) Exists(ctx context.Context, key model.Key) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE date = ? AND description = ? AND amount = ? AND account = ?`,
		key.Date.String(), key.Description, key.Amount, key.Account,
	).Scan(&n)
	if err != nil {
		return false, storeErr("exists", err)
	}
	return n > 0, nil
}

// Insert stores t and fills in its ID and timestamps. A key collision
// returns an error wrapping ErrDuplicate and leaves the stored row as is.
func (s *SQLite) Insert(ctx context.Context, t *model.Transaction) error {
	raw, err := encodeRaw(t.RawData)
	if err != nil {
		return storeErr("insert", err)
	}
	if t.Category == "" {
		t.Category = model.Uncategorized
	}
	now := s.now()
	key := t.Key()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (date, description, amount, type, account, raw_data, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.Date.String(), key.Description, key.Amount, string(t.Type), key.Account,
		raw, t.Category, formatTime(now), formatTime(now),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	if err != nil {
		return storeErr("insert", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert", err)
	}
	t.ID = rowID
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// Get returns the transaction with the given id.
func (s *SQLite) Get(ctx context.Context, txnID int64) (model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE id = ?`, txnID)
	if err != nil {
		return model.Transaction{}, storeErr("get", err)
	}
	out, err := scanTransactions(rows)
	if err != nil {
		return model.Transaction{}, storeErr("get", err)
	}
	if len(out) == 0 {
		return model.Transaction{}, fmt.Errorf("id %d: %w", txnID, ErrNotFound)
	}
	return out[0], nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	From          civil.Date // inclusive
	To            civil.Date // inclusive
	Account       string
	Category      string
	Type          model.TransactionType
	Uncategorized bool
	Limit         int
}

func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.From.IsValid() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To.IsValid() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.Account != "" {
		clauses = append(clauses, "account = ?")
		args = append(args, f.Account)
	}
	if f.Uncategorized {
		clauses = append(clauses, "category = ?")
		args = append(args, model.Uncategorized)
	} else if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns matching transactions ordered by date then id.
func (s *SQLite) List(ctx context.Context, f Filter) ([]model.Transaction, error) {
	where, args := f.where()
	q := selectColumns + where + ` ORDER BY date, id`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr("list", err)
	}
	out, err := scanTransactions(rows)
	if err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}

// UpdateCategory sets the category of one transaction.
func (s *SQLite) UpdateCategory(ctx context.Context, txnID int64, category string) error {
	if strings.TrimSpace(category) == "" {
		category = model.Uncategorized
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ?, updated_at = ? WHERE id = ?`,
		category, formatTime(s.now()), txnID,
	)
	if err != nil {
		return storeErr("update category", err)
	}
	return requireAffected(res, txnID)
}

// Delete removes one transaction.
func (s *SQLite) Delete(ctx context.Context, txnID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, txnID)
	if err != nil {
		return storeErr("delete", err)
	}
	return requireAffected(res, txnID)
}

// SummaryRow is one (type, category) group of a month.
type SummaryRow struct {
	Type     model.TransactionType
	Category string
	Count    int
	Total    decimal.Decimal
}

// MonthlySummary groups the given month's transactions by type and category.
// Totals are summed in decimal, not by SQLite.
func (s *SQLite) MonthlySummary(ctx context.Context, year, month int) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, category, count, amounts FROM monthly_summary WHERE month = ?`,
		id.FormatMonth(year, month),
	)
	if err != nil {
		return nil, storeErr("monthly summary", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var (
			typ, category, amounts string
			r                      SummaryRow
		)
		if err := rows.Scan(&typ, &category, &r.Count, &amounts); err != nil {
			return nil, storeErr("monthly summary", err)
		}
		r.Type = model.TransactionType(typ)
		r.Category = category
		for _, a := range strings.Split(amounts, ",") {
			d, err := decimal.NewFromString(a)
			if err != nil {
				return nil, storeErr("monthly summary", fmt.Errorf("amount %q: %w", a, err))
			}
			r.Total = r.Total.Add(d)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("monthly summary", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

const selectColumns = `SELECT id, date, description, amount, type, account, raw_data, category, created_at, updated_at FROM transactions`

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		var (
			t                    model.Transaction
			date, amount, typ    string
			raw                  sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &date, &t.Description, &amount, &typ, &t.Account, &raw, &t.Category, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		var err error
		if t.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("row %d date: %w", t.ID, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("row %d amount: %w", t.ID, err)
		}
		t.Type = model.TransactionType(typ)
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &t.RawData); err != nil {
				return nil, fmt.Errorf("row %d raw_data: %w", t.ID, err)
			}
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func encodeRaw(raw model.RawData) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding raw_data: %w", err)
	}
	return string(b), nil
}

func requireAffected(res sql.Result, txnID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("id %d: %w", txnID, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
