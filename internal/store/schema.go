package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the index plus one is the schema version.
var migrations = [][]string{
	{
		`CREATE TABLE transactions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			date        TEXT NOT NULL,
			description TEXT NOT NULL,
			amount      TEXT NOT NULL,
			type        TEXT NOT NULL CHECK (type IN ('Debit', 'Credit')),
			account     TEXT NOT NULL,
			raw_data    TEXT,
			category    TEXT NOT NULL DEFAULT 'Uncategorized',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			UNIQUE (date, description, amount, account)
		)`,
		`CREATE INDEX idx_transactions_date ON transactions (date)`,
		`CREATE INDEX idx_transactions_category ON transactions (category)`,
		`CREATE VIEW monthly_summary AS
			SELECT strftime('%Y-%m', date) AS month,
			       type,
			       category,
			       COUNT(*) AS count,
			       group_concat(amount, ',') AS amounts
			FROM transactions
			GROUP BY month, type, category`,
	},
}

// SchemaVersion is the version Open migrates to.
var SchemaVersion = len(migrations)

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}
	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", v+1, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, v+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}
