package model

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/expense-tracker/internal/id"
)

// Key identifies a transaction for deduplication.
// Category and RawData are not part of it.
type Key struct {
	Date        civil.Date
	Description string
	Amount      string // FormatAmount output
	Account     string
}

// Key returns the dedup key of t.
func (t Transaction) Key() Key {
	return Key{
		Date:        t.Date,
		Description: t.Description,
		Amount:      FormatAmount(t.Amount),
		Account:     t.Account,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Date, k.Account, k.Amount, k.Description)
}

// Fingerprint returns a stable hash of the key.
func (k Key) Fingerprint() string {
	return id.Fingerprint(k.Date.String(), k.Account, k.Amount, k.Description)
}
