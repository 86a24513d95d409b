package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned by Insert when the dedup key already exists.
	ErrDuplicate = errors.New("duplicate transaction")
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("transaction not found")
)

// StoreError wraps a persistence failure other than a duplicate.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
