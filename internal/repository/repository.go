// Package repository holds the sqlx data access for each table. Every
// repository can be rebound to a transaction with WithTx so services can run
// check-then-write sequences atomically.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/issueflow/internal/database"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update hits a unique key.
var ErrDuplicate = errors.New("duplicate record")

func exists(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (bool, error) {
	var one int
	err := sqlx.GetContext(ctx, q, &one, database.ConvertPlaceholders(q, query), args...)
	if database.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// classify maps driver errors onto the package sentinels.
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func affected(res interface{ RowsAffected() (int64, error) }) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
