package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InsertID executes an INSERT and returns the generated key. PostgreSQL
// drivers do not implement LastInsertId, so a RETURNING clause is appended
// for that dialect.
func InsertID(ctx context.Context, q sqlx.ExtContext, query, idColumn string, args ...any) (int64, error) {
	if DialectFor(q.DriverName()) == Postgres {
		var id int64
		row := q.QueryRowxContext(ctx, ConvertPlaceholders(q, query+" RETURNING "+idColumn), args...)
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := q.ExecContext(ctx, ConvertPlaceholders(q, query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
