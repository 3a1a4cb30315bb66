package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "postgres", "pgx", "postgresql":
		return Postgres
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return MySQL
	}
}

var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// driverNamer is satisfied by *sqlx.DB, *sqlx.Tx and *DB.
type driverNamer interface {
	DriverName() string
}

// ConvertPlaceholders converts SQL placeholders to the format required by the
// connection's driver. Every query in the codebase is written with ?
// placeholders and passed through here before execution.
//
// $N placeholders panic: queries must stay portable across dialects.
// ILIKE is rewritten to LIKE for MySQL and SQLite, whose LIKE is already
// case-insensitive for ASCII.
func ConvertPlaceholders(q driverNamer, query string) string {
	if dollarPlaceholder.MatchString(query) {
		panic(fmt.Sprintf("ConvertPlaceholders: $N placeholders are not allowed. Use ? placeholders instead.\nQuery: %s", query))
	}

	query = sqlx.Rebind(sqlx.BindType(q.DriverName()), query)

	if DialectFor(q.DriverName()) != Postgres {
		query = strings.ReplaceAll(query, " ILIKE ", " LIKE ")
		query = strings.ReplaceAll(query, " ilike ", " LIKE ")
	}
	return query
}

// Assignment is one column = value pair of an UPDATE statement.
type Assignment struct {
	Column string
	Value  any
}

// BuildUpdateQuery builds an UPDATE query for the given assignments.
// Returns a query with ? placeholders and the matching argument list with
// whereArgs appended; the caller must still use ConvertPlaceholders.
func BuildUpdateQuery(table string, set []Assignment, whereClause string, whereArgs ...any) (string, []any) {
	setClauses := make([]string, len(set))
	args := make([]any, 0, len(set)+len(whereArgs))

	for i, a := range set {
		setClauses[i] = a.Column + " = ?"
		args = append(args, a.Value)
	}

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(setClauses, ", "))
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	return query, append(args, whereArgs...)
}
