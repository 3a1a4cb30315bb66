package database

import (
	"context"
	"fmt"
	"strings"
)

// column types that differ between dialects
type typeSet struct {
	autoID    string
	blob      string
	boolean   string
	timestamp string
}

var dialectTypes = map[Dialect]typeSet{
	MySQL: {
		autoID:    "INT AUTO_INCREMENT PRIMARY KEY",
		blob:      "LONGBLOB",
		boolean:   "BOOLEAN",
		timestamp: "DATETIME",
	},
	Postgres: {
		autoID:    "SERIAL PRIMARY KEY",
		blob:      "BYTEA",
		boolean:   "BOOLEAN",
		timestamp: "TIMESTAMP",
	},
	SQLite: {
		autoID:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		blob:      "BLOB",
		boolean:   "BOOLEAN",
		timestamp: "DATETIME",
	},
}

// schema is written with {{autoid}}-style markers replaced per dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		department_id {{autoid}},
		name VARCHAR(100) NOT NULL UNIQUE,
		type VARCHAR(100) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(100) NOT NULL PRIMARY KEY,
		full_name VARCHAR(200) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		phone_number VARCHAR(20) NOT NULL DEFAULT '',
		password VARCHAR(255) NOT NULL,
		department_id INTEGER NULL,
		is_admin {{bool}} NOT NULL DEFAULT FALSE,
		refresh_token VARCHAR(128) NULL,
		created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS issues (
		id {{autoid}},
		issue VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		address VARCHAR(255) NOT NULL,
		require_department_id INTEGER NOT NULL,
		user_id VARCHAR(100) NULL,
		complete {{bool}} NOT NULL DEFAULT FALSE,
		acknowledge_at {{timestamp}} NULL,
		created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		id {{autoid}},
		issue_id INTEGER NOT NULL UNIQUE,
		description TEXT NOT NULL,
		requirements TEXT NOT NULL,
		action_taken TEXT NOT NULL,
		complete {{bool}} NOT NULL DEFAULT FALSE,
		acknowledge_at {{timestamp}} NULL,
		created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS licenses (
		id {{autoid}},
		file_name VARCHAR(255) NOT NULL,
		file_data {{blob}} NOT NULL,
		file_type VARCHAR(100) NOT NULL,
		expiry_date DATE NOT NULL,
		department_id INTEGER NOT NULL,
		created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SchemaStatements returns the CREATE TABLE statements for dialect.
// Department references carry no foreign keys: department deletion is
// unguarded and leaves users, issues and licenses pointing at a missing row.
func SchemaStatements(d Dialect) []string {
	types, ok := dialectTypes[d]
	if !ok {
		types = dialectTypes[MySQL]
	}
	r := strings.NewReplacer(
		"{{autoid}}", types.autoID,
		"{{blob}}", types.blob,
		"{{bool}}", types.boolean,
		"{{timestamp}}", types.timestamp,
	)

	stmts := make([]string, len(schema))
	for i, s := range schema {
		stmts[i] = r.Replace(s)
	}
	return stmts
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range SchemaStatements(db.Dialect()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
