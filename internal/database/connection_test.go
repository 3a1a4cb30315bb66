package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/issueflow/internal/config"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return New(sqlx.NewDb(mockDB, "mysql")), mock
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO departments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(context.Background(), "INSERT INTO departments (name, type) VALUES (?, ?)", "Electrical", "Maintenance")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("department vanished")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFails(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.False(t, called)
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(config.DatabaseConfig{Driver: "mysql", Host: "db", User: "app", Password: "pw", Name: "issues"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "app:pw@tcp(db:3306)/issues")
	assert.Contains(t, dsn, "parseTime=true")

	dsn, err = DSN(config.DatabaseConfig{Driver: "pgx", Host: "db", User: "app", Password: "pw", Name: "issues"})
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=issues sslmode=disable", dsn)

	dsn, err = DSN(config.DatabaseConfig{Driver: "sqlite3", Name: "/tmp/issueflow.db"})
	require.NoError(t, err)
	assert.Equal(t, "file:/tmp/issueflow.db?_foreign_keys=on&_busy_timeout=5000", dsn)

	dsn, err = DSN(config.DatabaseConfig{Driver: "mysql", DSN: "explicit"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", dsn)

	_, err = DSN(config.DatabaseConfig{Driver: "sqlite3"})
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob' for key 'PRIMARY'"}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1146}))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestSchemaStatements(t *testing.T) {
	for _, d := range []Dialect{MySQL, Postgres, SQLite} {
		stmts := SchemaStatements(d)
		require.Len(t, stmts, 5)
		for _, s := range stmts {
			assert.NotContains(t, s, "{{")
		}
	}
	assert.Contains(t, SchemaStatements(Postgres)[4], "BYTEA")
	assert.Contains(t, SchemaStatements(MySQL)[0], "AUTO_INCREMENT")
}

func TestMigrate(t *testing.T) {
	db, mock := newMockDB(t)
	for range SchemaStatements(MySQL) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
