package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/notifications"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})
	return database.New(sqlx.NewDb(mockDB, "mysql")), mock
}

func testOptions() Options {
	return Options{
		ExpiryHorizonDays: DefaultExpiryHorizonDays,
		PasswordPolicy:    auth.DefaultPasswordPolicy(),
		Now:               func() time.Time { return fixedNow },
	}
}

var userCols = []string{"id", "full_name", "email", "phone_number", "password", "department_id", "is_admin", "created_at"}

var issueCols = []string{"id", "issue", "description", "address", "require_department_id", "user_id", "complete", "acknowledge_at", "created_at", "updated_at"}

func ptr[T any](v T) *T { return &v }

type fakeNotifier struct {
	mu       sync.Mutex
	assigned []notifications.Recipient
	resolved []*models.IssueDetail
	expiring map[int64][]string
	failFor  map[int64]bool
}

func (n *fakeNotifier) IssueAssigned(_ context.Context, _ *models.Issue, members []notifications.Recipient) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, members...)
	return len(members)
}

func (n *fakeNotifier) IssueResolved(_ context.Context, issue *models.IssueDetail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, issue)
	return nil
}

func (n *fakeNotifier) LicensesExpiring(_ context.Context, group models.ExpiringGroup, recipients []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[group.DepartmentID] {
		return context.DeadlineExceeded
	}
	if n.expiring == nil {
		n.expiring = map[int64][]string{}
	}
	n.expiring[group.DepartmentID] = recipients
	return nil
}

var nopLog = zerolog.Nop()
