package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/issueflow/internal/models"
)

func TestDepartmentRepository_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO departments (name, type) VALUES (?, ?)")).
		WithArgs("Electrical", "Maintenance").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id, name, type FROM departments WHERE name = ?")).
		WithArgs("Electrical").
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "type"}).AddRow(4, "Electrical", "Maintenance"))

	id, err := repo.Create(context.Background(), "Electrical", "Maintenance")
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	d, err := repo.GetByName(context.Background(), "Electrical")
	require.NoError(t, err)
	assert.Equal(t, models.Department{ID: 4, Name: "Electrical", Type: "Maintenance"}, *d)
}

func TestDepartmentRepository_ListMaintenance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(type) IN (?, ?)")).
		WithArgs("maintenance", "maintainance").
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "type"}).
			AddRow(1, "Electrical", "Maintenance").
			AddRow(2, "Plumbing", "Maintainance"))

	departments, err := repo.ListMaintenance(context.Background())
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "Plumbing", departments[1].Name)
}

func TestDepartmentRepository_List_Empty(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT department_id, name, type FROM departments").
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "type"}))

	departments, err := NewDepartmentRepository(db).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, departments)
	assert.Empty(t, departments)
}

func TestDepartmentRepository_NameTaken(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM departments WHERE name = ? AND department_id <> ?")).
		WithArgs("Electrical", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	taken, err := NewDepartmentRepository(db).NameTaken(context.Background(), "Electrical", 7)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestDepartmentRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE departments SET name = ?, type = ? WHERE department_id = ?")).
		WithArgs("Power", "Maintenance", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Update(context.Background(), 2, models.DepartmentPatch{Name: ptr("Power"), Type: ptr("Maintenance")})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDepartmentRepository_Update_UnchangedRowStillExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE departments SET type = ? WHERE department_id = ?")).
		WithArgs("Maintenance", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM departments WHERE department_id = ?")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	ok, err := repo.Update(context.Background(), 2, models.DepartmentPatch{Type: ptr("Maintenance")})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDepartmentRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments WHERE department_id = ?")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewDepartmentRepository(db).Delete(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}
