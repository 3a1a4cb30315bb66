package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
)

// DepartmentRepository handles the departments table.
type DepartmentRepository struct {
	q sqlx.ExtContext
}

// NewDepartmentRepository creates a new department repository.
func NewDepartmentRepository(q sqlx.ExtContext) *DepartmentRepository {
	return &DepartmentRepository{q: q}
}

// WithTx returns a copy bound to tx.
func (r *DepartmentRepository) WithTx(tx *sqlx.Tx) *DepartmentRepository {
	return &DepartmentRepository{q: tx}
}

func (r *DepartmentRepository) get(ctx context.Context, where string, arg any) (*models.Department, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT department_id, name, type FROM departments WHERE "+where)

	var d models.Department
	if err := sqlx.GetContext(ctx, r.q, &d, query, arg); err != nil {
		return nil, classify(err, "failed to get department")
	}
	return &d, nil
}

// GetByID retrieves a department by id.
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	return r.get(ctx, "department_id = ?", id)
}

// GetByName retrieves a department by its unique name.
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*models.Department, error) {
	return r.get(ctx, "name = ?", name)
}

// Exists reports whether a department with id exists.
func (r *DepartmentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	ok, err := exists(ctx, r.q, "SELECT 1 FROM departments WHERE department_id = ?", id)
	return ok, classify(err, "failed to check department")
}

// NameTaken reports whether name is used by a department other than exceptID.
// Pass 0 to check against every department.
func (r *DepartmentRepository) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	ok, err := exists(ctx, r.q, "SELECT 1 FROM departments WHERE name = ? AND department_id <> ?", name, exceptID)
	return ok, classify(err, "failed to check department name")
}

// List returns every department in insertion order.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT department_id, name, type FROM departments ORDER BY department_id")

	departments := []models.Department{}
	if err := sqlx.SelectContext(ctx, r.q, &departments, query); err != nil {
		return nil, classify(err, "failed to list departments")
	}
	return departments, nil
}

// ListMaintenance returns the departments whose type is one of the
// maintenance spellings, compared case-insensitively.
func (r *DepartmentRepository) ListMaintenance(ctx context.Context) ([]models.Department, error) {
	query := database.ConvertPlaceholders(r.q, `
		SELECT department_id, name, type FROM departments
		WHERE LOWER(type) IN (?, ?)
		ORDER BY department_id`)

	departments := []models.Department{}
	err := sqlx.SelectContext(ctx, r.q, &departments, query, models.MaintenanceTypes[0], models.MaintenanceTypes[1])
	if err != nil {
		return nil, classify(err, "failed to list maintenance departments")
	}
	return departments, nil
}

// Create inserts a department and returns its id.
func (r *DepartmentRepository) Create(ctx context.Context, name, typ string) (int64, error) {
	id, err := database.InsertID(ctx, r.q, "INSERT INTO departments (name, type) VALUES (?, ?)", "department_id", name, typ)
	if err != nil {
		return 0, classify(err, "failed to create department")
	}
	return id, nil
}

func departmentAssignments(p models.DepartmentPatch) []database.Assignment {
	var set []database.Assignment
	if p.Name != nil {
		set = append(set, database.Assignment{Column: "name", Value: *p.Name})
	}
	if p.Type != nil {
		set = append(set, database.Assignment{Column: "type", Value: *p.Type})
	}
	return set
}

// Update applies the present fields of patch. It reports whether the
// department exists.
func (r *DepartmentRepository) Update(ctx context.Context, id int64, patch models.DepartmentPatch) (bool, error) {
	set := departmentAssignments(patch)
	if len(set) == 0 {
		return r.Exists(ctx, id)
	}
	query, args := database.BuildUpdateQuery("departments", set, "department_id = ?", id)
	res, err := r.q.ExecContext(ctx, database.ConvertPlaceholders(r.q, query), args...)
	if err != nil {
		return false, classify(err, "failed to update department")
	}
	ok, err := affected(res)
	if err != nil || ok {
		return ok, err
	}
	// MySQL reports zero affected rows when the values did not change.
	return r.Exists(ctx, id)
}

// Delete removes a department. References from users, issues and licenses
// are left in place. It reports whether a row was deleted.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := database.ConvertPlaceholders(r.q, "DELETE FROM departments WHERE department_id = ?")
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return false, classify(err, "failed to delete department")
	}
	return affected(res)
}
