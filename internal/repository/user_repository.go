package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
)

const userColumns = "id, full_name, email, phone_number, password, department_id, is_admin, created_at"

// UserRepository handles the users table.
type UserRepository struct {
	q sqlx.ExtContext
}

// NewUserRepository creates a new user repository.
func NewUserRepository(q sqlx.ExtContext) *UserRepository {
	return &UserRepository{q: q}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *sqlx.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by login id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT "+userColumns+" FROM users WHERE id = ?")

	var u models.User
	if err := sqlx.GetContext(ctx, r.q, &u, query, id); err != nil {
		return nil, classify(err, "failed to get user")
	}
	return &u, nil
}

// FindByIDOrEmail returns every user whose id or email collides with the
// given values.
func (r *UserRepository) FindByIDOrEmail(ctx context.Context, id, email string) ([]models.User, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT "+userColumns+" FROM users WHERE id = ? OR email = ?")

	var users []models.User
	if err := sqlx.SelectContext(ctx, r.q, &users, query, id, email); err != nil {
		return nil, classify(err, "failed to look up users")
	}
	return users, nil
}

// EmailTaken reports whether another user already owns email.
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	ok, err := exists(ctx, r.q, "SELECT 1 FROM users WHERE email = ? AND id <> ?", email, exceptID)
	return ok, classify(err, "failed to check email")
}

// ListByDepartment returns the members of a department.
func (r *UserRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]models.User, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT "+userColumns+" FROM users WHERE department_id = ?")

	var users []models.User
	if err := sqlx.SelectContext(ctx, r.q, &users, query, departmentID); err != nil {
		return nil, classify(err, "failed to list department members")
	}
	return users, nil
}

// List returns all users with their department names, newest first.
func (r *UserRepository) List(ctx context.Context) ([]models.UserListing, error) {
	query := `
		SELECT u.id, u.full_name, u.email, u.phone_number,
		       u.is_admin, u.created_at, d.name AS department_name
		FROM users u
		LEFT JOIN departments d ON u.department_id = d.department_id
		ORDER BY u.created_at DESC`

	users := []models.UserListing{}
	if err := sqlx.SelectContext(ctx, r.q, &users, database.ConvertPlaceholders(r.q, query)); err != nil {
		return nil, classify(err, "failed to list users")
	}
	return users, nil
}

// Create inserts a user. The password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	query := database.ConvertPlaceholders(r.q, `
		INSERT INTO users (id, full_name, email, phone_number, password, department_id, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.q.ExecContext(ctx, query,
		u.ID, u.FullName, u.Email, u.PhoneNumber, u.Password, u.DepartmentID, u.IsAdmin, u.CreatedAt)
	return classify(err, "failed to create user")
}

func userAssignments(p models.UserPatch) []database.Assignment {
	var set []database.Assignment
	if p.FullName != nil {
		set = append(set, database.Assignment{Column: "full_name", Value: *p.FullName})
	}
	if p.Email != nil {
		set = append(set, database.Assignment{Column: "email", Value: *p.Email})
	}
	if p.PhoneNumber != nil {
		set = append(set, database.Assignment{Column: "phone_number", Value: *p.PhoneNumber})
	}
	switch {
	case p.ClearDepartment:
		set = append(set, database.Assignment{Column: "department_id", Value: nil})
	case p.DepartmentID != nil:
		set = append(set, database.Assignment{Column: "department_id", Value: *p.DepartmentID})
	}
	if p.IsAdmin != nil {
		set = append(set, database.Assignment{Column: "is_admin", Value: *p.IsAdmin})
	}
	return set
}

// Update applies the present fields of patch.
func (r *UserRepository) Update(ctx context.Context, id string, patch models.UserPatch) error {
	set := userAssignments(patch)
	if len(set) == 0 {
		return nil
	}
	query, args := database.BuildUpdateQuery("users", set, "id = ?", id)
	_, err := r.q.ExecContext(ctx, database.ConvertPlaceholders(r.q, query), args...)
	return classify(err, "failed to update user")
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	query := database.ConvertPlaceholders(r.q, "UPDATE users SET password = ? WHERE id = ?")
	_, err := r.q.ExecContext(ctx, query, hash, id)
	return classify(err, "failed to update password")
}

// Delete removes a user. It reports whether a row was deleted.
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := database.ConvertPlaceholders(r.q, "DELETE FROM users WHERE id = ?")
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return false, classify(err, "failed to delete user")
	}
	return affected(res)
}

// SetRefreshDigest stores the digest of the user's current refresh token.
// A nil digest clears it.
func (r *UserRepository) SetRefreshDigest(ctx context.Context, id string, digest *string) error {
	query := database.ConvertPlaceholders(r.q, "UPDATE users SET refresh_token = ? WHERE id = ?")
	_, err := r.q.ExecContext(ctx, query, digest, id)
	return classify(err, "failed to store refresh token")
}

// RefreshDigest returns the stored refresh token digest, or ErrNotFound when
// the user is unknown or has none.
func (r *UserRepository) RefreshDigest(ctx context.Context, id string) (string, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT refresh_token FROM users WHERE id = ?")

	var digest *string
	if err := sqlx.GetContext(ctx, r.q, &digest, query, id); err != nil {
		return "", classify(err, "failed to read refresh token")
	}
	if digest == nil || *digest == "" {
		return "", ErrNotFound
	}
	return *digest, nil
}
