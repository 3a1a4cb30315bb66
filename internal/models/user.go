// Package models defines the persisted entities and the patch types used to
// update them.
package models

import "time"

// User is an employee account. ID doubles as the login username.
type User struct {
	ID           string    `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	Password     string    `json:"-" db:"password"` // bcrypt hash
	DepartmentID *int64    `json:"department_id" db:"department_id"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Summary returns the login view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Department:  u.DepartmentID,
		IsAdmin:     u.IsAdmin,
	}
}

// UserSummary is returned by login.
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Department  *int64 `json:"department"`
	IsAdmin     bool   `json:"is_admin"`
}

// UserListing is one row of the admin user list.
type UserListing struct {
	ID             string    `json:"id" db:"id"`
	FullName       string    `json:"full_name" db:"full_name"`
	Email          string    `json:"email" db:"email"`
	PhoneNumber    string    `json:"phone_number" db:"phone_number"`
	IsAdmin        bool      `json:"is_admin" db:"is_admin"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	DepartmentName *string   `json:"department_name" db:"department_name"`
}

// NewUser is the admin create-user input.
type NewUser struct {
	Username    string `json:"username" validate:"required"`
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Department  *int64 `json:"department"`
	IsAdmin     bool   `json:"isAdmin"`
}

// UserUpdate is the admin update-user input. Department is a department name.
type UserUpdate struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Department  string `json:"department"`
	IsAdmin     *bool  `json:"isAdmin"`
}

// UserPatch lists the updatable user columns. Nil fields are left unchanged;
// ClearDepartment writes NULL.
type UserPatch struct {
	FullName        *string
	Email           *string
	PhoneNumber     *string
	DepartmentID    *int64
	ClearDepartment bool
	IsAdmin         *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.PhoneNumber == nil &&
		p.DepartmentID == nil && !p.ClearDepartment && p.IsAdmin == nil
}
