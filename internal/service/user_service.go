package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/repository"
)

// CreatedUser is the admin create-user response body.
type CreatedUser struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"isAdmin"`
	Department *int64 `json:"department"`
}

// UserService implements the administrator user management operations.
type UserService struct {
	db          *database.DB
	users       *repository.UserRepository
	departments *repository.DepartmentRepository
	opts        Options
	log         zerolog.Logger
}

func NewUserService(db *database.DB, opts Options, log zerolog.Logger) *UserService {
	return &UserService{
		db:          db,
		users:       repository.NewUserRepository(db),
		departments: repository.NewDepartmentRepository(db),
		opts:        opts,
		log:         log.With().Str("service", "users").Logger(),
	}
}

// validPhone accepts 10 to 15 digits once formatting characters are removed.
func validPhone(phone string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return validate.Var(digits, "numeric,min=10,max=15") == nil
}

func validateNewUser(in models.NewUser) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.Internal(err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return apierrors.BadRequest("All required fields must be provided")
		}
	}
	return apierrors.BadRequest("Please provide a valid email address")
}

// normalizeUserID folds a user id to its stored form.
func normalizeUserID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Create registers a user. Non-admin users must belong to an existing
// department.
func (s *UserService) Create(ctx context.Context, in models.NewUser) (*CreatedUser, error) {
	in.Username = normalizeUserID(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if strings.TrimSpace(in.Password) == "" {
		in.Password = ""
	}

	if err := validateNewUser(in); err != nil {
		return nil, err
	}
	if in.PhoneNumber != "" && !validPhone(in.PhoneNumber) {
		return nil, apierrors.BadRequest("Please provide a valid phone number")
	}
	if err := s.opts.PasswordPolicy.Validate(in.Password); err != nil {
		return nil, policyError(err)
	}
	if !in.IsAdmin && in.Department == nil {
		return nil, apierrors.BadRequest("Department is required for non-admin users")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apierrors.Internal(err)
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)
		existing, err := users.FindByIDOrEmail(ctx, in.Username, in.Email)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			switch {
			case existing[0].ID == in.Username:
				return apierrors.Conflict("Username already exists")
			case strings.EqualFold(existing[0].Email, in.Email):
				return apierrors.Conflict("Email already exists")
			default:
				return apierrors.Conflict("User with email or username already exists")
			}
		}

		if in.Department != nil {
			ok, err := s.departments.WithTx(tx).Exists(ctx, *in.Department)
			if err != nil {
				return err
			}
			if !ok {
				return apierrors.NotFound("Department not found")
			}
		}

		err = users.Create(ctx, &models.User{
			ID:           in.Username,
			FullName:     in.FullName,
			Email:        in.Email,
			PhoneNumber:  in.PhoneNumber,
			Password:     hash,
			DepartmentID: in.Department,
			IsAdmin:      in.IsAdmin,
			CreatedAt:    s.opts.now(),
		})
		if isDuplicate(err) {
			return apierrors.Conflict("User with email or username already exists")
		}
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.Info().Str("user_id", in.Username).Bool("is_admin", in.IsAdmin).Msg("user created")
	return &CreatedUser{
		Username:   in.Username,
		Email:      in.Email,
		IsAdmin:    in.IsAdmin,
		Department: in.Department,
	}, nil
}

// List returns every user, newest first.
func (s *UserService) List(ctx context.Context) ([]models.UserListing, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(users, s.opts, "No users found")
}

// Update applies an admin edit. Promoting a user to admin without naming a
// department clears it; demoting an admin requires one.
func (s *UserService) Update(ctx context.Context, id string, in models.UserUpdate) error {
	id = normalizeUserID(id)
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)
		current, err := users.GetByID(ctx, id)
		if isNotFound(err) {
			return apierrors.NotFound("User not found")
		}
		if err != nil {
			return err
		}

		toAdmin := in.IsAdmin != nil && *in.IsAdmin && !current.IsAdmin
		fromAdmin := in.IsAdmin != nil && !*in.IsAdmin && current.IsAdmin

		var patch models.UserPatch
		department := strings.TrimSpace(in.Department)
		switch {
		case department != "":
			dept, err := s.departments.WithTx(tx).GetByName(ctx, department)
			if isNotFound(err) {
				return apierrors.NotFound("Department not found")
			}
			if err != nil {
				return err
			}
			patch.DepartmentID = &dept.ID
		case toAdmin:
			patch.ClearDepartment = true
		case fromAdmin:
			return apierrors.BadRequest("Department is required when changing from admin to regular user")
		}

		if v := strings.TrimSpace(in.FullName); v != "" {
			patch.FullName = &v
		}
		if v := strings.TrimSpace(in.Email); v != "" {
			if validate.Var(v, "email") != nil {
				return apierrors.BadRequest("Please provide a valid email address")
			}
			taken, err := users.EmailTaken(ctx, v, id)
			if err != nil {
				return err
			}
			if taken {
				return apierrors.Conflict("Email already exists")
			}
			patch.Email = &v
		}
		if v := strings.TrimSpace(in.PhoneNumber); v != "" {
			if !validPhone(v) {
				return apierrors.BadRequest("Please provide a valid phone number")
			}
			patch.PhoneNumber = &v
		}
		patch.IsAdmin = in.IsAdmin

		if patch.Empty() {
			return apierrors.BadRequest("No fields provided for update")
		}
		err = users.Update(ctx, id, patch)
		if isDuplicate(err) {
			return apierrors.Conflict("Email already exists")
		}
		return err
	})
	return storeError(err)
}

// Delete removes a user. Administrators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actingID, id string) error {
	actingID, id = normalizeUserID(actingID), normalizeUserID(id)
	if actingID == id {
		return apierrors.Forbidden("Administrators cannot delete their own accounts")
	}
	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		return apierrors.Internal(err)
	}
	if !ok {
		return apierrors.NotFound("User not found")
	}
	s.log.Info().Str("user_id", id).Str("by", actingID).Msg("user deleted")
	return nil
}

// ResetPassword sets a new password for any user.
func (s *UserService) ResetPassword(ctx context.Context, id, newPassword string) error {
	id = normalizeUserID(id)
	if id == "" || newPassword == "" {
		return apierrors.BadRequest("User ID and new password are required")
	}
	if err := s.opts.PasswordPolicy.Validate(newPassword); err != nil {
		return policyError(err)
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		if isNotFound(err) {
			return apierrors.NotFound("User not found")
		}
		return apierrors.Internal(err)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apierrors.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return apierrors.Internal(err)
	}
	return nil
}
