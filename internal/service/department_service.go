package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/repository"
)

func errDepartmentNotFound() error { return apierrors.NotFound("Department not found") }

// DepartmentService manages the department registry.
type DepartmentService struct {
	db          *database.DB
	departments *repository.DepartmentRepository
	opts        Options
	log         zerolog.Logger
}

func NewDepartmentService(db *database.DB, opts Options, log zerolog.Logger) *DepartmentService {
	return &DepartmentService{
		db:          db,
		departments: repository.NewDepartmentRepository(db),
		opts:        opts,
		log:         log.With().Str("service", "departments").Logger(),
	}
}

// Create adds a department with a unique name.
func (s *DepartmentService) Create(ctx context.Context, name, typ string) (*models.Department, error) {
	name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
	if name == "" || typ == "" {
		return nil, apierrors.BadRequest("Name and Type are required")
	}

	dept := &models.Department{Name: name, Type: typ}
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		departments := s.departments.WithTx(tx)
		taken, err := departments.NameTaken(ctx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return apierrors.Conflict("Department with this name already exists")
		}
		dept.ID, err = departments.Create(ctx, name, typ)
		if isDuplicate(err) {
			return apierrors.Conflict("Department with this name already exists")
		}
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info().Int64("department_id", dept.ID).Str("name", name).Msg("department created")
	return dept, nil
}

// Delete removes a department. Users, issues and licenses that reference it
// keep the dangling id.
func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	ok, err := s.departments.Delete(ctx, id)
	if err != nil {
		return apierrors.Internal(err)
	}
	if !ok {
		return errDepartmentNotFound()
	}
	return nil
}

// UpdateType changes only the department type.
func (s *DepartmentService) UpdateType(ctx context.Context, id int64, typ string) (*models.Department, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, apierrors.BadRequest("Type is required")
	}
	return s.Update(ctx, id, models.DepartmentPatch{Type: &typ})
}

// Update renames and/or retypes a department.
func (s *DepartmentService) Update(ctx context.Context, id int64, patch models.DepartmentPatch) (*models.Department, error) {
	patch.Name = trimmedOrNil(patch.Name)
	patch.Type = trimmedOrNil(patch.Type)
	if patch.Empty() {
		return nil, apierrors.BadRequest("At least one field (name or type) is required for update")
	}

	var dept *models.Department
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		departments := s.departments.WithTx(tx)
		if patch.Name != nil {
			taken, err := departments.NameTaken(ctx, *patch.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return apierrors.Conflict("Department name already exists")
			}
		}
		ok, err := departments.Update(ctx, id, patch)
		if isDuplicate(err) {
			return apierrors.Conflict("Department name already exists")
		}
		if err != nil {
			return err
		}
		if !ok {
			return errDepartmentNotFound()
		}
		dept, err = departments.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}
	return dept, nil
}

// List returns every department.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	departments, err := s.departments.List(ctx)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(departments, s.opts, "No departments found")
}

// ListMaintenance returns the departments issues can be routed to.
func (s *DepartmentService) ListMaintenance(ctx context.Context) ([]models.Department, error) {
	departments, err := s.departments.ListMaintenance(ctx)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(departments, s.opts, "Department not found")
}

// TypeByName looks up a department by its name.
func (s *DepartmentService) TypeByName(ctx context.Context, name string) (*models.Department, error) {
	dept, err := s.departments.GetByName(ctx, strings.TrimSpace(name))
	if isNotFound(err) {
		return nil, errDepartmentNotFound()
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return dept, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
