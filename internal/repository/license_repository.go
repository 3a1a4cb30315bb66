package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
)

const licenseSummarySelect = `
	SELECT l.id, l.file_name, l.file_type, l.department_id, d.name AS department_name, l.expiry_date
	FROM licenses l
	LEFT JOIN departments d ON l.department_id = d.department_id`

// LicenseRepository handles the licenses table.
type LicenseRepository struct {
	q sqlx.ExtContext
}

// NewLicenseRepository creates a new license repository.
func NewLicenseRepository(q sqlx.ExtContext) *LicenseRepository {
	return &LicenseRepository{q: q}
}

// WithTx returns a copy bound to tx.
func (r *LicenseRepository) WithTx(tx *sqlx.Tx) *LicenseRepository {
	return &LicenseRepository{q: tx}
}

// Create stores a license document inline and returns its id.
func (r *LicenseRepository) Create(ctx context.Context, l models.NewLicense) (int64, error) {
	id, err := database.InsertID(ctx, r.q, `
		INSERT INTO licenses (file_name, file_data, file_type, expiry_date, department_id)
		VALUES (?, ?, ?, ?, ?)`, "id",
		l.Document.Name, l.Document.Data, l.Document.Type, l.ExpiryDate.String(), l.DepartmentID)
	if err != nil {
		return 0, classify(err, "failed to create license")
	}
	return id, nil
}

// List returns license metadata ordered by expiry date.
func (r *LicenseRepository) List(ctx context.Context) ([]models.LicenseSummary, error) {
	query := database.ConvertPlaceholders(r.q, licenseSummarySelect+" ORDER BY l.expiry_date, l.id")

	licenses := []models.LicenseSummary{}
	if err := sqlx.SelectContext(ctx, r.q, &licenses, query); err != nil {
		return nil, classify(err, "failed to list licenses")
	}
	return licenses, nil
}

// ListExpiring returns licenses expiring on or before horizon.
func (r *LicenseRepository) ListExpiring(ctx context.Context, horizon models.Date) ([]models.LicenseSummary, error) {
	query := database.ConvertPlaceholders(r.q, licenseSummarySelect+" WHERE l.expiry_date <= ? ORDER BY l.expiry_date, l.id")

	licenses := []models.LicenseSummary{}
	if err := sqlx.SelectContext(ctx, r.q, &licenses, query, horizon.String()); err != nil {
		return nil, classify(err, "failed to list expiring licenses")
	}
	return licenses, nil
}

// GetFile returns the stored document.
func (r *LicenseRepository) GetFile(ctx context.Context, id int64) (*models.LicenseFile, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT file_name, file_type, file_data FROM licenses WHERE id = ?")

	var file models.LicenseFile
	if err := sqlx.GetContext(ctx, r.q, &file, query, id); err != nil {
		return nil, classify(err, "failed to get license")
	}
	return &file, nil
}

// Exists reports whether a license with id exists.
func (r *LicenseRepository) Exists(ctx context.Context, id int64) (bool, error) {
	ok, err := exists(ctx, r.q, "SELECT 1 FROM licenses WHERE id = ?", id)
	return ok, classify(err, "failed to check license")
}

func licenseAssignments(p models.LicensePatch) []database.Assignment {
	var set []database.Assignment
	if p.ExpiryDate != nil {
		set = append(set, database.Assignment{Column: "expiry_date", Value: p.ExpiryDate.String()})
	}
	if p.DepartmentID != nil {
		set = append(set, database.Assignment{Column: "department_id", Value: *p.DepartmentID})
	}
	if p.Document != nil {
		set = append(set,
			database.Assignment{Column: "file_name", Value: p.Document.Name},
			database.Assignment{Column: "file_data", Value: p.Document.Data},
			database.Assignment{Column: "file_type", Value: p.Document.Type},
		)
	}
	return set
}

// Update applies the present fields of patch.
func (r *LicenseRepository) Update(ctx context.Context, id int64, patch models.LicensePatch) error {
	set := licenseAssignments(patch)
	if len(set) == 0 {
		return nil
	}
	query, args := database.BuildUpdateQuery("licenses", set, "id = ?", id)
	_, err := r.q.ExecContext(ctx, database.ConvertPlaceholders(r.q, query), args...)
	return classify(err, "failed to update license")
}

// Delete removes a license. It reports whether a row was deleted.
func (r *LicenseRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := database.ConvertPlaceholders(r.q, "DELETE FROM licenses WHERE id = ?")
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return false, classify(err, "failed to delete license")
	}
	return affected(res)
}
