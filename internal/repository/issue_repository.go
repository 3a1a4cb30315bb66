package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
)

const issueColumns = "id, issue, description, address, require_department_id, user_id, complete, acknowledge_at, created_at, updated_at"

// IssueRepository handles the issues table.
type IssueRepository struct {
	q sqlx.ExtContext
}

// NewIssueRepository creates a new issue repository.
func NewIssueRepository(q sqlx.ExtContext) *IssueRepository {
	return &IssueRepository{q: q}
}

// WithTx returns a copy bound to tx.
func (r *IssueRepository) WithTx(tx *sqlx.Tx) *IssueRepository {
	return &IssueRepository{q: tx}
}

// Create inserts an open issue and returns its id.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) (int64, error) {
	id, err := database.InsertID(ctx, r.q, `
		INSERT INTO issues (issue, description, address, require_department_id, user_id, complete, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "id",
		issue.Issue, issue.Description, issue.Address, issue.RequireDepartmentID, issue.UserID,
		false, issue.CreatedAt, issue.CreatedAt)
	if err != nil {
		return 0, classify(err, "failed to create issue")
	}
	return id, nil
}

// GetByID retrieves an issue.
func (r *IssueRepository) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT "+issueColumns+" FROM issues WHERE id = ?")

	var issue models.Issue
	if err := sqlx.GetContext(ctx, r.q, &issue, query, id); err != nil {
		return nil, classify(err, "failed to get issue")
	}
	return &issue, nil
}

// GetDetail retrieves an issue joined with its reporter and department.
func (r *IssueRepository) GetDetail(ctx context.Context, id int64) (*models.IssueDetail, error) {
	query := database.ConvertPlaceholders(r.q, `
		SELECT i.id, i.issue, i.description, i.address, i.require_department_id, i.user_id,
		       i.complete, i.acknowledge_at, i.created_at, i.updated_at,
		       u.email AS user_email, u.full_name AS user_full_name, u.id AS user_id_login,
		       d.name AS department_name
		FROM issues i
		LEFT JOIN users u ON i.user_id = u.id
		LEFT JOIN departments d ON i.require_department_id = d.department_id
		WHERE i.id = ?`)

	var detail models.IssueDetail
	if err := sqlx.GetContext(ctx, r.q, &detail, query, id); err != nil {
		return nil, classify(err, "failed to get issue detail")
	}
	return &detail, nil
}

// ListOpenForDepartment returns incomplete issues routed to a department.
func (r *IssueRepository) ListOpenForDepartment(ctx context.Context, departmentID int64) ([]models.Issue, error) {
	return r.listOpen(ctx, "require_department_id = ?", departmentID)
}

// ListOpenForReporter returns incomplete issues raised by a user.
func (r *IssueRepository) ListOpenForReporter(ctx context.Context, userID string) ([]models.Issue, error) {
	return r.listOpen(ctx, "user_id = ?", userID)
}

func (r *IssueRepository) listOpen(ctx context.Context, where string, arg any) ([]models.Issue, error) {
	query := database.ConvertPlaceholders(r.q,
		"SELECT "+issueColumns+" FROM issues WHERE "+where+" AND complete = ? ORDER BY id")

	issues := []models.Issue{}
	if err := sqlx.SelectContext(ctx, r.q, &issues, query, arg, false); err != nil {
		return nil, classify(err, "failed to list issues")
	}
	return issues, nil
}

// Acknowledge stamps the acknowledge time and forces the issue back to
// incomplete. Callers check existence first: MySQL reports zero affected rows
// for an unchanged row.
func (r *IssueRepository) Acknowledge(ctx context.Context, id int64, at time.Time) error {
	query := database.ConvertPlaceholders(r.q, "UPDATE issues SET acknowledge_at = ?, complete = ? WHERE id = ?")
	_, err := r.q.ExecContext(ctx, query, at, false, id)
	return classify(err, "failed to acknowledge issue")
}

// Complete marks the issue complete.
func (r *IssueRepository) Complete(ctx context.Context, id int64, at time.Time) error {
	query := database.ConvertPlaceholders(r.q, "UPDATE issues SET complete = ?, updated_at = ? WHERE id = ?")
	_, err := r.q.ExecContext(ctx, query, true, at, id)
	return classify(err, "failed to complete issue")
}

// ReportRecords returns every issue joined with department and reporter names.
func (r *IssueRepository) ReportRecords(ctx context.Context) ([]models.IssueReportRecord, error) {
	query := database.ConvertPlaceholders(r.q, `
		SELECT i.id, i.issue, i.description, i.address,
		       rd.name AS required_department_name,
		       u.full_name AS user_name,
		       ud.name AS user_department_name,
		       i.complete, i.acknowledge_at, i.created_at, i.updated_at
		FROM issues i
		LEFT JOIN departments rd ON i.require_department_id = rd.department_id
		LEFT JOIN users u ON i.user_id = u.id
		LEFT JOIN departments ud ON u.department_id = ud.department_id
		ORDER BY i.id`)

	records := []models.IssueReportRecord{}
	if err := sqlx.SelectContext(ctx, r.q, &records, query); err != nil {
		return nil, classify(err, "failed to load report")
	}
	return records, nil
}
