package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
)

const responseColumns = "id, issue_id, description, requirements, action_taken, complete, acknowledge_at, created_at, updated_at"

// ResponseRepository handles the responses table.
type ResponseRepository struct {
	q sqlx.ExtContext
}

// NewResponseRepository creates a new response repository.
func NewResponseRepository(q sqlx.ExtContext) *ResponseRepository {
	return &ResponseRepository{q: q}
}

// WithTx returns a copy bound to tx.
func (r *ResponseRepository) WithTx(tx *sqlx.Tx) *ResponseRepository {
	return &ResponseRepository{q: tx}
}

// GetByIssueID retrieves the response recorded for an issue.
func (r *ResponseRepository) GetByIssueID(ctx context.Context, issueID int64) (*models.Response, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT "+responseColumns+" FROM responses WHERE issue_id = ?")

	var resp models.Response
	if err := sqlx.GetContext(ctx, r.q, &resp, query, issueID); err != nil {
		return nil, classify(err, "failed to get response")
	}
	return &resp, nil
}

// ListByIssue returns the responses of an issue.
func (r *ResponseRepository) ListByIssue(ctx context.Context, issueID int64) ([]models.Response, error) {
	query := database.ConvertPlaceholders(r.q, "SELECT "+responseColumns+" FROM responses WHERE issue_id = ? ORDER BY id")

	responses := []models.Response{}
	if err := sqlx.SelectContext(ctx, r.q, &responses, query, issueID); err != nil {
		return nil, classify(err, "failed to list responses")
	}
	return responses, nil
}

// Create inserts a response and returns its id.
func (r *ResponseRepository) Create(ctx context.Context, resp *models.Response) (int64, error) {
	id, err := database.InsertID(ctx, r.q, `
		INSERT INTO responses (issue_id, description, requirements, action_taken, complete, acknowledge_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "id",
		resp.IssueID, resp.Description, resp.Requirements, resp.ActionTaken, resp.Complete,
		resp.AcknowledgeAt, resp.CreatedAt, resp.UpdatedAt)
	if err != nil {
		return 0, classify(err, "failed to create response")
	}
	return id, nil
}

// Update rewrites the remediation notes of an existing response.
func (r *ResponseRepository) Update(ctx context.Context, resp *models.Response) error {
	query := database.ConvertPlaceholders(r.q, `
		UPDATE responses
		SET description = ?, requirements = ?, action_taken = ?, complete = ?, updated_at = ?
		WHERE issue_id = ?`)
	_, err := r.q.ExecContext(ctx, query,
		resp.Description, resp.Requirements, resp.ActionTaken, resp.Complete, resp.UpdatedAt, resp.IssueID)
	return classify(err, "failed to update response")
}
