package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/repository"
	"github.com/goatkit/issueflow/internal/utils"
)

// ResponseService records remediation notes against issues. Each issue has
// at most one response; recording again overwrites it.
type ResponseService struct {
	db        *database.DB
	issues    *repository.IssueRepository
	responses *repository.ResponseRepository
	opts      Options
	log       zerolog.Logger
}

func NewResponseService(db *database.DB, opts Options, log zerolog.Logger) *ResponseService {
	return &ResponseService{
		db:        db,
		issues:    repository.NewIssueRepository(db),
		responses: repository.NewResponseRepository(db),
		opts:      opts,
		log:       log.With().Str("service", "responses").Logger(),
	}
}

// Record creates or updates the response of an issue owned by the caller's
// department.
func (s *ResponseService) Record(ctx context.Context, caller *models.User, in models.ResponseInput) (*models.Response, error) {
	issueID := int64(in.IssueID)
	if issueID <= 0 {
		return nil, apierrors.BadRequest("Issue ID is required")
	}
	now := s.opts.now()
	resp := &models.Response{
		IssueID:      issueID,
		Description:  utils.StripHTML(in.Description),
		Requirements: utils.StripHTML(in.Requirements),
		ActionTaken:  utils.StripHTML(in.ActionTaken),
		Complete:     in.Complete,
		UpdatedAt:    now,
	}

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		issue, err := s.issues.WithTx(tx).GetByID(ctx, issueID)
		if isNotFound(err) {
			return errIssueNotFound()
		}
		if err != nil {
			return err
		}
		if !canActOn(caller, issue) {
			return apierrors.Forbidden("Only members of the required department can respond to this issue")
		}

		responses := s.responses.WithTx(tx)
		existing, err := responses.GetByIssueID(ctx, issueID)
		switch {
		case isNotFound(err):
			resp.CreatedAt = now
			resp.AcknowledgeAt = issue.AcknowledgeAt
			resp.ID, err = responses.Create(ctx, resp)
			return err
		case err != nil:
			return err
		}
		resp.ID = existing.ID
		resp.CreatedAt = existing.CreatedAt
		resp.AcknowledgeAt = existing.AcknowledgeAt
		return responses.Update(ctx, resp)
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info().Int64("issue_id", issueID).Int64("response_id", resp.ID).Bool("complete", resp.Complete).Msg("response recorded")
	return resp, nil
}

// List returns the responses recorded for an issue.
func (s *ResponseService) List(ctx context.Context, issueID int64) ([]models.Response, error) {
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		if isNotFound(err) {
			return nil, errIssueNotFound()
		}
		return nil, apierrors.Internal(err)
	}
	responses, err := s.responses.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(responses, s.opts, "No responses found")
}
