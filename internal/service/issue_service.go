package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/notifications"
	"github.com/goatkit/issueflow/internal/repository"
	"github.com/goatkit/issueflow/internal/utils"
)

// NoAssigneeWarning is attached to an issue raised against a department
// without members.
const NoAssigneeWarning = "Warning: No users available in the required department. Issue will be created but cannot be assigned."

func errIssueNotFound() error {
	return apierrors.NotFound("No issue found with the provided ID")
}

// IssueService drives the issue lifecycle: Open, Acknowledged, Completed.
type IssueService struct {
	db          *database.DB
	issues      *repository.IssueRepository
	departments *repository.DepartmentRepository
	users       *repository.UserRepository
	notifier    Notifier
	opts        Options
	log         zerolog.Logger
}

func NewIssueService(db *database.DB, notifier Notifier, opts Options, log zerolog.Logger) *IssueService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &IssueService{
		db:          db,
		issues:      repository.NewIssueRepository(db),
		departments: repository.NewDepartmentRepository(db),
		users:       repository.NewUserRepository(db),
		notifier:    notifier,
		opts:        opts,
		log:         log.With().Str("service", "issues").Logger(),
	}
}

// canActOn reports whether caller may acknowledge, complete or respond to
// issue: administrators always, everyone else only within the required
// department.
func canActOn(caller *models.User, issue *models.Issue) bool {
	if caller == nil {
		return false
	}
	if caller.IsAdmin {
		return true
	}
	return caller.DepartmentID != nil && *caller.DepartmentID == issue.RequireDepartmentID
}

// Raise creates an issue routed to the named department and notifies its
// members. A department without members still gets the issue, with a
// warning in the result.
func (s *IssueService) Raise(ctx context.Context, reporterID string, in models.NewIssue) (*models.RaisedIssue, error) {
	in.Issue = utils.StripHTML(in.Issue)
	in.Description = utils.StripHTML(in.Description)
	in.Address = utils.StripHTML(in.Address)
	in.RequireDepartment = utils.StripHTML(in.RequireDepartment)
	if in.Issue == "" || in.Address == "" || in.RequireDepartment == "" {
		return nil, apierrors.BadRequest("All fields are required")
	}

	now := s.opts.now()
	issue := &models.Issue{
		Issue:       in.Issue,
		Description: in.Description,
		Address:     in.Address,
		UserID:      &reporterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var members []models.User
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		dept, err := s.departments.WithTx(tx).GetByName(ctx, in.RequireDepartment)
		if isNotFound(err) {
			return errDepartmentNotFound()
		}
		if err != nil {
			return err
		}
		issue.RequireDepartmentID = dept.ID

		members, err = s.users.WithTx(tx).ListByDepartment(ctx, dept.ID)
		if err != nil {
			return err
		}
		issue.ID, err = s.issues.WithTx(tx).Create(ctx, issue)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	raised := &models.RaisedIssue{
		ID:                issue.ID,
		Issue:             issue.Issue,
		Description:       issue.Description,
		Address:           issue.Address,
		RequireDepartment: in.RequireDepartment,
	}
	if len(members) == 0 {
		warning := NoAssigneeWarning
		raised.Warning = &warning
		s.log.Warn().Int64("issue_id", issue.ID).Str("department", in.RequireDepartment).Msg("issue raised for department without members")
		return raised, nil
	}

	recipients := make([]notifications.Recipient, 0, len(members))
	for _, m := range members {
		name := m.FullName
		if name == "" {
			name = m.ID
		}
		recipients = append(recipients, notifications.Recipient{Name: name, Email: m.Email})
	}
	sent := s.notifier.IssueAssigned(context.WithoutCancel(ctx), issue, recipients)
	s.log.Info().Int64("issue_id", issue.ID).Int("notified", sent).Int("members", len(members)).Msg("issue raised")
	return raised, nil
}

// ListForDepartment returns the open issues routed to the caller's department.
func (s *IssueService) ListForDepartment(ctx context.Context, caller *models.User) ([]models.Issue, error) {
	if caller.DepartmentID == nil {
		return listResult([]models.Issue{}, s.opts, "No issues found for the department")
	}
	issues, err := s.issues.ListOpenForDepartment(ctx, *caller.DepartmentID)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(issues, s.opts, "No issues found for the department")
}

// ListForReporter returns the open issues the caller raised.
func (s *IssueService) ListForReporter(ctx context.Context, callerID string) ([]models.Issue, error) {
	issues, err := s.issues.ListOpenForReporter(ctx, callerID)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return listResult(issues, s.opts, "No issues found for the user")
}

func (s *IssueService) load(ctx context.Context, caller *models.User, id int64) (*models.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, errIssueNotFound()
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	if !canActOn(caller, issue) {
		return nil, apierrors.Forbidden("Only members of the required department can update this issue")
	}
	return issue, nil
}

// Acknowledge stamps the acknowledge time. The issue is always left
// incomplete, even when it had been completed before.
func (s *IssueService) Acknowledge(ctx context.Context, caller *models.User, id int64) (*models.Issue, error) {
	issue, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	now := s.opts.now()
	if err := s.issues.Acknowledge(ctx, id, now); err != nil {
		return nil, apierrors.Internal(err)
	}
	issue.AcknowledgeAt = &now
	issue.Complete = false
	return issue, nil
}

// Complete closes the issue and tells the reporter. A failed email never
// fails the request.
func (s *IssueService) Complete(ctx context.Context, caller *models.User, id int64) (*models.IssueDetail, error) {
	if _, err := s.load(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := s.issues.Complete(ctx, id, s.opts.now()); err != nil {
		return nil, apierrors.Internal(err)
	}
	detail, err := s.issues.GetDetail(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	if err := s.notifier.IssueResolved(context.WithoutCancel(ctx), detail); err != nil {
		s.log.Warn().Err(err).Int64("issue_id", id).Msg("resolution notification failed")
	}
	return detail, nil
}

// Report returns every issue in reporting form, regardless of state.
func (s *IssueService) Report(ctx context.Context) ([]models.ReportRow, error) {
	records, err := s.issues.ReportRecords(ctx)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	rows := make([]models.ReportRow, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	return rows, nil
}
