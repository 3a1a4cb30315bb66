package models

import "time"

// IssueState is derived from the completion flag and acknowledge timestamp.
type IssueState string

const (
	IssueOpen         IssueState = "Open"
	IssueAcknowledged IssueState = "Acknowledged"
	IssueCompleted    IssueState = "Completed"
)

// Issue is a reported facility problem routed to a department.
type Issue struct {
	ID                  int64      `json:"id" db:"id"`
	Issue               string     `json:"issue" db:"issue"`
	Description         string     `json:"description" db:"description"`
	Address             string     `json:"address" db:"address"`
	RequireDepartmentID int64      `json:"require_department_id" db:"require_department_id"`
	UserID              *string    `json:"user_id" db:"user_id"`
	Complete            bool       `json:"complete" db:"complete"`
	AcknowledgeAt       *time.Time `json:"acknowledge_at" db:"acknowledge_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// State returns the lifecycle state of the issue.
func (i *Issue) State() IssueState {
	switch {
	case i.Complete:
		return IssueCompleted
	case i.AcknowledgeAt != nil:
		return IssueAcknowledged
	default:
		return IssueOpen
	}
}

// IssueDetail is an issue joined with its reporter and required department.
type IssueDetail struct {
	Issue
	UserEmail      *string `json:"user_email" db:"user_email"`
	UserFullName   *string `json:"user_full_name" db:"user_full_name"`
	UserLogin      *string `json:"user_id_login" db:"user_id_login"`
	DepartmentName *string `json:"department_name" db:"department_name"`
}

// NewIssue is the raise-issue input.
type NewIssue struct {
	Issue             string `json:"issue"`
	Description       string `json:"description"`
	Address           string `json:"address"`
	RequireDepartment string `json:"requireDepartment"`
}

// RaisedIssue is returned by raise. Warning is set when the department has
// no members to notify.
type RaisedIssue struct {
	ID                int64   `json:"id"`
	Issue             string  `json:"issue"`
	Description       string  `json:"description"`
	Address           string  `json:"address"`
	RequireDepartment string  `json:"requireDepartment"`
	Warning           *string `json:"warning"`
}

// IssueReportRecord is the raw reporting join as read from the store.
type IssueReportRecord struct {
	ID                     int64      `db:"id"`
	Issue                  string     `db:"issue"`
	Description            string     `db:"description"`
	Address                string     `db:"address"`
	RequiredDepartmentName *string    `db:"required_department_name"`
	UserName               *string    `db:"user_name"`
	UserDepartmentName     *string    `db:"user_department_name"`
	Complete               bool       `db:"complete"`
	AcknowledgeAt          *time.Time `db:"acknowledge_at"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

// ReportTimeLayout is the timestamp format of the reporting view.
const ReportTimeLayout = "02-01-2006 15:04:05"

// ReportRow is one formatted row of the reporting view.
type ReportRow struct {
	ID                     int64   `json:"id"`
	Issue                  string  `json:"issue"`
	Description            string  `json:"description"`
	Address                string  `json:"address"`
	RequiredDepartmentName *string `json:"required_department_name"`
	UserName               *string `json:"user_name"`
	UserDepartmentName     *string `json:"user_department_name"`
	Complete               bool    `json:"complete"`
	AcknowledgeAt          *string `json:"acknowledge_at"`
	CreatedAt              string  `json:"created_at"`
	UpdatedAt              string  `json:"updated_at"`
}

// Resolved reports whether the issue was updated after creation.
func (r ReportRow) Resolved() bool {
	return r.UpdatedAt != r.CreatedAt
}

// Row formats a report record.
func (r IssueReportRecord) Row() ReportRow {
	row := ReportRow{
		ID:                     r.ID,
		Issue:                  r.Issue,
		Description:            r.Description,
		Address:                r.Address,
		RequiredDepartmentName: r.RequiredDepartmentName,
		UserName:               r.UserName,
		UserDepartmentName:     r.UserDepartmentName,
		Complete:               r.Complete,
		CreatedAt:              r.CreatedAt.Format(ReportTimeLayout),
		UpdatedAt:              r.UpdatedAt.Format(ReportTimeLayout),
	}
	if r.AcknowledgeAt != nil {
		ack := r.AcknowledgeAt.Format(ReportTimeLayout)
		row.AcknowledgeAt = &ack
	}
	return row
}
