package models

import "time"

// Response holds remediation notes recorded against an issue. There is at
// most one per issue.
type Response struct {
	ID            int64      `json:"id" db:"id"`
	IssueID       int64      `json:"issue_id" db:"issue_id"`
	Description   string     `json:"description" db:"description"`
	Requirements  string     `json:"requirements" db:"requirements"`
	ActionTaken   string     `json:"action_taken" db:"action_taken"`
	Complete      bool       `json:"complete" db:"complete"`
	AcknowledgeAt *time.Time `json:"acknowledge_at" db:"acknowledge_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ResponseInput is the update-response request body.
type ResponseInput struct {
	IssueID      FlexInt `json:"issueId"`
	Description  string  `json:"description"`
	Requirements string  `json:"requirements"`
	ActionTaken  string  `json:"actionTaken"`
	Complete     bool    `json:"complete"`
}
