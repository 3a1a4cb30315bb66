package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/middleware"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/report"
)

// issueRef names the issue an action applies to. Older clients send the
// acknowledge target as responseId.
type issueRef struct {
	IssueID    models.FlexInt `json:"issueId"`
	ResponseID models.FlexInt `json:"responseId"`
}

func (r issueRef) id() int64 {
	return bodyID(r.IssueID, r.ResponseID)
}

// handleRaiseIssue creates an issue routed to a maintenance department.
//
//	@Summary	Raise issue
//	@Tags		Issues
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.NewIssue	true	"Issue"
//	@Success	201		{object}	Response
//	@Failure	400		{object}	apierrors.Envelope
//	@Failure	404		{object}	apierrors.Envelope
//	@Router		/raise-issue [post]
func (router *APIRouter) handleRaiseIssue(c *gin.Context) {
	var req models.NewIssue
	if !bindJSON(c, &req) {
		return
	}
	raised, err := router.svc.Issues.Raise(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		sendError(c, err)
		return
	}
	message := "Issue created successfully"
	if raised.Warning != nil {
		message = *raised.Warning
	}
	respond(c, http.StatusCreated, raised, message)
}

func (router *APIRouter) handleDepartmentIssues(c *gin.Context) {
	issues, err := router.svc.Issues.ListForDepartment(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, issues, "Issues fetched successfully")
}

func (router *APIRouter) handleReporterIssues(c *gin.Context) {
	issues, err := router.svc.Issues.ListForReporter(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, issues, "Issues fetched successfully for the user")
}

func (router *APIRouter) handleAcknowledgeIssue(c *gin.Context) {
	var req issueRef
	if !bindJSON(c, &req) {
		return
	}
	if req.id() == 0 {
		sendError(c, apierrors.BadRequest("Issue ID is required"))
		return
	}
	issue, err := router.svc.Issues.Acknowledge(c.Request.Context(), middleware.CurrentUser(c), req.id())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, issue, "Response acknowledged successfully")
}

func (router *APIRouter) handleCompleteIssue(c *gin.Context) {
	var req issueRef
	if !bindJSON(c, &req) {
		return
	}
	if req.id() == 0 {
		sendError(c, apierrors.BadRequest("Issue ID is required"))
		return
	}
	detail, err := router.svc.Issues.Complete(c.Request.Context(), middleware.CurrentUser(c), req.id())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"issue": detail}, "Issue marked as complete successfully")
}

// handleFetchReport returns the reporting view. format=xlsx streams a
// spreadsheet instead of JSON.
func (router *APIRouter) handleFetchReport(c *gin.Context) {
	rows, err := router.svc.Issues.Report(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}

	if c.Query("format") != "xlsx" {
		sendSuccess(c, rows, "Completed problems and responses fetched successfully")
		return
	}

	c.Header("Content-Type", report.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	c.Status(http.StatusOK)
	if err := report.WriteXLSX(c.Writer, rows); err != nil {
		router.log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("writing report spreadsheet")
		_ = c.Error(err)
	}
}

// handleUpdateResponse records remediation notes for an issue.
func (router *APIRouter) handleUpdateResponse(c *gin.Context) {
	var req models.ResponseInput
	if !bindJSON(c, &req) {
		return
	}
	resp, err := router.svc.Responses.Record(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, resp, "Responses updated successfully")
}

func (router *APIRouter) handleListResponses(c *gin.Context) {
	id, ok := pathID(c, "id", "issue ID")
	if !ok {
		return
	}
	responses, err := router.svc.Responses.List(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, responses, "Responses fetched successfully")
}
