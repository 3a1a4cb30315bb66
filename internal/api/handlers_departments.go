package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/models"
)

type departmentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// handleCreateDepartment adds a department.
//
//	@Summary	Create department
//	@Tags		Departments
//	@Accept		json
//	@Produce	json
//	@Param		body	body		departmentRequest	true	"Department"
//	@Success	201		{object}	Response
//	@Failure	409		{object}	apierrors.Envelope
//	@Router		/departments [post]
func (router *APIRouter) handleCreateDepartment(c *gin.Context) {
	var req departmentRequest
	if !bindJSON(c, &req) {
		return
	}
	dept, err := router.svc.Departments.Create(c.Request.Context(), req.Name, req.Type)
	if err != nil {
		sendError(c, err)
		return
	}
	respond(c, http.StatusCreated, dept, "Department added successfully")
}

func (router *APIRouter) handleDeleteDepartment(c *gin.Context) {
	id, ok := pathID(c, "id", "department ID")
	if !ok {
		return
	}
	if err := router.svc.Departments.Delete(c.Request.Context(), id); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"departmentId": id}, "Department deleted successfully")
}

func (router *APIRouter) handleUpdateDepartmentType(c *gin.Context) {
	id, ok := pathID(c, "id", "department ID")
	if !ok {
		return
	}
	var req departmentRequest
	if !bindJSON(c, &req) {
		return
	}
	dept, err := router.svc.Departments.UpdateType(c.Request.Context(), id, req.Type)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, dept, "Department type updated successfully")
}

func (router *APIRouter) handleUpdateDepartment(c *gin.Context) {
	id, ok := pathID(c, "id", "department ID")
	if !ok {
		return
	}
	var patch models.DepartmentPatch
	if !bindJSON(c, &patch) {
		return
	}
	dept, err := router.svc.Departments.Update(c.Request.Context(), id, patch)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, dept, "Department updated successfully")
}

func (router *APIRouter) handleListDepartments(c *gin.Context) {
	departments, err := router.svc.Departments.List(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, departments, "Departments fetched successfully")
}

// handleMaintenanceDepartments lists the departments issues can be raised
// against.
func (router *APIRouter) handleMaintenanceDepartments(c *gin.Context) {
	departments, err := router.svc.Departments.ListMaintenance(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	names := make([]gin.H, len(departments))
	for i, d := range departments {
		names[i] = gin.H{"name": d.Name}
	}
	sendSuccess(c, gin.H{"departments": names}, "Maintenance departments fetched successfully")
}

func (router *APIRouter) handleDepartmentType(c *gin.Context) {
	dept, err := router.svc.Departments.TypeByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"name": dept.Name, "type": dept.Type}, "Department type fetched successfully")
}
