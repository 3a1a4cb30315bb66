package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/middleware"
	"github.com/goatkit/issueflow/internal/models"
)

// handleCreateUser registers a user.
//
//	@Summary	Register user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.NewUser	true	"User"
//	@Success	201		{object}	Response
//	@Failure	409		{object}	apierrors.Envelope
//	@Router		/users/register [post]
func (router *APIRouter) handleCreateUser(c *gin.Context) {
	var req models.NewUser
	if !bindJSON(c, &req) {
		return
	}
	created, err := router.svc.Users.Create(c.Request.Context(), req)
	if err != nil {
		sendError(c, err)
		return
	}
	message := "User created successfully"
	if created.IsAdmin {
		message = "Admin user created successfully"
	}
	respond(c, http.StatusCreated, created, message)
}

func (router *APIRouter) handleListUsers(c *gin.Context) {
	users, err := router.svc.Users.List(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"users": users}, "Users fetched successfully")
}

func (router *APIRouter) handleUpdateUser(c *gin.Context) {
	var req models.UserUpdate
	if !bindJSON(c, &req) {
		return
	}
	id := c.Param("id")
	if err := router.svc.Users.Update(c.Request.Context(), id, req); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"userId": id}, "User updated successfully")
}

func (router *APIRouter) handleDeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := router.svc.Users.Delete(c.Request.Context(), middleware.CurrentUser(c).ID, id); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"userId": id}, "User deleted successfully")
}

func (router *APIRouter) handleResetPassword(c *gin.Context) {
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if !bindJSON(c, &req) {
		return
	}
	id := c.Param("id")
	if err := router.svc.Users.ResetPassword(c.Request.Context(), id, req.NewPassword); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"userId": id}, "User password reset successfully")
}
