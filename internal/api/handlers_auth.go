package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/middleware"
)

// RefreshTokenCookie carries the refresh token after a rotation.
const RefreshTokenCookie = "refreshToken"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// setCookie writes an HTTP-only session cookie. Secure cookies are sent
// cross-site, plain ones only same-site.
func (router *APIRouter) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	if router.auth.CookieSecure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetCookie(name, value, maxAge, "/", router.auth.CookieDomain, router.auth.CookieSecure, true)
}

func (router *APIRouter) clearCookie(c *gin.Context, name string) {
	router.setCookie(c, name, "", -1)
}

// handleLogin authenticates a user.
//
//	@Summary	Log in
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		loginRequest	true	"Credentials"
//	@Success	200		{object}	Response
//	@Failure	401		{object}	apierrors.Envelope
//	@Router		/login [post]
func (router *APIRouter) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := router.svc.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		sendError(c, err)
		return
	}

	router.setCookie(c, middleware.AccessTokenCookie, result.AccessToken, router.auth.AccessTokenTTL)
	message := "User logged in successfully"
	if result.User.IsAdmin {
		message = "Admin logged in successfully"
	}
	sendSuccess(c, result, message)
}

// handleLogout clears the session cookies and revokes the refresh token.
func (router *APIRouter) handleLogout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := router.svc.Auth.Logout(c.Request.Context(), user.ID); err != nil {
		sendError(c, err)
		return
	}
	router.clearCookie(c, middleware.AccessTokenCookie)
	router.clearCookie(c, RefreshTokenCookie)
	sendSuccess(c, gin.H{}, "User logged out successfully")
}

// handleRefreshToken rotates the token pair. The refresh token is read from
// its cookie first, then from the body.
func (router *APIRouter) handleRefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	token, _ := c.Cookie(RefreshTokenCookie)
	if token == "" {
		if !bindJSON(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	pair, err := router.svc.Auth.Refresh(c.Request.Context(), middleware.CurrentUser(c).ID, token)
	if err != nil {
		sendError(c, err)
		return
	}

	router.setCookie(c, middleware.AccessTokenCookie, pair.AccessToken, router.auth.AccessTokenTTL)
	router.setCookie(c, RefreshTokenCookie, pair.RefreshToken, router.auth.RefreshTokenTTL)
	sendSuccess(c, pair, "Access token refreshed successfully")
}

func (router *APIRouter) handleChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user := middleware.CurrentUser(c)
	if err := router.svc.Auth.ChangePassword(c.Request.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{}, "Password changed successfully")
}

func (router *APIRouter) handleCurrentUser(c *gin.Context) {
	sendSuccess(c, middleware.CurrentUser(c), "User fetched successfully")
}

func (router *APIRouter) handleUpdateAccount(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	updated, err := router.svc.Auth.UpdateAccount(c.Request.Context(), middleware.CurrentUser(c).ID, req.FullName, req.Email)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, updated, "Account details updated successfully")
}

// handleProtectedRoute lets clients probe whether their session is valid.
func (router *APIRouter) handleProtectedRoute(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User is authenticated",
		"user": gin.H{
			"id":       user.ID,
			"email":    user.Email,
			"fullName": user.FullName,
			"isAdmin":  user.IsAdmin,
		},
	})
}

func (router *APIRouter) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Server is running"})
}

func (router *APIRouter) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Admin dashboard access granted"})
}

// handleCallerDepartment returns the caller's department id.
func (router *APIRouter) handleCallerDepartment(c *gin.Context) {
	sendSuccess(c, middleware.CurrentUser(c).DepartmentID, "Department fetched successfully for the user")
}
