// Package middleware holds the gin middleware shared by every route group:
// authentication, the admin gate, rate limiting, request ids and metrics.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/models"
)

// AccessTokenCookie is the cookie login sets and Authenticate accepts.
const AccessTokenCookie = "accessToken"

const userKey = "user"

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// UserResolver loads the user named by a token subject.
type UserResolver interface {
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// extractToken reads the bearer token from the Authorization header, falling
// back to the access token cookie when no header is sent.
func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
			return cookie, nil
		}
		return "", apierrors.Unauthorized("Authorization header is missing")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", apierrors.Unauthorized("Authorization header format is invalid")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", apierrors.Unauthorized("Token is missing")
	}
	return token, nil
}

// Authenticate verifies the access token and attaches the caller's user
// record to the context.
func Authenticate(tokens TokenValidator, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			apierrors.Abort(c, err)
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			msg := "Invalid access token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Access token expired"
			}
			apierrors.Abort(c, apierrors.Unauthorized(msg))
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if apierrors.Is(err, apierrors.CodeNotFound) {
				apierrors.Abort(c, apierrors.Unauthorized("Invalid Access Token: User not found"))
				return
			}
			apierrors.Abort(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin flag. It must run after
// Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			apierrors.Abort(c, apierrors.Unauthorized("Unauthorized - Please login first"))
			return
		}
		if !user.IsAdmin {
			apierrors.Abort(c, apierrors.Forbidden("Forbidden - Admin access required"))
			return
		}
		c.Next()
	}
}

// QueryToken copies a token query parameter into the Authorization header
// so documents can be opened from plain links.
func QueryToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.Query("token"); token != "" && c.GetHeader("Authorization") == "" {
			c.Request.Header.Set("Authorization", "Bearer "+token)
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by Authenticate, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SetUser attaches user to the context. Tests use it to skip Authenticate.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}
