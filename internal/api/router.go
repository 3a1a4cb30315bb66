// Package api exposes the issue tracking and license services over HTTP.
// Every route lives under /api/v1 and answers with the JSON success or
// error envelope.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/config"
	"github.com/goatkit/issueflow/internal/middleware"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/service"
)

// AuthService is the session and own-account surface.
type AuthService interface {
	Login(ctx context.Context, id, password string) (*service.LoginResult, error)
	Refresh(ctx context.Context, callerID, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.User, error)
}

// UserService is the administrator user management surface.
type UserService interface {
	Create(ctx context.Context, in models.NewUser) (*service.CreatedUser, error)
	List(ctx context.Context) ([]models.UserListing, error)
	Update(ctx context.Context, id string, in models.UserUpdate) error
	Delete(ctx context.Context, actingID, id string) error
	ResetPassword(ctx context.Context, id, newPassword string) error
}

type DepartmentService interface {
	Create(ctx context.Context, name, typ string) (*models.Department, error)
	Delete(ctx context.Context, id int64) error
	UpdateType(ctx context.Context, id int64, typ string) (*models.Department, error)
	Update(ctx context.Context, id int64, patch models.DepartmentPatch) (*models.Department, error)
	List(ctx context.Context) ([]models.Department, error)
	ListMaintenance(ctx context.Context) ([]models.Department, error)
	TypeByName(ctx context.Context, name string) (*models.Department, error)
}

type IssueService interface {
	Raise(ctx context.Context, reporterID string, in models.NewIssue) (*models.RaisedIssue, error)
	ListForDepartment(ctx context.Context, caller *models.User) ([]models.Issue, error)
	ListForReporter(ctx context.Context, callerID string) ([]models.Issue, error)
	Acknowledge(ctx context.Context, caller *models.User, id int64) (*models.Issue, error)
	Complete(ctx context.Context, caller *models.User, id int64) (*models.IssueDetail, error)
	Report(ctx context.Context) ([]models.ReportRow, error)
}

type ResponseService interface {
	Record(ctx context.Context, caller *models.User, in models.ResponseInput) (*models.Response, error)
	List(ctx context.Context, issueID int64) ([]models.Response, error)
}

type LicenseService interface {
	Upload(ctx context.Context, in service.LicenseInput) (int64, error)
	List(ctx context.Context) ([]models.LicenseSummary, error)
	ListExpiring(ctx context.Context) ([]models.LicenseSummary, error)
	Fetch(ctx context.Context, id int64) (*models.LicenseFile, error)
	Update(ctx context.Context, id int64, in service.LicenseInput) error
	Delete(ctx context.Context, id int64) error
}

// Services bundles the handler dependencies.
type Services struct {
	Auth        AuthService
	Users       UserService
	Departments DepartmentService
	Issues      IssueService
	Responses   ResponseService
	Licenses    LicenseService
	Tokens      middleware.TokenValidator
}

// APIRouter owns the handlers and the settings they depend on.
type APIRouter struct {
	svc         Services
	server      config.ServerConfig
	auth        config.AuthConfig
	loginLimits *middleware.RateLimiter
	log         zerolog.Logger
}

// Option customises the router.
type Option func(*APIRouter)

// WithLoginRateLimiter enables the per IP login limit. The caller owns the
// limiter and stops it on shutdown.
func WithLoginRateLimiter(rl *middleware.RateLimiter) Option {
	return func(r *APIRouter) { r.loginLimits = rl }
}

// NewAPIRouter creates the handler set.
func NewAPIRouter(svc Services, cfg *config.Config, log zerolog.Logger, opts ...Option) *APIRouter {
	r := &APIRouter{
		svc:    svc,
		server: cfg.Server,
		auth:   cfg.Auth,
		log:    log.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine builds the gin engine with the middleware stack and every route.
func (router *APIRouter) Engine() *gin.Engine {
	e := gin.New()
	e.HandleMethodNotAllowed = true
	if len(router.server.TrustedProxies) > 0 {
		if err := e.SetTrustedProxies(router.server.TrustedProxies); err != nil {
			router.log.Warn().Err(err).Msg("ignoring invalid trusted proxies")
		}
	} else {
		_ = e.SetTrustedProxies(nil)
	}

	e.Use(
		middleware.Recovery(router.log),
		middleware.RequestID(),
		middleware.RequestLogger(router.log),
		middleware.Metrics(),
		router.cors(),
		router.limitBody(),
	)

	e.NoRoute(func(c *gin.Context) {
		apierrors.ErrorWithMessage(c, apierrors.CodeNotFound, "Route not found")
	})
	e.NoMethod(func(c *gin.Context) {
		apierrors.ErrorWithMessage(c, apierrors.CodeNotFound, "Route not found")
	})

	if router.server.MetricsEnabled {
		e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.RegisterRoutes(e.Group("/api/v1"))
	return e
}

// RegisterRoutes mounts the API on v1.
func (router *APIRouter) RegisterRoutes(v1 *gin.RouterGroup) {
	authn := middleware.Authenticate(router.svc.Tokens, router.svc.Auth)
	admin := middleware.RequireAdmin()

	login := []gin.HandlerFunc{}
	if router.loginLimits != nil {
		login = append(login, middleware.RateLimitByIP(router.loginLimits, router.auth.LoginRateLimit))
	}
	v1.POST("/login", append(login, router.handleLogin)...)
	v1.GET("/ping", router.handlePing)
	v1.GET("/department/:name", router.handleDepartmentType)

	user := v1.Group("", authn)
	{
		user.POST("/logout", router.handleLogout)
		user.POST("/refresh-token", router.handleRefreshToken)
		user.POST("/change-password", router.handleChangePassword)
		user.GET("/current-user", router.handleCurrentUser)
		user.PATCH("/update-account", router.handleUpdateAccount)
		user.GET("/protected-route", router.handleProtectedRoute)

		user.POST("/raise-issue", router.handleRaiseIssue)
		user.GET("/get-issue", router.handleDepartmentIssues)
		user.GET("/get-issue-for-user", router.handleReporterIssues)
		user.PUT("/update-response", router.handleUpdateResponse)
		user.GET("/issues/:id/responses", router.handleListResponses)
		user.POST("/complete-report", router.handleCompleteIssue)
		user.POST("/acknowledge-time", router.handleAcknowledgeIssue)
		user.GET("/fetch-report", router.handleFetchReport)
		user.GET("/get-admin", router.handleCallerDepartment)

		user.GET("/departments", router.handleListDepartments)
		user.GET("/department-names", router.handleMaintenanceDepartments)
	}

	adm := v1.Group("", authn, admin)
	{
		adm.GET("/dashboard", router.handleDashboard)
		adm.POST("/departments", router.handleCreateDepartment)
		adm.DELETE("/departments/:id", router.handleDeleteDepartment)
		adm.PUT("/departments/:id/type", router.handleUpdateDepartmentType)
		adm.PUT("/departments/:id", router.handleUpdateDepartment)
		adm.GET("/get-departments", router.handleListDepartments)

		adm.POST("/users/register", router.handleCreateUser)
		adm.GET("/users", router.handleListUsers)
		adm.PUT("/users/:id", router.handleUpdateUser)
		adm.DELETE("/users/:id", router.handleDeleteUser)
		adm.POST("/users/:id/reset-password", router.handleResetPassword)
	}

	licenses := v1.Group("/licenses")
	{
		licenses.POST("/upload", authn, router.handleUploadLicense)
		licenses.GET("/all", authn, router.handleListLicenses)
		licenses.GET("/expiring", authn, router.handleExpiringLicenses)
		licenses.GET("/:id", middleware.QueryToken(), authn, router.handleGetLicenseFile)
		licenses.PUT("/:id", authn, router.handleUpdateLicense)
		licenses.DELETE("/:id", authn, router.handleDeleteLicense)
	}
}

// cors answers preflight requests and reflects the configured origin. An
// empty origin disables CORS headers altogether.
func (router *APIRouter) cors() gin.HandlerFunc {
	allowed := strings.TrimSpace(router.server.CORSOrigin)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed == "" || origin == "" {
			c.Next()
			return
		}
		if allowed == "*" || origin == allowed {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID, Origin, Accept")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// limitBody caps request bodies; license uploads travel base64 encoded in JSON.
func (router *APIRouter) limitBody() gin.HandlerFunc {
	limit := router.server.MaxBodyBytes
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > limit {
				apierrors.ErrorWithMessage(c, apierrors.CodeBadRequest, "Request body too large")
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
