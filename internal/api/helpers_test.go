package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/config"
	"github.com/goatkit/issueflow/internal/logging"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/service"
)

func ptr[T any](v T) *T { return &v }

// fakeTokens accepts "token-<user id>" as a valid access token.
type fakeTokens struct{}

func (fakeTokens) ValidateAccessToken(token string) (*auth.Claims, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok || id == "" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: id, TokenType: auth.AccessToken}, nil
}

type fakeAuth struct {
	AuthService
	mu        sync.Mutex
	users     map[string]*models.User
	loggedOut []string
}

func (f *fakeAuth) CurrentUser(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apierrors.NotFound("User not found")
}

func (f *fakeAuth) Login(_ context.Context, id, password string) (*service.LoginResult, error) {
	f.mu.Lock()
	u, ok := f.users[id]
	f.mu.Unlock()
	if !ok || password != "correct horse" {
		return nil, service.ErrInvalidCredentials
	}
	return &service.LoginResult{User: u.Summary(), AccessToken: "token-" + id, RefreshToken: "refresh-" + id}, nil
}

func (f *fakeAuth) Logout(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

func (f *fakeAuth) Refresh(_ context.Context, callerID, token string) (*auth.TokenPair, error) {
	if token != "refresh-"+callerID {
		return nil, apierrors.Unauthorized("Invalid or expired refresh token")
	}
	return &auth.TokenPair{AccessToken: "token-" + callerID, RefreshToken: "refresh-" + callerID}, nil
}

type fakeUsers struct {
	UserService
}

func (fakeUsers) Delete(_ context.Context, actingID, id string) error {
	if actingID == id {
		return apierrors.Forbidden("You cannot delete your own account")
	}
	return nil
}

func (fakeUsers) List(context.Context) ([]models.UserListing, error) {
	return []models.UserListing{}, nil
}

type fakeDepartments struct {
	DepartmentService
	mu    sync.Mutex
	depts []models.Department
}

func (f *fakeDepartments) Create(_ context.Context, name, typ string) (*models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.depts {
		if strings.EqualFold(d.Name, name) {
			return nil, apierrors.Conflict("Department with this name already exists")
		}
	}
	d := models.Department{ID: int64(len(f.depts) + 1), Name: name, Type: typ}
	f.depts = append(f.depts, d)
	return &d, nil
}

func (f *fakeDepartments) List(context.Context) ([]models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Department{}, f.depts...), nil
}

func (f *fakeDepartments) ListMaintenance(context.Context) ([]models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Department{}
	for _, d := range f.depts {
		if models.IsMaintenanceType(d.Type) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDepartments) TypeByName(_ context.Context, name string) (*models.Department, error) {
	d, ok := f.byName(name)
	if !ok {
		return nil, apierrors.NotFound("Department not found")
	}
	return &d, nil
}

func (f *fakeDepartments) byName(name string) (models.Department, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.depts {
		if d.Name == name {
			return d, true
		}
	}
	return models.Department{}, false
}

// fakeIssues is an in-memory issue workflow with the same state rules as
// the real service.
type fakeIssues struct {
	IssueService
	depts  *fakeDepartments
	mu     sync.Mutex
	issues []*models.Issue
}

func (f *fakeIssues) Raise(_ context.Context, reporterID string, in models.NewIssue) (*models.RaisedIssue, error) {
	dept, ok := f.depts.byName(in.RequireDepartment)
	if !ok {
		return nil, apierrors.NotFound("Department not found")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	issue := &models.Issue{
		ID:                  int64(len(f.issues) + 1),
		Issue:               in.Issue,
		Description:         in.Description,
		Address:             in.Address,
		RequireDepartmentID: dept.ID,
		UserID:              ptr(reporterID),
	}
	f.issues = append(f.issues, issue)
	return &models.RaisedIssue{ID: issue.ID, Issue: in.Issue, RequireDepartment: in.RequireDepartment}, nil
}

func (f *fakeIssues) ListForDepartment(_ context.Context, caller *models.User) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Issue{}
	for _, i := range f.issues {
		if !i.Complete && caller.DepartmentID != nil && *caller.DepartmentID == i.RequireDepartmentID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (f *fakeIssues) get(id int64) (*models.Issue, error) {
	for _, i := range f.issues {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, apierrors.NotFound("No issue found with the provided ID")
}

func (f *fakeIssues) Acknowledge(_ context.Context, _ *models.User, id int64) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, err := f.get(id)
	if err != nil {
		return nil, err
	}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	issue.AcknowledgeAt = &now
	issue.Complete = false
	copied := *issue
	return &copied, nil
}

func (f *fakeIssues) Complete(_ context.Context, _ *models.User, id int64) (*models.IssueDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, err := f.get(id)
	if err != nil {
		return nil, err
	}
	issue.Complete = true
	return &models.IssueDetail{Issue: *issue}, nil
}

func (f *fakeIssues) Report(context.Context) ([]models.ReportRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := []models.ReportRow{}
	for _, i := range f.issues {
		rows = append(rows, models.ReportRow{
			ID:        i.ID,
			Issue:     i.Issue,
			Address:   i.Address,
			Complete:  i.Complete,
			CreatedAt: "01-06-2025 08:00:00",
			UpdatedAt: "01-06-2025 08:00:00",
		})
	}
	return rows, nil
}

type fakeResponses struct {
	ResponseService
}

func (fakeResponses) Record(_ context.Context, _ *models.User, in models.ResponseInput) (*models.Response, error) {
	if in.IssueID <= 0 {
		return nil, apierrors.BadRequest("Issue ID is required")
	}
	return &models.Response{ID: 1, IssueID: int64(in.IssueID), Description: in.Description, Complete: in.Complete}, nil
}

type fakeLicenses struct {
	LicenseService
	mu    sync.Mutex
	files map[int64]models.LicenseFile
}

func (f *fakeLicenses) Upload(_ context.Context, in service.LicenseInput) (int64, error) {
	if in.File == nil {
		return 0, apierrors.BadRequest("File, expiry date and department ID are required")
	}
	data, err := base64.StdEncoding.DecodeString(in.File.Data)
	if err != nil {
		return 0, apierrors.BadRequest("File data is not valid base64")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.files) + 1)
	f.files[id] = models.LicenseFile{FileName: in.File.Name, FileType: in.File.Type, FileData: data}
	return id, nil
}

func (f *fakeLicenses) Fetch(_ context.Context, id int64) (*models.LicenseFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, apierrors.NotFound("License not found")
	}
	return &file, nil
}

func (f *fakeLicenses) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return apierrors.NotFound("License not found")
	}
	delete(f.files, id)
	return nil
}

type testEnv struct {
	engine   *gin.Engine
	auth     *fakeAuth
	depts    *fakeDepartments
	issues   *fakeIssues
	licenses *fakeLicenses
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			MaxBodyBytes:   1 << 20,
			CORSOrigin:     "https://issues.example.com",
			MetricsEnabled: true,
		},
		Auth: config.AuthConfig{
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			LoginRateLimit:  3,
		},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	electrical := int64(1)
	env := &testEnv{
		auth: &fakeAuth{users: map[string]*models.User{
			"admin": {ID: "admin", FullName: "Ada Admin", Email: "admin@example.com", IsAdmin: true},
			"bob":   {ID: "bob", FullName: "Bob Sparks", Email: "bob@example.com", DepartmentID: &electrical},
			"alice": {ID: "alice", FullName: "Alice Reporter", Email: "alice@example.com", DepartmentID: ptr(int64(2))},
		}},
		depts:    &fakeDepartments{},
		licenses: &fakeLicenses{files: map[int64]models.LicenseFile{}},
	}
	env.issues = &fakeIssues{depts: env.depts}

	router := NewAPIRouter(Services{
		Auth:        env.auth,
		Users:       fakeUsers{},
		Departments: env.depts,
		Issues:      env.issues,
		Responses:   fakeResponses{},
		Licenses:    env.licenses,
		Tokens:      fakeTokens{},
	}, cfg, logging.Nop(), opts...)
	env.engine = router.Engine()
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`

	Status    int    `json:"status"`
	ErrorCode string `json:"errorCode"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
