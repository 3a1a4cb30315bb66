package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/middleware"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/report"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("regular user", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{"username": "bob", "password": "correct horse"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.True(t, body.Success)
		assert.Equal(t, http.StatusOK, body.StatusCode)
		assert.Equal(t, "User logged in successfully", body.Message)

		var data struct {
			User         models.UserSummary `json:"user"`
			AccessToken  string             `json:"accessToken"`
			RefreshToken string             `json:"refreshToken"`
		}
		require.NoError(t, json.Unmarshal(body.Data, &data))
		assert.Equal(t, "bob", data.User.ID)
		assert.Equal(t, "token-bob", data.AccessToken)
		assert.Equal(t, "refresh-bob", data.RefreshToken)

		cookie := cookieNamed(w, middleware.AccessTokenCookie)
		require.NotNil(t, cookie)
		assert.Equal(t, "token-bob", cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("admin", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{"username": "admin", "password": "correct horse"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Admin logged in successfully", decode(t, w).Message)
	})

	t.Run("unknown id and wrong password look the same", func(t *testing.T) {
		unknown := env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{"username": "mallory", "password": "correct horse"})
		wrong := env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{"username": "bob", "password": "nope"})

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, unknown.Code, wrong.Code)
		assert.JSONEq(t, unknown.Body.String(), wrong.Body.String())
		assert.Nil(t, cookieNamed(wrong, middleware.AccessTokenCookie))
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.CodeBadRequest, decode(t, w).ErrorCode)
	})
}

func TestAccessTokenCookieAuthenticates(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/current-user", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: "token-bob"})
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &user))
	assert.Equal(t, "bob", user.ID)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t, testConfig())

	t.Run("from body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/refresh-token", "token-bob", map[string]string{"refreshToken": "refresh-bob"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Access token refreshed successfully", decode(t, w).Message)
		assert.NotNil(t, cookieNamed(w, middleware.AccessTokenCookie))
		assert.NotNil(t, cookieNamed(w, RefreshTokenCookie))
	})

	t.Run("from cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh-token", nil)
		req.Header.Set("Authorization", "Bearer token-bob")
		req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh-bob"})
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("token of another user", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/refresh-token", "token-bob", map[string]string{"refreshToken": "refresh-alice"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, cookieNamed(w, RefreshTokenCookie))
	})
}

func TestLogoutClearsCookies(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodPost, "/api/v1/logout", "token-bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User logged out successfully", decode(t, w).Message)

	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		cookie := cookieNamed(w, name)
		require.NotNil(t, cookie, name)
		assert.Empty(t, cookie.Value)
		assert.Less(t, cookie.MaxAge, 0)
	}
	assert.Equal(t, []string{"bob"}, env.auth.loggedOut)
}

func TestDeleteOwnAccountForbidden(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodDelete, "/api/v1/users/admin", "token-admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/users/alice", "token-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"alice"}`, string(decode(t, w).Data))
}

func TestListUsersWrapsResult(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodGet, "/api/v1/users", "token-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":[]}`, string(decode(t, w).Data))
}

func TestCreateDepartmentTwiceConflicts(t *testing.T) {
	env := newTestEnv(t, testConfig())
	body := map[string]string{"name": "Electrical", "type": "Maintenance"}

	w := env.do(t, http.MethodPost, "/api/v1/departments", "token-admin", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Department added successfully", decode(t, w).Message)

	w = env.do(t, http.MethodPost, "/api/v1/departments", "token-admin", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	env409 := decode(t, w)
	assert.Equal(t, apierrors.CodeConflict, env409.ErrorCode)
	assert.Equal(t, http.StatusConflict, env409.Status)
}

func TestInvalidPathID(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodDelete, "/api/v1/departments/abc", "token-admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid department ID", decode(t, w).Message)
}

// Story: an admin creates a maintenance department, a user raises an issue
// against it and a member of that department acknowledges and completes it.
func TestBehaviour_IssueLifecycle(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodPost, "/api/v1/departments", "token-admin", map[string]string{"name": "Electrical", "type": "Maintenance"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/raise-issue", "token-alice", models.NewIssue{
		Issue:             "Flickering lights",
		Description:       "Corridor B",
		Address:           "Block 4",
		RequireDepartment: "Electrical",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Issue created successfully", decode(t, w).Message)

	var pending []models.Issue
	w = env.do(t, http.MethodGet, "/api/v1/get-issue", "token-bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &pending))
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Complete)
	assert.Nil(t, pending[0].AcknowledgeAt)
	id := pending[0].ID

	w = env.do(t, http.MethodPost, "/api/v1/acknowledge-time", "token-bob", map[string]any{"responseId": fmt.Sprint(id)})
	require.Equal(t, http.StatusOK, w.Code)
	var acked models.Issue
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &acked))
	assert.NotNil(t, acked.AcknowledgeAt)
	assert.False(t, acked.Complete)

	w = env.do(t, http.MethodPost, "/api/v1/complete-report", "token-bob", map[string]any{"issueId": id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Issue marked as complete successfully", decode(t, w).Message)
	var completed struct {
		Issue models.IssueDetail `json:"issue"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &completed))
	assert.True(t, completed.Issue.Complete)
	assert.NotNil(t, completed.Issue.AcknowledgeAt)

	w = env.do(t, http.MethodGet, "/api/v1/get-issue", "token-bob", nil)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestRaiseIssueUnknownDepartment(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodPost, "/api/v1/raise-issue", "token-alice", models.NewIssue{
		Issue: "Leak", Description: "Roof", Address: "Block 1", RequireDepartment: "Plumbing",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcknowledgeRequiresIssueID(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodPost, "/api/v1/acknowledge-time", "token-bob", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Issue ID is required", decode(t, w).Message)
}

func TestFetchReportAsSpreadsheet(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, err := env.depts.Create(context.Background(), "Electrical", "Maintenance")
	require.NoError(t, err)
	w := env.do(t, http.MethodPost, "/api/v1/raise-issue", "token-alice", models.NewIssue{
		Issue: "Flickering lights", Description: "Corridor B", Address: "Block 4", RequireDepartment: "Electrical",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/fetch-report?format=xlsx", "token-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), report.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Problem", rows[0][0])
	assert.Equal(t, "Flickering lights", rows[1][0])

	w = env.do(t, http.MethodGet, "/api/v1/fetch-report", "token-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jsonRows []models.ReportRow
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &jsonRows))
	assert.Len(t, jsonRows, 1)
}

func TestLicenseUploadThenFetch(t *testing.T) {
	env := newTestEnv(t, testConfig())
	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

	w := env.do(t, http.MethodPost, "/api/v1/licenses/upload", "token-admin", map[string]any{
		"file": map[string]string{
			"name": "fire-safety.pdf",
			"type": models.MimePDF,
			"data": base64.StdEncoding.EncodeToString(pdf),
		},
		"expiry_date":   "30-06-2026",
		"department_id": "1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, http.StatusCreated, body.StatusCode)
	assert.Equal(t, "License uploaded successfully", body.Message)
	assert.JSONEq(t, `{"licenseId":1}`, string(body.Data))

	// Anchor and iframe navigation can only carry the token in the query.
	w = env.do(t, http.MethodGet, "/api/v1/licenses/1?token=token-admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MimePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename=fire-safety.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, pdf, w.Body.Bytes())

	w = env.do(t, http.MethodGet, "/api/v1/licenses/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/licenses/1", "token-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, string(decode(t, w).Data))

	w = env.do(t, http.MethodGet, "/api/v1/licenses/1", "token-admin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateResponseAcceptsStringIssueID(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, http.MethodPut, "/api/v1/update-response", "token-bob", map[string]any{
		"issueId":     "5",
		"description": "Breaker swapped",
		"complete":    true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.Response
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, int64(5), resp.IssueID)
	assert.True(t, resp.Complete)

	w = env.do(t, http.MethodPut, "/api/v1/update-response", "token-bob", map[string]any{"issueId": "five"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
