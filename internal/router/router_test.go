package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/auth"
	"caseflow/internal/config"
	"caseflow/internal/handler"
	"caseflow/internal/metrics"
	"caseflow/internal/model"
	"caseflow/internal/repository"
	"caseflow/internal/service"
)

// memoryTokenStore stands in for the Redis blacklist.
type memoryTokenStore struct {
	revoked map[string]bool
}

func (s *memoryTokenStore) BlacklistAccessToken(_ context.Context, tokenID string, _ time.Duration) error {
	s.revoked[tokenID] = true
	return nil
}

func (s *memoryTokenStore) IsAccessTokenBlacklisted(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], nil
}

type testServer struct {
	e     *echo.Echo
	store *repository.MemoryStore
	jwt   *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	users := service.NewUserService(store, nil)
	_, err := users.SeedUsers(ctx, service.DefaultUsers)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	tokens := &memoryTokenStore{revoked: map[string]bool{}}
	cases := service.NewCaseService(store, store, nil, metrics.New(reg), nil, service.Options{})

	e := echo.New()
	Register(e, &config.Config{CORSAllowOrigins: []string{"*"}}, Dependencies{
		AuthHandler: handler.NewAuthHandler(service.NewAuthService(store, jwtService, tokens, nil)),
		CaseHandler: handler.NewCaseHandler(cases),
		UserHandler: handler.NewUserHandler(cases),
		JWTService:  jwtService,
		TokenStore:  tokens,
		Users:       store,
		Gatherer:    reg,
	})
	return &testServer{e: e, store: store, jwt: jwtService}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) (string, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res handler.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "bearer", res.TokenType)
	return res.AccessToken, res.User.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_CaseLifecycle(t *testing.T) {
	s := newTestServer(t)
	year := time.Now().UTC().Year()

	rec := s.do(t, http.MethodPost, "/api/cases/submit", "",
		`{"case_type":"birth_registration","submitter_data":{"child_name":"X"},"documents":["cert.pdf"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decode[handler.SubmitCaseResponse](t, rec)
	assert.True(t, submitted.Success)
	assert.Equal(t, "BR-"+strconv.Itoa(year)+"-0001", submitted.CaseNumber)

	registrar, _ := s.login(t, "registrar1", "reg123")
	lawyer, lawyerID := s.login(t, "lawyer1", "law123")

	rec = s.do(t, http.MethodGet, "/api/cases/"+submitted.CaseID, lawyer, "")
	assert.Equal(t, http.StatusOK, rec.Code, "submitted cases are readable by staff")

	rec = s.do(t, http.MethodPost, "/api/cases/"+submitted.CaseID+"/workflow", lawyer, `{"action":"review"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cases/"+submitted.CaseID+"/workflow", registrar, `{"action":"approve"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TRANSITION")

	rec = s.do(t, http.MethodPost, "/api/cases/"+submitted.CaseID+"/workflow", registrar,
		`{"action":"assign","assigned_to":"`+lawyerID+`","comment":"yours"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Case assign successfully", decode[handler.WorkflowActionResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/api/cases/"+submitted.CaseID+"/workflow", lawyer, `{"action":"review"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/cases/"+submitted.CaseID+"/workflow", lawyer, `{"action":"approve"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", string(decode[handler.WorkflowActionResponse](t, rec).Status))

	rec = s.do(t, http.MethodGet, "/api/cases/"+submitted.CaseID, lawyer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, "approved", detail["status"])
	assert.Len(t, detail["workflow_history"], 4)

	rec = s.do(t, http.MethodGet, "/api/cases", registrar, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/dashboard/stats", lawyer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"by_status":{"approved":1},"by_type":{"birth_registration":1},"my_assigned":1}`, rec.Body.String())
}

func TestRouter_Authentication(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/cases", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token, _ := s.login(t, "admin", "admin123")
	rec = s.do(t, http.MethodGet, "/api/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"supervisor"`)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_TokenSubjectMustBeActiveUser(t *testing.T) {
	s := newTestServer(t)

	ghost, _, err := s.jwt.GenerateAccessToken(&model.User{
		ID:       "00000000-0000-4000-8000-000000000000",
		Username: "ghost",
		FullName: "Removed Supervisor",
		Role:     model.RoleSupervisor,
		Active:   true,
	})
	require.NoError(t, err)

	retired := &model.User{
		ID:       "00000000-0000-4000-8000-000000000001",
		Username: "retired",
		FullName: "Retired Registrar",
		Role:     model.RoleRegistrar,
		Active:   false,
	}
	require.NoError(t, s.store.Create(context.Background(), retired))
	inactive, _, err := s.jwt.GenerateAccessToken(&model.User{
		ID:       retired.ID,
		Username: retired.Username,
		FullName: retired.FullName,
		Role:     model.RoleRegistrar,
		Active:   true,
	})
	require.NoError(t, err)

	for _, path := range []string{"/api/cases", "/api/users", "/api/me"} {
		rec := s.do(t, http.MethodGet, path, ghost, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "user not found", path)

		rec = s.do(t, http.MethodGet, path, inactive, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "user is inactive", path)
	}
}

func TestRouter_ListUsers(t *testing.T) {
	s := newTestServer(t)

	registrar, _ := s.login(t, "registrar1", "reg123")
	rec := s.do(t, http.MethodGet, "/api/users", registrar, "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]map[string]any](t, rec)
	assert.Len(t, users, 4)
	assert.NotContains(t, rec.Body.String(), "password")

	assistant, _ := s.login(t, "assistant1", "ass123")
	rec = s.do(t, http.MethodGet, "/api/users", assistant, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_Infrastructure(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	s.do(t, http.MethodPost, "/api/cases/submit", "", `{"case_type":"land_registration","submitter_data":{}}`)
	rec = s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `caseflow_cases_submitted_total{case_type="land_registration"} 1`)

	rec = s.do(t, http.MethodPost, "/api/cases/submit", "", `{"case_type":"land_registration","submitter_data":{}}`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
