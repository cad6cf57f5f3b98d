package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/memstore"
	"github.com/gorilla/mux"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userEmail  = "alice@x.com"
	adminEmail = "root@x.com"
	password   = "Str0ng!Pass"
)

type apiEnv struct {
	store  docstore.Store
	router *mux.Router
}

type apiResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Token             string `json:"token"`
	RemainingAttempts int    `json:"remainingAttempts"`
	User              *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Logs []map[string]any `json:"logs"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	cfg := defaultServerConfig()
	cfg.Auth.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.Auth.Password.Memory = 8 * 1024
	cfg.Auth.Password.Time = 1
	cfg.Auth.Password.Parallelism = 1
	cfg.Auth.Audit.Async = false

	store := memstore.New()
	logger, _ := logtest.NewNullLogger()
	engine, err := buildEngine(&cfg, store, logger)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return &apiEnv{store: store, router: newRouter(engine, false, metrics)}
}

func (env *apiEnv) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var out apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (env *apiEnv) register(t *testing.T, email string) apiResponse {
	t.Helper()
	code, res := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": password, "name": "Test",
	})
	require.Equal(t, http.StatusCreated, code, res.Message)
	return res
}

func (env *apiEnv) promote(t *testing.T, email string) string {
	t.Helper()
	_, err := env.store.UpdateOne(context.Background(), "users",
		docstore.Filter{"email": email},
		docstore.Update{Set: map[string]any{"role": authcore.RoleAdmin}},
	)
	require.NoError(t, err)
	code, res := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, res.Message)
	return res.Token
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newAPIEnv(t)
	reg := env.register(t, userEmail)
	require.NotNil(t, reg.User)
	assert.Equal(t, authcore.RoleUser, reg.User.Role)
	assert.NotEmpty(t, reg.Token)

	code, dup := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": userEmail, "password": password})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already exists", dup.Message)

	code, login := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": userEmail, "password": password})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", login.Message)

	code, me := env.do(t, http.MethodGet, "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, me.User)
	assert.Equal(t, userEmail, me.User.Email)

	code, _ = env.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLoginFailureReportsRemainingAttempts(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, userEmail)

	code, res := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": userEmail, "password": "Wrong!Pass1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", res.Message)
	assert.Equal(t, 4, res.RemainingAttempts)
}

func TestMalformedBody(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")
}

func TestAdminRoutes(t *testing.T) {
	env := newAPIEnv(t)
	target := env.register(t, userEmail)
	env.register(t, adminEmail)

	code, _ := env.do(t, http.MethodPut, "/users/"+target.User.ID+"/role", target.Token, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, http.MethodGet, "/admin/activity-logs", target.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	adminToken := env.promote(t, adminEmail)

	code, res := env.do(t, http.MethodPut, "/users/"+target.User.ID+"/role", adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Equal(t, authcore.RoleAdmin, res.User.Role)

	code, all := env.do(t, http.MethodGet, "/admin/activity-logs?limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, all.Logs, 2)

	code, changes := env.do(t, http.MethodGet, "/admin/activity-logs/"+authcore.ActionRoleChange, adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, changes.Logs, 1)
	assert.Equal(t, authcore.ActionRoleChange, changes.Logs[0]["action"])
}

func TestOwnActivityLogs(t *testing.T) {
	env := newAPIEnv(t)
	reg := env.register(t, userEmail)
	env.register(t, adminEmail)

	code, res := env.do(t, http.MethodGet, "/auth/activity-logs", reg.Token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, res.Logs, 1)
	assert.Equal(t, authcore.ActionRegister, res.Logs[0]["action"])
	assert.Equal(t, "10.0.0.1", res.Logs[0]["ipAddress"])
}

func TestAccountRoutes(t *testing.T) {
	env := newAPIEnv(t)
	reg := env.register(t, userEmail)

	code, res := env.do(t, http.MethodPost, "/auth/change-password", reg.Token, map[string]string{
		"currentPassword": password, "newPassword": "N3w!Passw0rd",
	})
	require.Equal(t, http.StatusOK, code, res.Message)

	code, _ = env.do(t, http.MethodDelete, "/auth/delete-account", reg.Token, map[string]string{"password": password})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res = env.do(t, http.MethodDelete, "/auth/delete-account", reg.Token, map[string]string{"password": "N3w!Passw0rd"})
	require.Equal(t, http.StatusOK, code, res.Message)
}

func TestForgotPasswordRoute(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, userEmail)

	code, known := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": userEmail})
	require.Equal(t, http.StatusOK, code)
	code, unknown := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "nobody@x.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, known.Message, unknown.Message)

	code, res := env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": "bogus", "password": "N3w!Passw0rd"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", res.Message)
}

func TestStatusAndMetrics(t *testing.T) {
	env := newAPIEnv(t)

	code, res := env.do(t, http.MethodGet, "/status", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestBuildEngineSecret(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	cfg := defaultServerConfig()
	cfg.Store.Kind = storeRedis
	_, err := buildEngine(&cfg, memstore.New(), logger)
	assert.EqualError(t, err, "JWT_SECRET is required")

	cfg = defaultServerConfig()
	cfg.Auth.Password.Memory = 8 * 1024
	cfg.Auth.Password.Time = 1
	engine, err := buildEngine(&cfg, memstore.New(), logger)
	require.NoError(t, err)
	defer engine.Close()
	assert.Len(t, cfg.Auth.JWT.PrivateKey, 43)
	var warned bool
	for _, e := range hook.AllEntries() {
		warned = warned || strings.Contains(e.Message, "generated secret")
	}
	assert.True(t, warned)
}
