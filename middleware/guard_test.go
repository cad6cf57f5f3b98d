package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/docstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *authcore.Engine {
	t.Helper()
	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(strings.Repeat("m", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	engine, err := authcore.New().WithConfig(cfg).WithStore(memstore.New()).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func TestGuardAndRequireRole(t *testing.T) {
	engine := newEngine(t)
	res := engine.Register(context.Background(), authcore.RegisterRequest{Email: "a@x.com", Password: "Str0ng!Pass"})
	require.True(t, res.Success)

	var seen authcore.Identity
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authcore.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := Guard(engine)(echo)
	adminOnly := Guard(engine)(RequireRole(authcore.RoleAdmin)(echo))

	tests := []struct {
		name    string
		handler http.Handler
		header  string
		want    int
	}{
		{name: "no header", handler: guarded, want: http.StatusUnauthorized},
		{name: "not bearer", handler: guarded, header: "Basic abc", want: http.StatusUnauthorized},
		{name: "bad token", handler: guarded, header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", handler: guarded, header: "Bearer " + res.Token, want: http.StatusNoContent},
		{name: "user on admin route", handler: adminOnly, header: "Bearer " + res.Token, want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Equal(t, res.User.ID, seen.UserID)
}

func TestClientInfo(t *testing.T) {
	var got *http.Request
	h := ClientInfo(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = r }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "probe/1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)

	assert.Equal(t, "203.0.113.9", clientIP(got, true))
	assert.Equal(t, "10.0.0.1", clientIP(got, false))
}
