package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRequest(headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	m := NewMiddleware(zap.NewNop())

	var got *Caller
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, newRequest(map[string]string{HeaderUserID: "user-1", HeaderTenant: "tenant-a"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.False(t, got.IsAdmin)
}

func TestMiddleware_RequireAuth_DefaultTenant(t *testing.T) {
	m := NewMiddleware(zap.NewNop())

	var tenant string
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		tenant = GetTenantIDFromContext(r.Context())
	})

	handler(httptest.NewRecorder(), newRequest(map[string]string{HeaderUserID: "user-1"}))

	assert.Equal(t, DefaultTenant, tenant)
}

func TestMiddleware_RequireAuth_MissingUser(t *testing.T) {
	m := NewMiddleware(zap.NewNop())

	called := false
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, newRequest(map[string]string{HeaderTenant: "tenant-a"}))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	m := NewMiddleware(zap.NewNop())

	tests := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"admin", map[string]string{HeaderUserID: "u", HeaderIsAdmin: "true"}, http.StatusOK},
		{"not admin", map[string]string{HeaderUserID: "u", HeaderIsAdmin: "false"}, http.StatusForbidden},
		{"garbage flag", map[string]string{HeaderUserID: "u", HeaderIsAdmin: "yes please"}, http.StatusForbidden},
		{"anonymous", map[string]string{HeaderIsAdmin: "true"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := m.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			rec := httptest.NewRecorder()
			handler(rec, newRequest(tt.headers))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
