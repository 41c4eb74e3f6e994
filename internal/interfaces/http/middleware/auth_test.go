package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

func echoIdentityHandler(t *testing.T, captured *map[string]string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		(*captured)["userID"] = ContextGetUserID(r.Context())
		(*captured)["role"] = ContextGetUserRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_InjectsIdentity(t *testing.T) {
	captured := map[string]string{}
	m := NewAuthMiddleware(AuthConfig{}, logging.NewNopLogger())
	handler := m.Authenticate()(echoIdentityHandler(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/p1/compliance/score", nil)
	req.Header.Set(HeaderUserID, "user-42")
	req.Header.Set(HeaderUserRole, "project_manager")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", captured["userID"])
	assert.Equal(t, "project_manager", captured["role"])
}

func TestAuthenticate_MissingIdentityRejected(t *testing.T) {
	m := NewAuthMiddleware(AuthConfig{}, logging.NewNopLogger())
	handler := m.Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/p1/compliance/score", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail":"authentication required"}`, w.Body.String())
}

func TestAuthenticate_SkipPaths(t *testing.T) {
	m := NewAuthMiddleware(AuthConfig{SkipPaths: []string{"/public"}}, logging.NewNopLogger())
	handler := m.Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/public/docs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	m := NewAuthMiddleware(AuthConfig{}, logging.NewNopLogger())
	chain := m.Authenticate()(m.RequireRole("admin", "project_manager")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))

	tests := []struct {
		name string
		role string
		want int
	}{
		{"allowed role", "admin", http.StatusOK},
		{"second allowed role", "project_manager", http.StatusOK},
		{"disallowed role", "viewer", http.StatusForbidden},
		{"no role", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/x", nil)
			req.Header.Set(HeaderUserID, "user-1")
			if tt.role != "" {
				req.Header.Set(HeaderUserRole, tt.role)
			}
			w := httptest.NewRecorder()
			chain.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
