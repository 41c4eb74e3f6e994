// Package middleware holds the HTTP middleware chain: authentication,
// project scoping, rate limiting, request logging, and CORS.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// Identity headers injected by the authenticating gateway.  The engine
// trusts these headers; terminating session auth is the gateway's job.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// SkipPaths are paths that bypass authentication entirely.
	SkipPaths []string
}

// AuthMiddleware resolves the caller identity from trusted gateway headers.
type AuthMiddleware struct {
	config AuthConfig
	logger logging.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(config AuthConfig, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
		logger: logger.Named("auth"),
	}
}

// Authenticate returns middleware that enforces the presence of a caller
// identity.  Requests without one receive 401 Unauthorized.
func (m *AuthMiddleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.shouldSkip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				m.logger.Debug("request without identity rejected",
					logging.String("path", r.URL.Path))
				writeUnauthorized(w, "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), common.ContextKeyUserID, userID)
			if role := strings.TrimSpace(r.Header.Get(HeaderUserRole)); role != "" {
				ctx = context.WithValue(ctx, common.ContextKeyUserRole, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that rejects callers whose role is not in
// the allow list.  It must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := ContextGetUserRole(r.Context())
			if !allowed[role] {
				m.logger.Debug("insufficient role",
					logging.String("role", role),
					logging.String("path", r.URL.Path))
				writeForbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// shouldSkip checks if the given path should bypass authentication.
func (m *AuthMiddleware) shouldSkip(path string) bool {
	for _, skip := range m.config.SkipPaths {
		if path == skip || strings.HasPrefix(path, skip+"/") {
			return true
		}
	}
	return false
}

// ContextGetUserID retrieves the authenticated user ID from the context.
// Returns empty string for anonymous requests.
func ContextGetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(common.ContextKeyUserID).(string)
	return userID
}

// ContextGetUserRole retrieves the caller role from the context.
func ContextGetUserRole(ctx context.Context) string {
	role, _ := ctx.Value(common.ContextKeyUserRole).(string)
	return role
}

// writeUnauthorized writes a 401 Unauthorized JSON response.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"detail":"` + detail + `"}`))
}

// writeForbidden writes a 403 Forbidden JSON response.
func writeForbidden(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"detail":"` + detail + `"}`))
}
