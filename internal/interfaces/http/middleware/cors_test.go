package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(handler http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/projects/p1/compliance/score", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := CORS(DefaultCORSConfig("https://app.efilo.ai"))(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://app.efilo.ai")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.efilo.ai", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-RateLimit-Limit")
}

func TestCORS_DisallowedOriginGetsNoHeaders(t *testing.T) {
	handler := CORS(DefaultCORSConfig("https://app.efilo.ai"))(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://evil.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(DefaultCORSConfig("https://app.efilo.ai"))(okHandler())

	w := corsRequest(handler, http.MethodOptions, "https://app.efilo.ai")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderUserID)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_NoOriginPassesThrough(t *testing.T) {
	handler := CORS(DefaultCORSConfig("https://app.efilo.ai"))(okHandler())

	w := corsRequest(handler, http.MethodGet, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardWithoutCredentials(t *testing.T) {
	cfg := DefaultCORSConfig("*")
	cfg.AllowCredentials = false
	handler := CORS(cfg)(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://anywhere.example.com")

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
