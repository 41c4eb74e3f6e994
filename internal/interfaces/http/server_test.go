package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efilo-ai/compliance-engine/internal/config"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

func TestNewServer_Defaults(t *testing.T) {
	server := NewServer(config.ServerConfig{Port: 8080}, http.NewServeMux(), logging.NewNopLogger())

	require.NotNil(t, server)
	assert.Equal(t, ":8080", server.srv.Addr)
	assert.Equal(t, 15*time.Second, server.srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, server.srv.WriteTimeout)
}

func TestNewServer_ConfiguredTimeouts(t *testing.T) {
	server := NewServer(config.ServerConfig{
		Port:         9000,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}, http.NewServeMux(), logging.NewNopLogger())

	assert.Equal(t, 5*time.Second, server.srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, server.srv.WriteTimeout)
}

func TestNewServer_BodyLimitEnforced(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := NewServer(config.ServerConfig{Port: 8080, MaxBodySize: 16}, echo, logging.NewNopLogger())

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny"))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, small)
	assert.Equal(t, http.StatusOK, w.Code)

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
