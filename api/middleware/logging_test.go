package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hounddogai/scan-engine/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerGeneratesRequestIDAndScopesTheLogger(t *testing.T) {
	var sawRequestIDHeader string
	var scopedLoggerDiffersFromGlobal bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRequestIDHeader = r.Header.Get("X-Request-ID")
		scopedLoggerDiffersFromGlobal = logger.FromContext(r.Context()) != logger.Get()
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/scan/abc/status", nil)
	rec := httptest.NewRecorder()

	RequestLogger(next).ServeHTTP(rec, req)

	require.NotEmpty(t, sawRequestIDHeader)
	assert.True(t, scopedLoggerDiffersFromGlobal, "RequestLogger should attach a request-scoped logger, not the global one")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequestLoggerPreservesExistingRequestID(t *testing.T) {
	var sawRequestIDHeader string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRequestIDHeader = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/scan/abc/status", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()

	RequestLogger(next).ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied-id", sawRequestIDHeader)
}
