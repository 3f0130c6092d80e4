package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/graphstore"
)

func TestMuxHealthIsExemptFromAuth(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	authManager := auth.New(graphstore.NewFake(), "bootstrap-secret")
	mux := NewMux(d, authManager, "0.1.0", "http://localhost:8080")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMuxRejectsUnauthenticatedAPICall(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	authManager := auth.New(graphstore.NewFake(), "bootstrap-secret")
	mux := NewMux(d, authManager, "0.1.0", "http://localhost:8080")

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMuxAcceptsBootstrapKeyForAPICall(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	authManager := auth.New(graphstore.NewFake(), "bootstrap-secret")
	mux := NewMux(d, authManager, "0.1.0", "http://localhost:8080")

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	req.Header.Set("Authorization", "Bearer bootstrap-secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
