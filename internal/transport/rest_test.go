package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphmemory/graphmemory/internal/auth"
)

func TestHealthIsPublicAndReportsVersion(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	rest := NewRESTHandlers(d, "0.1.0", memoryIDFromPath)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	rest.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0.1.0")
}

func TestMemoriesListsCreatedMemory(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	rest := NewRESTHandlers(d, "0.1.0", memoryIDFromPath)

	_, err := d.Dispatch(context.Background(), adminPrincipal(), "memory_create", []byte(`{"memory_id":"notes","name":"notes","ontology":"legal"}`), nil)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), adminPrincipal()))
	rec := httptest.NewRecorder()
	rest.Memories(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes")
}

func TestGraphExtractsMemoryIDFromPath(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	rest := NewRESTHandlers(d, "0.1.0", memoryIDFromPath)

	_, err := d.Dispatch(context.Background(), adminPrincipal(), "memory_create", []byte(`{"memory_id":"notes","name":"notes","ontology":"legal"}`), nil)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/graph/notes", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), adminPrincipal()))
	rec := httptest.NewRecorder()
	rest.Graph(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAskRejectsMalformedBody(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	rest := NewRESTHandlers(d, "0.1.0", memoryIDFromPath)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("not-json"))
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), adminPrincipal()))
	rec := httptest.NewRecorder()
	rest.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemoriesRejectsWrongMethod(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	rest := NewRESTHandlers(d, "0.1.0", memoryIDFromPath)

	req := httptest.NewRequest(http.MethodPost, "/api/memories", nil)
	rec := httptest.NewRecorder()
	rest.Memories(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
