package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthAllowsExemptPathWithoutToken(t *testing.T) {
	m := New(graphstore.NewFake(), "secret")
	handler := RequireAuth(okHandler(), m, "/health")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsMissingBearer(t *testing.T) {
	m := New(graphstore.NewFake(), "secret")
	handler := RequireAuth(okHandler(), m, "/health")

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsValidBearer(t *testing.T) {
	m := New(graphstore.NewFake(), "secret")
	handler := RequireAuth(okHandler(), m, "/health")

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthAttachesPrincipalToContext(t *testing.T) {
	m := New(graphstore.NewFake(), "secret")
	var seen *types.Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(inner, m)

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Equal(t, "bootstrap", seen.ClientName)
}

func TestRequirePermissionRejectsInsufficientPrincipal(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	raw, _, err := m.CreateToken(context.Background(), "reader", "", []types.Permission{types.PermissionRead}, nil, nil)
	require.NoError(t, err)

	handler := RequireAuth(RequirePermission(okHandler(), types.PermissionAdmin), m)

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitMiddlewareRejectsOverBudgetRequests(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	handler := RateLimitMiddleware(okHandler(), rl)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
