package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func adminPrincipal() *types.Principal {
	return &types.Principal{ClientName: "admin", Permissions: []types.Permission{types.PermissionAdmin}}
}

func TestRPCHandlerRejectsUnknownSession(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	sessions := NewManager()
	h := NewRPCHandler(sessions, d, func(r *http.Request) string { return "missing" })

	req := httptest.NewRequest(http.MethodPost, "/rpc/missing", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestRPCHandlerRejectsMalformedBody(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	sessions := NewManager()
	session := sessions.Open()
	h := NewRPCHandler(sessions, d, func(r *http.Request) string { return session.ID() })

	req := httptest.NewRequest(http.MethodPost, "/rpc/"+session.ID(), strings.NewReader(`not-json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRPCHandlerDispatchesAndPushesResult(t *testing.T) {
	d := newTestDispatcherForTransport(t)
	sessions := NewManager()
	session := sessions.Open()
	h := NewRPCHandler(sessions, d, func(r *http.Request) string { return session.ID() })

	body := `{"id":1,"method":"tools/call","params":{"name":"memory_list","arguments":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/rpc/"+session.ID(), strings.NewReader(body))
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), adminPrincipal()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		select {
		case ev := <-session.events:
			return strings.Contains(string(ev.data), `"id":1`)
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
