package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHandlerWritesEndpointEvent(t *testing.T) {
	sessions := NewManager()
	handler := NewStreamHandler(sessions, "http://localhost:8080")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: endpoint\n"))
	assert.Contains(t, body, "/rpc/")
}

func TestStreamHandlerForwardsQueuedEvents(t *testing.T) {
	sessions := NewManager()
	handler := NewStreamHandler(sessions, "http://localhost:8080")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler time to open its session and register it.
	var sessionID string
	require.Eventually(t, func() bool {
		body := rec.Body.String()
		idx := strings.Index(body, "/rpc/")
		if idx < 0 {
			return false
		}
		rest := body[idx+len("/rpc/"):]
		end := strings.IndexAny(rest, `"`+"\n")
		if end < 0 {
			return false
		}
		sessionID = rest[:end]
		return sessionID != ""
	}, time.Second, 5*time.Millisecond)

	session, ok := sessions.Get(sessionID)
	require.True(t, ok)
	session.sendResult(map[string]string{"hello": "world"})

	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body.String(), "hello")
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
