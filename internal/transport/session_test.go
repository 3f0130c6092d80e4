package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/ingest"
)

func TestManagerOpenCloseGet(t *testing.T) {
	m := NewManager()
	s := m.Open()
	require.NotEmpty(t, s.ID())

	got, ok := m.Get(s.ID())
	assert.True(t, ok)
	assert.Same(t, s, got)

	m.Close(s.ID())
	_, ok = m.Get(s.ID())
	assert.False(t, ok)
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := NewManager()
	_, ok := m.Get("nonexistent")
	assert.False(t, ok)
}

func TestSessionNotifyEnqueuesProgressEvent(t *testing.T) {
	s := &Session{id: "s1", events: make(chan event, 1)}
	s.Notify(ingest.ProgressEvent{Phase: "chunking"})

	select {
	case ev := <-s.events:
		assert.Equal(t, "progress", ev.name)
		assert.Contains(t, string(ev.data), "chunking")
	default:
		t.Fatal("expected a queued progress event")
	}
}

func TestSessionSendResultEnqueuesMessageEvent(t *testing.T) {
	s := &Session{id: "s1", events: make(chan event, 1)}
	s.sendResult(map[string]string{"status": "ok"})

	ev := <-s.events
	assert.Equal(t, "message", ev.name)
	assert.Contains(t, string(ev.data), "ok")
}

func TestSessionEnqueueDropsWhenBufferFull(t *testing.T) {
	s := &Session{id: "s1", events: make(chan event, 1)}
	s.enqueue(event{name: "progress", data: []byte("1")})
	s.enqueue(event{name: "progress", data: []byte("2")})

	ev := <-s.events
	assert.Equal(t, []byte("1"), ev.data)
	select {
	case <-s.events:
		t.Fatal("second event should have been dropped, not queued")
	default:
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/rpc/abc-123", EndpointURL("http://localhost:8080", "abc-123"))
}
