// Package transport implements §4.12's two endpoints: a server-push
// stream that issues a per-connection session id and an `endpoint`
// event naming the URL for POSTed JSON-RPC messages, and a Bearer-
// authenticated REST surface over the same dispatcher.
//
// Grounded on web/handlers/websocket.go's WebSocketHub (register/
// unregister channels, per-client bounded send channel, drop-on-full
// back-pressure) and internal/server/server.go's mux-wiring and
// graceful-shutdown shape, adapted from a broadcast WebSocket hub to
// per-session unicast SSE framing: each session has exactly one
// consumer (the client that opened the stream), not every connected
// client, since a tool call's result must reach only the caller that
// made it.
package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/graphmemory/graphmemory/internal/ingest"
)

// eventQueueSize bounds each session's outgoing event channel (§5's
// "Progress notifications on the server-push channel are bounded
// per-connection; slow consumers cause notification drops, never
// ingestion stalls").
const eventQueueSize = 256

// event is one SSE frame: a named event plus its JSON payload.
type event struct {
	name string
	data []byte
}

// Session represents one open server-push connection.
type Session struct {
	id     string
	events chan event
}

// ID returns the session's identifier, embedded in the `endpoint`
// event's URL so the client can address subsequent POSTs to it.
func (s *Session) ID() string { return s.id }

// Notify implements ingest.ProgressSink, translating pipeline progress
// into a "progress" SSE event scoped to this session.
func (s *Session) Notify(ev ingest.ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("transport: marshal progress event: %v", err)
		return
	}
	s.enqueue(event{name: "progress", data: data})
}

// sendResult pushes a JSON-RPC-style result or error frame for a
// completed tool call.
func (s *Session) sendResult(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("transport: marshal result: %v", err)
		return
	}
	s.enqueue(event{name: "message", data: data})
}

func (s *Session) enqueue(e event) {
	select {
	case s.events <- e:
	default:
		log.Printf("transport: session %s send buffer full, dropping %q event", s.id, e.name)
	}
}

var _ ingest.ProgressSink = (*Session)(nil)

// Manager owns every open session, keyed by id, matching
// WebSocketHub's clients map but addressed by id instead of broadcast
// to every client.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager constructs an empty session Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Open creates and registers a new Session.
func (m *Manager) Open() *Session {
	s := &Session{id: uuid.New().String(), events: make(chan event, eventQueueSize)}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Close unregisters and closes sessionID's event channel, if open.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		close(s.events)
		delete(m.sessions, sessionID)
	}
}

// Get returns the open Session for sessionID, or false if it does not
// exist (already closed, or never opened).
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// EndpointURL is the POST-back URL pushed as the `endpoint` event's
// payload, per §4.12: "pushes an endpoint event whose payload is the
// URL to which the client must POST subsequent JSON-RPC messages."
func EndpointURL(basePath, sessionID string) string {
	return fmt.Sprintf("%s/rpc/%s", basePath, sessionID)
}
