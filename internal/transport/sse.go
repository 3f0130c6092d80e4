package transport

import (
	"fmt"
	"net/http"
)

// StreamHandler serves the server-push endpoint: on connect it opens a
// Session, writes the mandatory `endpoint` event, then forwards every
// subsequent event queued for that session as an SSE frame until the
// client disconnects or the request context is cancelled.
type StreamHandler struct {
	sessions *Manager
	basePath string
}

// NewStreamHandler builds the server-push endpoint handler. basePath is
// prefixed onto the `endpoint` event's URL (e.g. the server's own
// externally-reachable origin plus path prefix).
func NewStreamHandler(sessions *Manager, basePath string) *StreamHandler {
	return &StreamHandler{sessions: sessions, basePath: basePath}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	session := h.sessions.Open()
	defer h.sessions.Close(session.id)

	writeSSEFrame(w, "endpoint", []byte(fmt.Sprintf(`{"uri":%q}`, EndpointURL(h.basePath, session.id))))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-session.events:
			if !ok {
				return
			}
			writeSSEFrame(w, ev.name, ev.data)
			flusher.Flush()
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, name string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", name)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
