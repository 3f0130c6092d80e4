package transport

import (
	"encoding/json"
	"net/http"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/dispatcher"
)

// RESTHandlers serves the plain-JSON surface named in §4.12/§6:
// GET /health, GET /api/memories, GET /api/graph/{memory_id},
// POST /api/ask, POST /api/query. Each authenticated route is a thin
// wrapper translating its HTTP verb/path into the equivalent tool call,
// so permission and memory-scope enforcement stays centralized in
// dispatcher.Dispatcher rather than duplicated per REST handler.
type RESTHandlers struct {
	dispatcher *dispatcher.Dispatcher
	version    string
	memoryIDOf func(r *http.Request) string
}

// NewRESTHandlers builds the REST surface. memoryIDOf extracts
// {memory_id} from a request's path (the router passes
// memoryIDFromPath, which trims the /api/graph/ prefix).
func NewRESTHandlers(d *dispatcher.Dispatcher, version string, memoryIDOf func(r *http.Request) string) *RESTHandlers {
	return &RESTHandlers{dispatcher: d, version: version, memoryIDOf: memoryIDOf}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindAlreadyExists, apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindInvalidArgument:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindQuotaExceeded:
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": string(apperr.KindOf(err))})
}

// Health serves GET /health — public, no auth. It reports status and
// the server version only; it runs no dependency probe (the
// system_health tool does that, for authenticated callers).
func (h *RESTHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": h.version})
}

func (h *RESTHandlers) Memories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	result, err := h.dispatcher.Dispatch(r.Context(), principal, "memory_list", nil, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RESTHandlers) Graph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	args, _ := json.Marshal(map[string]string{"memory_id": h.memoryIDOf(r)})
	result, err := h.dispatcher.Dispatch(r.Context(), principal, "memory_graph", args, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RESTHandlers) Ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	body, err := readBody(r)
	if err != nil {
		writeError(w, apperr.InvalidArgument("malformed JSON body: %v", err))
		return
	}
	result, err := h.dispatcher.Dispatch(r.Context(), principal, "question_answer", body, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RESTHandlers) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	body, err := readBody(r)
	if err != nil {
		writeError(w, apperr.InvalidArgument("malformed JSON body: %v", err))
		return
	}
	result, err := h.dispatcher.Dispatch(r.Context(), principal, "memory_query", body, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func readBody(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
