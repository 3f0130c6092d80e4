package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/dispatcher"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// rpcRequest is a JSON-RPC 2.0 tools/call envelope, matching the shape
// internal/api/mcp's MCPToolCallParams generalizes from.
type rpcRequest struct {
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type rpcResponse struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RPCHandler serves POSTs to the per-session endpoint the StreamHandler
// hands out. It decodes the JSON-RPC message, dispatches the named tool
// under the request's authenticated principal, and pushes the response
// back over the caller's SSE session rather than in the HTTP response
// body — the POST only ever acknowledges receipt (§4.12's "push plus
// POST-back" framing).
type RPCHandler struct {
	sessions    *Manager
	dispatcher  *dispatcher.Dispatcher
	sessionIDOf func(r *http.Request) string
}

// NewRPCHandler builds the POST-back handler. sessionIDOf extracts the
// session id from the request (e.g. a path value set by the router).
func NewRPCHandler(sessions *Manager, d *dispatcher.Dispatcher, sessionIDOf func(r *http.Request) string) *RPCHandler {
	return &RPCHandler{sessions: sessions, dispatcher: d, sessionIDOf: sessionIDOf}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionIDOf(r)
	session, ok := h.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "unknown or closed session", http.StatusGone)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed JSON-RPC message", http.StatusBadRequest)
		return
	}

	principal := auth.PrincipalFromContext(r.Context())

	// The call runs detached from the request context, so a client
	// disconnect does not cancel it; it reports back over the session
	// rather than blocking the POST.
	go h.dispatch(context.Background(), session, req, principal)

	w.WriteHeader(http.StatusAccepted)
}

func (h *RPCHandler) dispatch(ctx context.Context, session *Session, req rpcRequest, principal *types.Principal) {
	if req.Method != "tools/call" {
		session.sendResult(rpcResponse{ID: req.ID, Error: &rpcError{Code: "invalid_argument", Message: "unsupported method " + req.Method}})
		return
	}

	var params rpcToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		session.sendResult(rpcResponse{ID: req.ID, Error: &rpcError{Code: "invalid_argument", Message: "malformed params"}})
		return
	}

	result, err := h.dispatcher.Dispatch(ctx, principal, params.Name, params.Arguments, session)
	if err != nil {
		session.sendResult(rpcResponse{ID: req.ID, Error: &rpcError{Code: string(apperr.KindOf(err)), Message: err.Error()}})
		return
	}
	session.sendResult(rpcResponse{ID: req.ID, Result: result})
}
