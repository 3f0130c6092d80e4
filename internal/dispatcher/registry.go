// Package dispatcher implements §4.12's tool registry: a declarative
// table of name, argument schema, required permission, and optional
// memory-scope extractor per tool, with per-call principal and
// progress-sink binding.
//
// Grounded on internal/api/mcp/server.go's functional-options Server plus
// its tools/call method-dispatch switch, generalized from a hardcoded
// switch statement into a map-driven registry so that permission and
// memory-scope enforcement is declared once per tool rather than
// reimplemented inside each handler.
package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/ingest"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// Handler executes one tool call. Handlers receive the raw JSON
// arguments and each unmarshal them into their own typed argument
// struct.
type Handler func(ctx context.Context, d *Dispatcher, principal *types.Principal, argsJSON json.RawMessage, sink ingest.ProgressSink) (interface{}, error)

// ScopeExtractor pulls the memory_id a tool call is scoped to, if any,
// out of the raw arguments, for the dispatcher's "principal's
// memory_ids[] is non-empty and does not contain the scope" check (§4.11).
type ScopeExtractor func(argsJSON json.RawMessage) (memoryID string, ok bool)

// ToolDef is one row of the registry. Permissions lists every permission
// that alone would satisfy the tool's requirement (an OR, not an AND) —
// e.g. memory_create accepts either admin or write (§6's "admin or
// write" entry).
type ToolDef struct {
	Name        string
	Permissions []types.Permission
	Scope       ScopeExtractor // nil means the tool is never memory-scoped
	Handle      Handler
}

func hasAnyPermission(principal *types.Principal, required []types.Permission) bool {
	for _, perm := range required {
		if principal.HasPermission(perm) {
			return true
		}
	}
	return false
}

// Registry holds every declared tool, keyed by name.
type Registry struct {
	tools map[string]ToolDef
}

// NewRegistry builds the registry with every tool in §6's table wired in.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]ToolDef)}
	for _, t := range builtinTools() {
		r.tools[t.Name] = t
	}
	return r
}

// Lookup returns the tool declaration for name, if registered.
func (r *Registry) Lookup(name string) (ToolDef, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, for tools/list-style surfaces.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

func memoryIDScope(argsJSON json.RawMessage) (string, bool) {
	var args struct {
		MemoryID string `json:"memory_id"`
	}
	if err := json.Unmarshal(argsJSON, &args); err != nil || args.MemoryID == "" {
		return "", false
	}
	return args.MemoryID, true
}

// Dispatch authenticates the call against the registry's declared
// permission and memory scope for name, then runs its handler. sink may
// be nil; handlers that need progress reporting treat nil as
// ingest.NoopProgressSink the same way ingest.Pipeline.Ingest does.
func (d *Dispatcher) Dispatch(ctx context.Context, principal *types.Principal, name string, argsJSON json.RawMessage, sink ingest.ProgressSink) (interface{}, error) {
	def, ok := d.registry.Lookup(name)
	if !ok {
		return nil, apperr.NotFound("unknown tool %q", name)
	}
	if principal == nil {
		return nil, apperr.Unauthorized("no authenticated principal")
	}
	if !hasAnyPermission(principal, def.Permissions) {
		return nil, apperr.Forbidden("tool %q requires one of %v", name, def.Permissions)
	}
	var memoryID string
	var scoped bool
	if def.Scope != nil {
		if id, ok := def.Scope(argsJSON); ok {
			memoryID = id
			scoped = true
			if !principal.AllowsMemory(memoryID) {
				return nil, apperr.Forbidden("principal is not scoped to memory %q", memoryID)
			}
		}
	}
	if scoped && serializedTools[name] {
		unlock := d.memLocks.lock(memoryID)
		defer unlock()
	}
	return def.Handle(ctx, d, principal, argsJSON, sink)
}
