package dispatcher

import (
	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/backup"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/ingest"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/ontology"
	"github.com/graphmemory/graphmemory/internal/query"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
)

// Dispatcher binds every collaborator a tool handler might need plus the
// registry that enforces permission/scope ahead of calling it.
type Dispatcher struct {
	registry   *Registry
	graph      graphstore.GraphStore
	objects    objectstore.ObjectStore
	vectors    vectorstore.VectorStore
	pipeline   *ingest.Pipeline
	queries    *query.Engine
	backups    *backup.Service
	ontologies *ontology.Loader
	tokens     *auth.Manager
	memLocks   *memoryLocks
}

// New wires a Dispatcher from its collaborators and builds the tool
// registry.
func New(
	graph graphstore.GraphStore,
	objects objectstore.ObjectStore,
	vectors vectorstore.VectorStore,
	pipeline *ingest.Pipeline,
	queries *query.Engine,
	backups *backup.Service,
	ontologies *ontology.Loader,
	tokens *auth.Manager,
) *Dispatcher {
	return &Dispatcher{
		registry:   NewRegistry(),
		graph:      graph,
		objects:    objects,
		vectors:    vectors,
		pipeline:   pipeline,
		queries:    queries,
		backups:    backups,
		ontologies: ontologies,
		tokens:     tokens,
		memLocks:   newMemoryLocks(),
	}
}

// Registry exposes the underlying tool table, e.g. for a tools/list-style
// transport endpoint.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}
