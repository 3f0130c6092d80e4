package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/backup"
	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/dispatcher"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/ingest"
	"github.com/graphmemory/graphmemory/internal/llm"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/ontology"
	"github.com/graphmemory/graphmemory/internal/query"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
)

const transportTestOntology = `
name: legal
entity_types:
  - name: Organization
    description: A company
relation_types:
  - name: WORKS_FOR
    description: Employment
`

// newTestDispatcherForTransport wires a fully fake-backed Dispatcher, the
// same way internal/dispatcher's own tests do, so transport handlers can be
// exercised end to end without any real store or LLM dependency.
func newTestDispatcherForTransport(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legal.yaml"), []byte(transportTestOntology), 0o644))
	loader, err := ontology.NewLoader(dir)
	require.NoError(t, err)

	graph := graphstore.NewFake()
	objects := objectstore.NewFake()
	vectors := vectorstore.NewFake()
	gen := &llm.FakeTextGenerator{Responses: []string{`{"entities":[],"relations":[]}`}}
	extractor := llm.NewExtractor(gen)
	embedder := &llm.FakeEmbedder{Dim: 4}
	tunables := config.Tunables{
		ExtractionChunkSize:  25000,
		MaxTextLength:        950000,
		ChunkSize:            500,
		ChunkOverlap:         50,
		EmbeddingBatchSize:   32,
		EmbeddingConcurrency: 4,
		RAGScoreThreshold:    0.58,
		RAGChunkLimit:        8,
		GraphSearchLimit:     10,
		BackupRetentionCount: 5,
	}

	pipeline := ingest.New(objects, graph, vectors, extractor, embedder, loader, tunables)
	queries := query.New(graph, vectors, embedder, gen, tunables)
	backups := backup.New(objects, graph, vectors, tunables)
	tokens := auth.New(graph, "bootstrap-secret")

	return dispatcher.New(graph, objects, vectors, pipeline, queries, backups, loader, tokens)
}
