package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/llm"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func seedMemoryWithDocumentAndChunk(t *testing.T, graph *graphstore.Fake, vectors *vectorstore.Fake, memoryID, entityName string) {
	t.Helper()
	ctx := context.Background()

	doc := &types.Document{ID: "doc1", MemoryID: memoryID, Filename: "contract.txt", ObjectURI: "memories/mem1/documents/doc1"}
	_, err := graph.UpsertDocument(ctx, doc)
	require.NoError(t, err)

	_, err = graph.MergeEntity(ctx, memoryID, entityName, "Organization", "a vendor", "doc1")
	require.NoError(t, err)

	require.NoError(t, vectors.Upsert(ctx, &types.Chunk{
		ID: "chunk1", MemoryID: memoryID, DocumentID: "doc1", Sequence: 0,
		Text: "Acme Corp signed the master services agreement.",
		Vector: []float32{1, 0, 0, 0},
	}))
}

func testTunables() config.Tunables {
	return config.Tunables{RAGScoreThreshold: 0.58, RAGChunkLimit: 8, GraphSearchLimit: 10}
}

func TestRetrieveGraphGuidedWhenEntityMatchesRestrictVectorSearch(t *testing.T) {
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()
	seedMemoryWithDocumentAndChunk(t, graph, vectors, "mem1", "Acme Corp")

	embedder := &llm.FakeEmbedder{Dim: 4}
	gen := &llm.FakeTextGenerator{Responses: []string{"Acme Corp signed the agreement [contract.txt]."}}
	engine := New(graph, vectors, embedder, gen, testTunables())

	result, trace, err := engine.Retrieve(context.Background(), "mem1", "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, ModeGraphGuided, trace.Mode)
	assert.Equal(t, ModeGraphGuided, result.Mode)
	assert.NotEmpty(t, result.Entities)
}

func TestRetrieveRAGOnlyWhenNoGraphHits(t *testing.T) {
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()
	seedMemoryWithDocumentAndChunk(t, graph, vectors, "mem1", "Acme Corp")

	embedder := &llm.FakeEmbedder{Dim: 4}
	gen := &llm.FakeTextGenerator{}
	engine := New(graph, vectors, embedder, gen, testTunables())

	result, trace, err := engine.Retrieve(context.Background(), "mem1", "xylophone quizzical")
	require.NoError(t, err)
	assert.Equal(t, ModeRAGOnly, trace.Mode)
	assert.Empty(t, result.Entities)
}

func TestRetrieveDropsChunksBelowScoreThreshold(t *testing.T) {
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()
	seedMemoryWithDocumentAndChunk(t, graph, vectors, "mem1", "Acme Corp")

	embedder := &llm.FakeEmbedder{Dim: 4}
	gen := &llm.FakeTextGenerator{}
	tunables := testTunables()
	tunables.RAGScoreThreshold = 2.0 // unreachable cosine similarity
	engine := New(graph, vectors, embedder, gen, tunables)

	result, trace, err := engine.Retrieve(context.Background(), "mem1", "Acme Corp")
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	for _, cd := range trace.Chunks {
		assert.False(t, cd.Accepted)
	}
}

func TestMemoryQueryReturnsStructuredBundleWithoutLLMCall(t *testing.T) {
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()
	seedMemoryWithDocumentAndChunk(t, graph, vectors, "mem1", "Acme Corp")

	embedder := &llm.FakeEmbedder{Dim: 4}
	gen := &llm.FakeTextGenerator{}
	engine := New(graph, vectors, embedder, gen, testTunables())

	_, _, err := engine.MemoryQuery(context.Background(), "mem1", "Acme Corp")
	require.NoError(t, err)
	assert.Empty(t, gen.Prompts)
}

func TestAskComposesPromptAndReturnsEntitiesAndSources(t *testing.T) {
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()
	seedMemoryWithDocumentAndChunk(t, graph, vectors, "mem1", "Acme Corp")

	embedder := &llm.FakeEmbedder{Dim: 4}
	gen := &llm.FakeTextGenerator{Responses: []string{"Acme Corp signed it [contract.txt]."}}
	engine := New(graph, vectors, embedder, gen, testTunables())

	answer, trace, err := engine.Ask(context.Background(), "mem1", "Who signed the contract?")
	require.NoError(t, err)
	assert.Contains(t, answer.Answer, "contract.txt")
	assert.Contains(t, answer.Entities, "Acme Corp")
	require.NotEmpty(t, answer.SourceDocuments)
	assert.Equal(t, "contract.txt", answer.SourceDocuments[0].Filename)
	assert.Greater(t, trace.PromptChars, 0)
	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0], "Acme Corp")
}

func TestAskRefusesWhenNoContextFound(t *testing.T) {
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()

	embedder := &llm.FakeEmbedder{Dim: 4}
	gen := &llm.FakeTextGenerator{Responses: []string{"I don't know."}}
	engine := New(graph, vectors, embedder, gen, testTunables())

	_, _, err := engine.Ask(context.Background(), "mem1", "anything")
	require.NoError(t, err)
	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0], "No relevant context")
}
