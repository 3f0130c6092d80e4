package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func TestCheckStorageFindsOrphanedObjectNotReferencedByGraph(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewFake()
	graph := graphstore.NewFake()

	require.NoError(t, graph.CreateMemory(ctx, &types.Memory{ID: "mem1", OntologyName: "legal"}))
	_, err := graph.UpsertDocument(ctx, &types.Document{ID: "doc1", MemoryID: "mem1", ObjectURI: "memories/mem1/documents/doc1"})
	require.NoError(t, err)

	require.NoError(t, objects.Put(ctx, "memories/mem1/documents/doc1", []byte("known"), "text/plain"))
	require.NoError(t, objects.Put(ctx, "memories/mem1/documents/orphan", []byte("orphan"), "text/plain"))
	require.NoError(t, objects.Put(ctx, "_backups/mem1/20260101T000000.000000000Z/manifest.json", []byte("{}"), "application/json"))

	orphans, err := CheckStorage(ctx, objects, graph, "mem1")
	require.NoError(t, err)
	assert.Equal(t, []string{"memories/mem1/documents/orphan"}, orphans)
}

func TestCheckStorageDoesNotFlagDocumentOwnedByAnotherMemory(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewFake()
	graph := graphstore.NewFake()

	require.NoError(t, graph.CreateMemory(ctx, &types.Memory{ID: "mem1", OntologyName: "legal"}))
	require.NoError(t, graph.CreateMemory(ctx, &types.Memory{ID: "mem2", OntologyName: "legal"}))
	_, err := graph.UpsertDocument(ctx, &types.Document{ID: "doc2", MemoryID: "mem2", ObjectURI: "memories/mem2/documents/doc2"})
	require.NoError(t, err)

	require.NoError(t, objects.Put(ctx, "memories/mem2/documents/doc2", []byte("x"), "text/plain"))

	orphans, err := CheckStorage(ctx, objects, graph, "mem2")
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestCleanupStorageDryRunDoesNotDelete(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewFake()
	graph := graphstore.NewFake()
	require.NoError(t, graph.CreateMemory(ctx, &types.Memory{ID: "mem1", OntologyName: "legal"}))
	require.NoError(t, objects.Put(ctx, "memories/mem1/documents/orphan", []byte("orphan"), "text/plain"))

	orphans, err := CleanupStorage(ctx, objects, graph, "mem1", true)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)

	exists, err := objects.Exists(ctx, "memories/mem1/documents/orphan")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCleanupStorageDeletesOrphansWhenNotDryRun(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewFake()
	graph := graphstore.NewFake()
	require.NoError(t, graph.CreateMemory(ctx, &types.Memory{ID: "mem1", OntologyName: "legal"}))
	require.NoError(t, objects.Put(ctx, "memories/mem1/documents/orphan", []byte("orphan"), "text/plain"))

	orphans, err := CleanupStorage(ctx, objects, graph, "mem1", false)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)

	exists, err := objects.Exists(ctx, "memories/mem1/documents/orphan")
	require.NoError(t, err)
	assert.False(t, exists)
}
