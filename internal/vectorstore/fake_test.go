package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/pkg/types"
)

func TestFakeSearchAllOrdersByCosineSimilarityDescending(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c1", MemoryID: "m1", DocumentID: "d1", Vector: []float32{1, 0}}))
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c2", MemoryID: "m1", DocumentID: "d1", Vector: []float32{0, 1}}))
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c3", MemoryID: "m1", DocumentID: "d1", Vector: []float32{0.9, 0.1}}))

	out, err := f.SearchAll(ctx, "m1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "c1", out[0].Chunk.ID)
	assert.Equal(t, "c3", out[1].Chunk.ID)
	assert.Equal(t, "c2", out[2].Chunk.ID)
	assert.InDelta(t, 1.0, out[0].Score, 0.0001)
}

func TestFakeSearchRestrictedOnlyConsidersAllowedDocuments(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c1", MemoryID: "m1", DocumentID: "d1", Vector: []float32{1, 0}}))
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c2", MemoryID: "m1", DocumentID: "d2", Vector: []float32{1, 0}}))

	out, err := f.SearchRestricted(ctx, "m1", []float32{1, 0}, []string{"d1"}, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].Chunk.ID)
}

func TestFakeDeleteByDocumentRemovesOnlyThatDocumentsChunks(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c1", MemoryID: "m1", DocumentID: "d1", Vector: []float32{1, 0}}))
	require.NoError(t, f.Upsert(ctx, &types.Chunk{ID: "c2", MemoryID: "m1", DocumentID: "d2", Vector: []float32{1, 0}}))

	require.NoError(t, f.DeleteByDocument(ctx, "d1"))
	n, err := f.CountByMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
