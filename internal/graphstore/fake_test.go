package graphstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/pkg/types"
)

func TestFakeMergeEntityAccumulatesDescriptionAndMentions(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.CreateMemory(ctx, &types.Memory{ID: "mem_1", Name: "m", CreatedAt: time.Now()}))

	e, err := f.MergeEntity(ctx, "mem_1", "Ada Lovelace", "Person", "A mathematician.", "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Mentions)

	e2, err := f.MergeEntity(ctx, "mem_1", "Ada Lovelace", "Person", "Wrote the first algorithm.", "doc_2")
	require.NoError(t, err)
	assert.Equal(t, e.ID, e2.ID)
	assert.Equal(t, 2, e2.Mentions)
	assert.Contains(t, e2.Description, "mathematician")
	assert.Contains(t, e2.Description, "algorithm")
	assert.ElementsMatch(t, []string{"doc_1", "doc_2"}, e2.SourceDocs)
}

func TestFakeDeleteDocumentCascadesOrphanedEntities(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.CreateMemory(ctx, &types.Memory{ID: "mem_1", Name: "m", CreatedAt: time.Now()}))

	doc := &types.Document{ID: "doc_1", MemoryID: "mem_1", Filename: "a.txt", ContentHash: "h1"}
	created, err := f.UpsertDocument(ctx, doc)
	require.NoError(t, err)
	assert.True(t, created)

	e, err := f.MergeEntity(ctx, "mem_1", "Ada Lovelace", "Person", "bio", "doc_1")
	require.NoError(t, err)
	_, err = f.MergeRelation(ctx, "mem_1", e.ID, e.ID, "SELF", "", "doc_1")
	require.NoError(t, err)

	counts, err := f.DeleteDocument(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Documents)
	assert.Equal(t, 1, counts.Entities)
	assert.Equal(t, 1, counts.Relations)

	_, err = f.GetEntity(ctx, e.ID)
	assert.Error(t, err)
}

func TestFakeDeleteDocumentKeepsEntityWithRemainingSource(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.CreateMemory(ctx, &types.Memory{ID: "mem_1", Name: "m", CreatedAt: time.Now()}))

	for _, id := range []string{"doc_1", "doc_2"} {
		_, err := f.UpsertDocument(ctx, &types.Document{ID: id, MemoryID: "mem_1", Filename: id, ContentHash: id})
		require.NoError(t, err)
	}
	e, err := f.MergeEntity(ctx, "mem_1", "Ada Lovelace", "Person", "bio", "doc_1")
	require.NoError(t, err)
	_, err = f.MergeEntity(ctx, "mem_1", "Ada Lovelace", "Person", "more", "doc_2")
	require.NoError(t, err)

	counts, err := f.DeleteDocument(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Entities)

	still, err := f.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_2"}, still.SourceDocs)
}

func TestFakeSnapshotRoundTripsThroughReplace(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.CreateMemory(ctx, &types.Memory{ID: "mem_1", Name: "m", CreatedAt: time.Now()}))
	_, err := f.MergeEntity(ctx, "mem_1", "Ada Lovelace", "Person", "bio", "doc_1")
	require.NoError(t, err)

	snap, err := f.Snapshot(ctx, "mem_1")
	require.NoError(t, err)
	snap.Memory.ID = "mem_2"
	for i := range snap.Entities {
		snap.Entities[i].MemoryID = "mem_2"
	}

	g := NewFake()
	require.NoError(t, g.ReplaceGraphSnapshot(ctx, snap))
	restored, err := g.GetMemory(ctx, "mem_2")
	require.NoError(t, err)
	assert.Equal(t, "m", restored.Name)
}

func TestFakeContainsSearchIsAccentInsensitive(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.CreateMemory(ctx, &types.Memory{ID: "mem_1", Name: "m", CreatedAt: time.Now()}))
	_, err := f.MergeEntity(ctx, "mem_1", "Renée Descartes", "Person", "", "doc_1")
	require.NoError(t, err)

	out, err := f.ContainsSearchEntities(ctx, "mem_1", []string{"renee"}, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Renée Descartes", out[0].Name)
}
