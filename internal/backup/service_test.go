package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func seedMemory(t *testing.T, graph *graphstore.Fake, vectors *vectorstore.Fake, memoryID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, graph.CreateMemory(ctx, &types.Memory{ID: memoryID, Name: "m", OntologyName: "legal"}))

	doc := &types.Document{ID: "doc1", MemoryID: memoryID, Filename: "a.txt", ObjectURI: "memories/" + memoryID + "/documents/doc1"}
	_, err := graph.UpsertDocument(ctx, doc)
	require.NoError(t, err)

	_, err = graph.MergeEntity(ctx, memoryID, "Acme Corp", "Organization", "a vendor", "doc1")
	require.NoError(t, err)

	require.NoError(t, vectors.Upsert(ctx, &types.Chunk{ID: "chunk1", MemoryID: memoryID, DocumentID: "doc1", Text: "hello", Vector: []float32{1, 0}}))
}

func newTestService(t *testing.T) (*Service, *objectstore.Fake, *graphstore.Fake, *vectorstore.Fake) {
	t.Helper()
	objects := objectstore.NewFake()
	graph := graphstore.NewFake()
	vectors := vectorstore.NewFake()
	svc := New(objects, graph, vectors, config.Tunables{BackupRetentionCount: 5})
	return svc, objects, graph, vectors
}

func TestCreateWritesManifestAndFilesUnderBackupsPrefix(t *testing.T) {
	svc, objects, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	manifest, err := svc.Create(context.Background(), "mem1", "nightly")
	require.NoError(t, err)

	assert.Equal(t, "mem1", manifest.MemoryID)
	assert.Equal(t, 1, manifest.Counts.Entities)
	assert.Equal(t, 1, manifest.Counts.Documents)
	assert.Equal(t, 1, manifest.Counts.Chunks)
	assert.NotEmpty(t, manifest.ChecksumSHA256)

	exists, err := objects.Exists(context.Background(), "_backups/"+manifest.BackupID+"/manifest.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListReturnsBackupsNewestFirst(t *testing.T) {
	svc, _, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	first, err := svc.Create(context.Background(), "mem1", "first")
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "mem1", "second")
	require.NoError(t, err)

	infos, err := svc.List(context.Background(), "mem1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, second.BackupID, infos[0].BackupID)
	assert.Equal(t, first.BackupID, infos[1].BackupID)
}

func TestRetentionDeletesOldestBeyondCount(t *testing.T) {
	svc, objects, graph, vectors := newTestService(t)
	svc.tunables.BackupRetentionCount = 2
	seedMemory(t, graph, vectors, "mem1")

	var manifests []*types.BackupManifest
	for i := 0; i < 3; i++ {
		m, err := svc.Create(context.Background(), "mem1", "")
		require.NoError(t, err)
		manifests = append(manifests, m)
	}

	infos, err := svc.List(context.Background(), "mem1")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	_, err = objects.Get(context.Background(), "_backups/"+manifests[0].BackupID+"/manifest.json")
	assert.Error(t, err)
}

func TestRestoreReplaysGraphAndVectorsIntoNewMemory(t *testing.T) {
	svc, _, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	manifest, err := svc.Create(context.Background(), "mem1", "")
	require.NoError(t, err)

	_, err = graph.DeleteMemory(context.Background(), "mem1")
	require.NoError(t, err)
	require.NoError(t, vectors.DeleteByMemory(context.Background(), "mem1"))

	restored, err := svc.Restore(context.Background(), manifest.BackupID)
	require.NoError(t, err)
	assert.Equal(t, "mem1", restored.MemoryID)

	mem, err := graph.GetMemory(context.Background(), "mem1")
	require.NoError(t, err)
	assert.Equal(t, "mem1", mem.ID)

	n, err := vectors.CountByMemory(context.Background(), "mem1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRestoreRejectsWhenTargetMemoryAlreadyExists(t *testing.T) {
	svc, _, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	manifest, err := svc.Create(context.Background(), "mem1", "")
	require.NoError(t, err)

	_, err = svc.Restore(context.Background(), manifest.BackupID)
	require.Error(t, err)
}

func TestDeleteRemovesBackupPrefix(t *testing.T) {
	svc, objects, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	manifest, err := svc.Create(context.Background(), "mem1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), manifest.BackupID))

	keys, err := objects.ListPrefix(context.Background(), "_backups/"+manifest.BackupID+"/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
