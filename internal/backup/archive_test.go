package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/apperr"
)

func TestDownloadThenRestoreArchiveRoundTrips(t *testing.T) {
	svc, objects, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")
	require.NoError(t, objects.Put(context.Background(), "memories/mem1/documents/doc1", []byte("raw document bytes"), "text/plain"))

	manifest, err := svc.Create(context.Background(), "mem1", "")
	require.NoError(t, err)

	archive, err := svc.Download(context.Background(), manifest.BackupID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, archive)

	_, err = graph.DeleteMemory(context.Background(), "mem1")
	require.NoError(t, err)
	require.NoError(t, vectors.DeleteByMemory(context.Background(), "mem1"))
	require.NoError(t, objects.Delete(context.Background(), "memories/mem1/documents/doc1"))

	restored, err := svc.RestoreArchive(context.Background(), archive)
	require.NoError(t, err)
	assert.Equal(t, "mem1", restored.MemoryID)

	data, err := objects.Get(context.Background(), "memories/mem1/documents/doc1")
	require.NoError(t, err)
	assert.Equal(t, "raw document bytes", string(data))

	n, err := vectors.CountByMemory(context.Background(), "mem1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRestoreArchiveRejectsTamperedChecksum(t *testing.T) {
	svc, _, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	manifest, err := svc.Create(context.Background(), "mem1", "")
	require.NoError(t, err)
	archive, err := svc.Download(context.Background(), manifest.BackupID, false)
	require.NoError(t, err)

	tampered := append([]byte{}, archive...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = graph.DeleteMemory(context.Background(), "mem1")
	require.NoError(t, err)

	_, err = svc.RestoreArchive(context.Background(), tampered)
	require.Error(t, err)
}

func TestRestoreArchiveFailsWhenDocumentsDeclaredButAbsent(t *testing.T) {
	svc, _, graph, vectors := newTestService(t)
	seedMemory(t, graph, vectors, "mem1")

	manifest, err := svc.Create(context.Background(), "mem1", "")
	require.NoError(t, err)
	archive, err := svc.Download(context.Background(), manifest.BackupID, false)
	require.NoError(t, err)

	_, err = graph.DeleteMemory(context.Background(), "mem1")
	require.NoError(t, err)

	_, err = svc.RestoreArchive(context.Background(), archive)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}
