package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "graphmemory", cfg.ObjectStore.Bucket)
	assert.Equal(t, 50, cfg.Tunables.MaxDocumentSizeMB)
	assert.Equal(t, 25000, cfg.Tunables.ExtractionChunkSize)
	assert.Equal(t, 950000, cfg.Tunables.MaxTextLength)
	assert.Equal(t, 500, cfg.Tunables.ChunkSize)
	assert.Equal(t, 50, cfg.Tunables.ChunkOverlap)
	assert.InDelta(t, 0.58, cfg.Tunables.RAGScoreThreshold, 1e-9)
	assert.Equal(t, 8, cfg.Tunables.RAGChunkLimit)
	assert.Equal(t, 5, cfg.Tunables.BackupRetentionCount)
	assert.Equal(t, 600, cfg.Tunables.ExtractionTimeoutS)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GRAPHMEM_PORT", "9090")
	t.Setenv("GRAPHMEM_CHUNK_SIZE", "250")
	t.Setenv("GRAPHMEM_RAG_SCORE_THRESHOLD", "0.7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Tunables.ChunkSize)
	assert.InDelta(t, 0.7, cfg.Tunables.RAGScoreThreshold, 1e-9)
}
