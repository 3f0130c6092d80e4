package vectorstore

import (
	"context"

	"github.com/graphmemory/graphmemory/pkg/types"
)

// VectorStore is the interface components depend on instead of *Store
// directly, mirroring internal/graphstore.GraphStore's pattern so the
// retrieval core (internal/query) and ingestion pipeline
// (internal/ingest) can be tested against Fake.
type VectorStore interface {
	Upsert(ctx context.Context, c *types.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	DeleteByMemory(ctx context.Context, memoryID string) error
	SearchRestricted(ctx context.Context, memoryID string, embedding []float32, documentIDs []string, topK int) ([]types.ScoredChunk, error)
	SearchAll(ctx context.Context, memoryID string, embedding []float32, topK int) ([]types.ScoredChunk, error)
	AllChunks(ctx context.Context, memoryID string) ([]types.Chunk, error)
	CountByMemory(ctx context.Context, memoryID string) (int, error)
}

var _ VectorStore = (*Store)(nil)
