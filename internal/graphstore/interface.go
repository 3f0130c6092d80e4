package graphstore

import (
	"context"

	"github.com/graphmemory/graphmemory/pkg/types"
)

// GraphStore is the interface components depend on instead of *Store
// directly, matching the teacher's interfaces.go pattern
// (internal/storage/interfaces.go's MemoryStore/GraphProvider split).
type GraphStore interface {
	CreateMemory(ctx context.Context, m *types.Memory) error
	GetMemory(ctx context.Context, id string) (*types.Memory, error)
	ListMemories(ctx context.Context) ([]types.Memory, error)
	DeleteMemory(ctx context.Context, id string) (CascadeCounts, error)
	Stats(ctx context.Context, memoryID string) (types.Stats, error)

	UpsertDocument(ctx context.Context, d *types.Document) (created bool, err error)
	GetDocumentByHash(ctx context.Context, memoryID, contentHash string) (*types.Document, error)
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	ListDocuments(ctx context.Context, memoryID string) ([]types.Document, error)
	DeleteDocument(ctx context.Context, id string) (CascadeCounts, error)
	ReplaceDocumentContent(ctx context.Context, id string, objectURI string, textLength int) error

	MergeEntity(ctx context.Context, memoryID, name, entityType, description, sourceDocID string) (*types.Entity, error)
	GetEntity(ctx context.Context, id string) (*types.Entity, error)
	GetEntityByName(ctx context.Context, memoryID, name, entityType string) (*types.Entity, error)
	Neighbours(ctx context.Context, entityID string, hops int) ([]types.Entity, []types.Relation, error)

	MergeRelation(ctx context.Context, memoryID, fromEntity, toEntity, relType, description, sourceDoc string) (*types.Relation, error)

	FullTextSearchEntities(ctx context.Context, memoryID string, tokens []string, limit int) ([]types.Entity, error)
	ContainsSearchEntities(ctx context.Context, memoryID string, tokens []string, limit int) ([]types.Entity, error)

	AllObjectURIs(ctx context.Context, memoryID string) (map[string]string, error)

	CreateToken(ctx context.Context, t *types.Token) error
	GetToken(ctx context.Context, tokenHash string) (*types.Token, error)
	ListTokens(ctx context.Context) ([]types.Token, error)
	RevokeToken(ctx context.Context, tokenHash string) error
	UpdateTokenMemoryIDs(ctx context.Context, tokenHash string, memoryIDs []string) error

	ReplaceGraphSnapshot(ctx context.Context, snap types.GraphSnapshot) error
	Snapshot(ctx context.Context, memoryID string) (types.GraphSnapshot, error)

	Close() error
}

// CascadeCounts reports how many dependent rows a cascading delete
// removed, used by memory_delete and document_delete results.
type CascadeCounts struct {
	Documents int
	Entities  int
	Relations int
}
