package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/graphmemory/graphmemory/pkg/types"
)

// Fake is an in-memory VectorStore computing cosine similarity in Go
// instead of delegating to pgvector's `<=>` operator, matching
// internal/graphstore.Fake's role for components that only need
// correct ranking semantics under test, not a live Postgres instance.
type Fake struct {
	mu     sync.Mutex
	chunks map[string]types.Chunk
}

func NewFake() *Fake {
	return &Fake{chunks: make(map[string]types.Chunk)}
}

func (f *Fake) Upsert(_ context.Context, c *types.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[c.ID] = *c
	return nil
}

func (f *Fake) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.DocumentID == documentID {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *Fake) DeleteByMemory(_ context.Context, memoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.MemoryID == memoryID {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *Fake) SearchRestricted(_ context.Context, memoryID string, embedding []float32, documentIDs []string, topK int) ([]types.ScoredChunk, error) {
	allowed := make(map[string]bool, len(documentIDs))
	for _, d := range documentIDs {
		allowed[d] = true
	}
	return f.search(memoryID, embedding, topK, func(c types.Chunk) bool { return allowed[c.DocumentID] }), nil
}

func (f *Fake) SearchAll(_ context.Context, memoryID string, embedding []float32, topK int) ([]types.ScoredChunk, error) {
	return f.search(memoryID, embedding, topK, func(types.Chunk) bool { return true }), nil
}

func (f *Fake) search(memoryID string, embedding []float32, topK int, accept func(types.Chunk) bool) []types.ScoredChunk {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.ScoredChunk
	for _, c := range f.chunks {
		if c.MemoryID != memoryID || len(c.Vector) == 0 || !accept(c) {
			continue
		}
		out = append(out, types.ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, c.Vector)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func (f *Fake) AllChunks(_ context.Context, memoryID string) ([]types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Chunk
	for _, c := range f.chunks {
		if c.MemoryID == memoryID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (f *Fake) CountByMemory(_ context.Context, memoryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chunks {
		if c.MemoryID == memoryID {
			n++
		}
	}
	return n, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

var _ VectorStore = (*Fake)(nil)
