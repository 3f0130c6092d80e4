package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/lib/pq"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// Upsert writes or replaces a chunk's text and vector, keyed by id.
// Re-ingestion (force=true, §4.4) calls this per chunk after deleting
// the document's previous chunk set.
func (s *Store) Upsert(ctx context.Context, c *types.Chunk) error {
	vec := pgvector.NewVector(c.Vector)
	sectionPath := strings.Join(c.SectionPath, "/")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, memory_id, document_id, sequence, section_path, token_count, text, vector)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text, vector = EXCLUDED.vector, token_count = EXCLUDED.token_count,
			section_path = EXCLUDED.section_path, sequence = EXCLUDED.sequence`,
		c.ID, c.MemoryID, c.DocumentID, c.Sequence, sectionPath, c.TokenCount, c.Text, vec)
	if err != nil {
		return apperr.DependencyFailure("vectorstore", fmt.Errorf("upsert chunk: %w", err))
	}
	return nil
}

// DeleteByDocument removes every chunk belonging to documentID, used
// when re-ingesting with force=true or when a document is deleted
// (orphan cascade extends to the vector store too, per §4.4/§4.10).
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id=$1`, documentID); err != nil {
		return apperr.DependencyFailure("vectorstore", fmt.Errorf("delete chunks by document: %w", err))
	}
	return nil
}

// DeleteByMemory removes every chunk in memoryID, used by memory_delete.
func (s *Store) DeleteByMemory(ctx context.Context, memoryID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE memory_id=$1`, memoryID); err != nil {
		return apperr.DependencyFailure("vectorstore", fmt.Errorf("delete chunks by memory: %w", err))
	}
	return nil
}

// SearchRestricted performs the Graph-Guided branch of §4.8 step 2:
// cosine similarity search limited to documentIDs.
func (s *Store) SearchRestricted(ctx context.Context, memoryID string, embedding []float32, documentIDs []string, topK int) ([]types.ScoredChunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	vec := pgvector.NewVector(embedding)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, document_id, sequence, section_path, token_count, text,
			1 - (vector <=> $1) AS score
		FROM chunks
		WHERE memory_id=$2 AND document_id = ANY($3) AND vector IS NOT NULL
		ORDER BY vector <=> $1
		LIMIT $4`, vec, memoryID, pq.Array(documentIDs), topK)
	if err != nil {
		return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("search restricted: %w", err))
	}
	return scanScoredChunks(rows)
}

// SearchAll performs the RAG-only fallback branch of §4.8 step 3:
// cosine similarity search across the whole memory.
func (s *Store) SearchAll(ctx context.Context, memoryID string, embedding []float32, topK int) ([]types.ScoredChunk, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, document_id, sequence, section_path, token_count, text,
			1 - (vector <=> $1) AS score
		FROM chunks
		WHERE memory_id=$2 AND vector IS NOT NULL
		ORDER BY vector <=> $1
		LIMIT $3`, vec, memoryID, topK)
	if err != nil {
		return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("search all: %w", err))
	}
	return scanScoredChunks(rows)
}

func scanScoredChunks(rows *sql.Rows) ([]types.ScoredChunk, error) {
	defer rows.Close()
	var out []types.ScoredChunk
	for rows.Next() {
		var c types.Chunk
		var sectionPath string
		var score float64
		if err := rows.Scan(&c.ID, &c.MemoryID, &c.DocumentID, &c.Sequence, &sectionPath, &c.TokenCount, &c.Text, &score); err != nil {
			return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("scan scored chunk: %w", err))
		}
		if sectionPath != "" {
			c.SectionPath = strings.Split(sectionPath, "/")
		}
		out = append(out, types.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.DependencyFailure("vectorstore", err)
	}
	return out, nil
}

// AllChunks returns every chunk of memoryID with its vector, for
// backup_create's vectors.jsonl export (§4.9 step 2).
func (s *Store) AllChunks(ctx context.Context, memoryID string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, document_id, sequence, section_path, token_count, text, vector
		FROM chunks WHERE memory_id=$1 ORDER BY document_id, sequence`, memoryID)
	if err != nil {
		return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("all chunks: %w", err))
	}
	defer rows.Close()

	var out []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var sectionPath string
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.MemoryID, &c.DocumentID, &c.Sequence, &sectionPath, &c.TokenCount, &c.Text, &vec); err != nil {
			return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("scan chunk: %w", err))
		}
		if sectionPath != "" {
			c.SectionPath = strings.Split(sectionPath, "/")
		}
		c.Vector = vec.Slice()
		out = append(out, c)
	}
	return out, nil
}

// CountByMemory reports the chunk count for memory_stats (§4.1).
func (s *Store) CountByMemory(ctx context.Context, memoryID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE memory_id=$1`, memoryID).Scan(&n); err != nil {
		return 0, apperr.DependencyFailure("vectorstore", err)
	}
	return n, nil
}

// chunkToVectorRecord encodes a chunk for backup's newline-delimited
// JSON vectors.jsonl export, matching §4.9 step 2's id/payload/vector
// shape.
func chunkToVectorRecord(c types.Chunk) types.VectorRecord {
	payload := map[string]interface{}{
		"memory_id":    c.MemoryID,
		"document_id":  c.DocumentID,
		"sequence":     c.Sequence,
		"section_path": c.SectionPath,
		"token_count":  c.TokenCount,
		"text":         c.Text,
	}
	return types.VectorRecord{ID: c.ID, Payload: payload, Vector: c.Vector}
}

// ExportVectorRecords converts a memory's chunks into the backup wire
// format consumed by internal/backup.
func ExportVectorRecords(chunks []types.Chunk) []types.VectorRecord {
	out := make([]types.VectorRecord, len(chunks))
	for i, c := range chunks {
		out[i] = chunkToVectorRecord(c)
	}
	return out
}
