package graphstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// CreateMemory inserts a new Memory. memory_create happens-before any
// memory_ingest for that memory; this is enforced by the dispatcher, not
// here — the store simply rejects a duplicate id.
func (s *Store) CreateMemory(ctx context.Context, m *types.Memory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, name, description, ontology_name, created_at) VALUES ($1,$2,$3,$4,$5)`,
		m.ID, m.Name, m.Description, m.OntologyName, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("memory %q already exists", m.ID)
		}
		return apperr.DependencyFailure("graphstore", fmt.Errorf("create memory: %w", err))
	}
	return nil
}

func (s *Store) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	var m types.Memory
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, ontology_name, created_at FROM memories WHERE id=$1`, id,
	).Scan(&m.ID, &m.Name, &m.Description, &m.OntologyName, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("memory %q not found", id)
	}
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("get memory: %w", err))
	}
	return &m, nil
}

func (s *Store) ListMemories(ctx context.Context) ([]types.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, ontology_name, created_at FROM memories ORDER BY created_at`)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("list memories: %w", err))
	}
	defer rows.Close()

	var out []types.Memory
	for rows.Next() {
		var m types.Memory
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.OntologyName, &m.CreatedAt); err != nil {
			return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("scan memory: %w", err))
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteMemory cascades via foreign keys (documents, entities, relations
// all carry ON DELETE CASCADE from memories), returning counts of what
// was removed for the caller's cascade-count result.
func (s *Store) DeleteMemory(ctx context.Context, id string) (CascadeCounts, error) {
	var counts CascadeCounts
	row := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE memory_id=$1`, id)
	_ = row.Scan(&counts.Documents)
	row = s.db.QueryRowContext(ctx, `SELECT count(*) FROM entities WHERE memory_id=$1`, id)
	_ = row.Scan(&counts.Entities)
	row = s.db.QueryRowContext(ctx, `SELECT count(*) FROM relations WHERE memory_id=$1`, id)
	_ = row.Scan(&counts.Relations)

	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id=$1`, id)
	if err != nil {
		return CascadeCounts{}, apperr.DependencyFailure("graphstore", fmt.Errorf("delete memory: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return CascadeCounts{}, apperr.NotFound("memory %q not found", id)
	}
	return counts, nil
}

func (s *Store) Stats(ctx context.Context, memoryID string) (types.Stats, error) {
	st := types.Stats{MemoryID: memoryID}
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM entities WHERE memory_id=$1`, memoryID).Scan(&st.Entities)
	if err != nil {
		return st, apperr.DependencyFailure("graphstore", err)
	}
	_ = s.db.QueryRowContext(ctx, `SELECT count(*) FROM relations WHERE memory_id=$1`, memoryID).Scan(&st.Relations)
	_ = s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE memory_id=$1`, memoryID).Scan(&st.Documents)
	return st, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
