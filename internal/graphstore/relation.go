package graphstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func pqArray(ss []string) interface{} { return pq.Array(ss) }

// MergeRelation implements the Relation merge keyed by (memory_id,
// from_entity, to_entity, type) from §4.3. Both endpoints must already
// exist in the same memory (§3 invariant); the caller (ingestion
// pipeline) is responsible for resolving entity names to ids before
// calling this.
func (s *Store) MergeRelation(ctx context.Context, memoryID, fromEntity, toEntity, relType, description, sourceDoc string) (*types.Relation, error) {
	var r types.Relation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description FROM relations WHERE memory_id=$1 AND from_entity=$2 AND to_entity=$3 AND type=$4`,
		memoryID, fromEntity, toEntity, relType,
	).Scan(&r.ID, &r.Description)

	switch {
	case err == sql.ErrNoRows:
		r = types.Relation{
			ID: "rel_" + uuid.NewString(), MemoryID: memoryID,
			FromEntity: fromEntity, ToEntity: toEntity, Type: relType,
			Description: description, SourceDoc: sourceDoc,
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO relations (id, memory_id, from_entity, to_entity, type, description, source_doc) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.ID, memoryID, fromEntity, toEntity, relType, description, sourceDoc,
		); err != nil {
			return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("insert relation: %w", err))
		}
	case err != nil:
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("lookup relation: %w", err))
	default:
		r.MemoryID, r.FromEntity, r.ToEntity, r.Type, r.SourceDoc = memoryID, fromEntity, toEntity, relType, sourceDoc
		merged := r.Description
		if description != "" && description != merged {
			merged = merged + " | " + description
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE relations SET description=$1 WHERE id=$2`, merged, r.ID); err != nil {
			return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("update relation: %w", err))
		}
		r.Description = merged
	}
	return &r, nil
}

// AllObjectURIs returns document_id -> object_uri for every document in
// memoryID (or every memory if memoryID is empty), used by
// storage_check (§4.10).
func (s *Store) AllObjectURIs(ctx context.Context, memoryID string) (map[string]string, error) {
	var rows *sql.Rows
	var err error
	if memoryID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, object_uri FROM documents`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, object_uri FROM documents WHERE memory_id=$1`, memoryID)
	}
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, uri string
		if err := rows.Scan(&id, &uri); err != nil {
			return nil, apperr.DependencyFailure("graphstore", err)
		}
		out[id] = uri
	}
	return out, nil
}
