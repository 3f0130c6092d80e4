package graphstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/search"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// MergeEntity implements the Entity merge keyed by (memory_id, name,
// type) from §4.3: on merge, accumulate mentions, append description
// (dedup by substring equality), and record sourceDocID in
// entity_sources (the MENTIONS edge).
func (s *Store) MergeEntity(ctx context.Context, memoryID, name, entityType, description, sourceDocID string) (*types.Entity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", err)
	}
	defer tx.Rollback()

	var e types.Entity
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, type, description, mentions FROM entities WHERE memory_id=$1 AND name=$2 AND type=$3`,
		memoryID, name, entityType,
	).Scan(&e.ID, &e.Name, &e.Type, &e.Description, &e.Mentions)

	switch {
	case err == sql.ErrNoRows:
		e = types.Entity{ID: "ent_" + uuid.NewString(), MemoryID: memoryID, Name: name, Type: entityType}
		e.MergeDescription(description)
		e.AddSourceDoc(sourceDocID)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (id, memory_id, name, name_fold, type, description, mentions) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.ID, memoryID, name, search.Fold(name), entityType, e.Description, e.Mentions,
		); err != nil {
			return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("insert entity: %w", err))
		}
	case err != nil:
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("lookup entity: %w", err))
	default:
		e.MemoryID = memoryID
		e.MergeDescription(description)
		e.AddSourceDoc(sourceDocID)
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET description=$1, mentions=$2 WHERE id=$3`,
			e.Description, e.Mentions, e.ID,
		); err != nil {
			return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("update entity: %w", err))
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entity_sources (entity_id, document_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		e.ID, sourceDocID,
	); err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("link entity source: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.DependencyFailure("graphstore", err)
	}
	return &e, nil
}

func (s *Store) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	return s.scanEntityRow(s.db.QueryRowContext(ctx, entitySelect+` WHERE e.id=$1`, id), id)
}

func (s *Store) GetEntityByName(ctx context.Context, memoryID, name, entityType string) (*types.Entity, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM entities WHERE memory_id=$1 AND name=$2 AND type=$3`, memoryID, name, entityType).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("entity %q not found", name)
	}
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", err)
	}
	return s.GetEntity(ctx, id)
}

const entitySelect = `SELECT e.id, e.memory_id, e.name, e.type, e.description, e.mentions FROM entities e`

func (s *Store) scanEntityRow(row *sql.Row, id string) (*types.Entity, error) {
	var e types.Entity
	if err := row.Scan(&e.ID, &e.MemoryID, &e.Name, &e.Type, &e.Description, &e.Mentions); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("entity %q not found", id)
		}
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("scan entity: %w", err))
	}
	docs, err := s.sourceDocsOf(context.Background(), e.ID)
	if err != nil {
		return nil, err
	}
	e.SourceDocs = docs
	return &e, nil
}

func (s *Store) sourceDocsOf(ctx context.Context, entityID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document_id FROM entity_sources WHERE entity_id=$1`, entityID)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", err)
	}
	defer rows.Close()
	var docs []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, apperr.DependencyFailure("graphstore", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Neighbours returns the 1-hop (or 2-hop, capped) neighbourhood of an
// entity: adjacent entities and the relations connecting them.
func (s *Store) Neighbours(ctx context.Context, entityID string, hops int) ([]types.Entity, []types.Relation, error) {
	if hops < 1 {
		hops = 1
	}
	if hops > 2 {
		hops = 2
	}

	visited := map[string]bool{entityID: true}
	frontier := []string{entityID}
	var relations []types.Relation
	var neighbourIDs []string

	for h := 0; h < hops; h++ {
		if len(frontier) == 0 {
			break
		}
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, memory_id, from_entity, to_entity, type, description, source_doc
			FROM relations WHERE from_entity = ANY($1) OR to_entity = ANY($1)`, pqArray(frontier))
		if err != nil {
			return nil, nil, apperr.DependencyFailure("graphstore", err)
		}
		var next []string
		for rows.Next() {
			var r types.Relation
			if err := rows.Scan(&r.ID, &r.MemoryID, &r.FromEntity, &r.ToEntity, &r.Type, &r.Description, &r.SourceDoc); err != nil {
				rows.Close()
				return nil, nil, apperr.DependencyFailure("graphstore", err)
			}
			relations = append(relations, r)
			for _, candidate := range []string{r.FromEntity, r.ToEntity} {
				if !visited[candidate] {
					visited[candidate] = true
					next = append(next, candidate)
					neighbourIDs = append(neighbourIDs, candidate)
				}
			}
		}
		rows.Close()
		frontier = next
	}

	entities := make([]types.Entity, 0, len(neighbourIDs))
	for _, id := range neighbourIDs {
		e, err := s.GetEntity(ctx, id)
		if err != nil {
			continue
		}
		entities = append(entities, *e)
	}
	return entities, relations, nil
}
