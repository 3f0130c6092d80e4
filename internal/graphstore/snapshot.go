package graphstore

import (
	"context"
	"fmt"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/search"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func foldName(name string) string { return search.Fold(name) }

// Snapshot produces the canonical graph_data.json structure for
// backup_create (§4.9 step 1): the subgraph rooted at memoryID.
func (s *Store) Snapshot(ctx context.Context, memoryID string) (types.GraphSnapshot, error) {
	m, err := s.GetMemory(ctx, memoryID)
	if err != nil {
		return types.GraphSnapshot{}, err
	}
	docs, err := s.ListDocuments(ctx, memoryID)
	if err != nil {
		return types.GraphSnapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, memory_id, name, type, description, mentions FROM entities WHERE memory_id=$1`, memoryID)
	if err != nil {
		return types.GraphSnapshot{}, apperr.DependencyFailure("graphstore", err)
	}
	var entities []types.Entity
	for rows.Next() {
		var e types.Entity
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.Name, &e.Type, &e.Description, &e.Mentions); err != nil {
			rows.Close()
			return types.GraphSnapshot{}, apperr.DependencyFailure("graphstore", err)
		}
		entities = append(entities, e)
	}
	rows.Close()
	for i := range entities {
		docsOf, err := s.sourceDocsOf(ctx, entities[i].ID)
		if err != nil {
			return types.GraphSnapshot{}, err
		}
		entities[i].SourceDocs = docsOf
	}

	relRows, err := s.db.QueryContext(ctx, `SELECT id, memory_id, from_entity, to_entity, type, description, source_doc FROM relations WHERE memory_id=$1`, memoryID)
	if err != nil {
		return types.GraphSnapshot{}, apperr.DependencyFailure("graphstore", err)
	}
	var relations []types.Relation
	for relRows.Next() {
		var r types.Relation
		if err := relRows.Scan(&r.ID, &r.MemoryID, &r.FromEntity, &r.ToEntity, &r.Type, &r.Description, &r.SourceDoc); err != nil {
			relRows.Close()
			return types.GraphSnapshot{}, apperr.DependencyFailure("graphstore", err)
		}
		relations = append(relations, r)
	}
	relRows.Close()

	return types.GraphSnapshot{Memory: *m, Entities: entities, Relations: relations, Documents: docs}, nil
}

// ReplaceGraphSnapshot replays a graph_data.json snapshot into a brand
// new memory (backup_restore, §4.9). The target memory must not already
// exist; the caller is responsible for that precondition. The replay
// runs in one transaction that is rolled back on any error, so a failure
// partway leaves no partial memory behind (strict-coupling failure
// model, §4.9).
func (s *Store) ReplaceGraphSnapshot(ctx context.Context, snap types.GraphSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.DependencyFailure("graphstore", err)
	}
	defer tx.Rollback()

	m := snap.Memory
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memories (id, name, description, ontology_name, created_at) VALUES ($1,$2,$3,$4,$5)`,
		m.ID, m.Name, m.Description, m.OntologyName, m.CreatedAt); err != nil {
		return apperr.DependencyFailure("graphstore", fmt.Errorf("replay memory: %w", err))
	}

	for _, d := range snap.Documents {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, memory_id, filename, content_hash, size_bytes, content_type,
				object_uri, source_path, source_modified_at, ingested_at, text_length)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			d.ID, d.MemoryID, d.Filename, d.ContentHash, d.SizeBytes, d.ContentType,
			d.ObjectURI, d.SourcePath, nullableTime(d.SourceModifiedAt), d.IngestedAt, d.TextLength); err != nil {
			return apperr.DependencyFailure("graphstore", fmt.Errorf("replay document: %w", err))
		}
	}

	for _, e := range snap.Entities {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (id, memory_id, name, name_fold, type, description, mentions) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.ID, e.MemoryID, e.Name, foldName(e.Name), e.Type, e.Description, e.Mentions); err != nil {
			return apperr.DependencyFailure("graphstore", fmt.Errorf("replay entity: %w", err))
		}
		for _, docID := range e.SourceDocs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entity_sources (entity_id, document_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
				e.ID, docID); err != nil {
				return apperr.DependencyFailure("graphstore", fmt.Errorf("replay entity source: %w", err))
			}
		}
	}

	for _, r := range snap.Relations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relations (id, memory_id, from_entity, to_entity, type, description, source_doc) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.ID, r.MemoryID, r.FromEntity, r.ToEntity, r.Type, r.Description, r.SourceDoc); err != nil {
			return apperr.DependencyFailure("graphstore", fmt.Errorf("replay relation: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.DependencyFailure("graphstore", err)
	}
	return nil
}
