package graphstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// UpsertDocument inserts d, keyed by (memory_id, content_hash). If a row
// already exists for that key, no row is written and d is overwritten
// with the existing row — the
// caller (ingestion pipeline) is responsible for the force=true
// short-circuit decision described in §4.4 stage 2; this method reports
// whether it created a new row.
func (s *Store) UpsertDocument(ctx context.Context, d *types.Document) (bool, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, memory_id, filename, content_hash, size_bytes, content_type,
			object_uri, source_path, source_modified_at, ingested_at, text_length)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (memory_id, content_hash) DO NOTHING`,
		d.ID, d.MemoryID, d.Filename, d.ContentHash, d.SizeBytes, d.ContentType,
		d.ObjectURI, d.SourcePath, nullableTime(d.SourceModifiedAt), d.IngestedAt, d.TextLength)
	if err != nil {
		return false, apperr.DependencyFailure("graphstore", fmt.Errorf("upsert document: %w", err))
	}

	existing, err := s.GetDocumentByHash(ctx, d.MemoryID, d.ContentHash)
	if err != nil {
		return false, err
	}
	created := existing.ID == d.ID
	*d = *existing
	return created, nil
}

// ReplaceDocumentContent updates the object URI and text length of an
// existing document row in place, used by force=true re-ingest (§8
// property 3) which replaces chunks/vectors but keeps the same document
// identity.
func (s *Store) ReplaceDocumentContent(ctx context.Context, id, objectURI string, textLength int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET object_uri=$1, text_length=$2, ingested_at=now() WHERE id=$3`,
		objectURI, textLength, id)
	if err != nil {
		return apperr.DependencyFailure("graphstore", fmt.Errorf("replace document content: %w", err))
	}
	return nil
}

func (s *Store) GetDocumentByHash(ctx context.Context, memoryID, contentHash string) (*types.Document, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx, documentSelect+` WHERE memory_id=$1 AND content_hash=$2`, memoryID, contentHash))
}

func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx, documentSelect+` WHERE id=$1`, id))
}

const documentSelect = `SELECT id, memory_id, filename, content_hash, size_bytes, content_type,
	object_uri, source_path, source_modified_at, ingested_at, text_length FROM documents`

func (s *Store) scanDocument(row *sql.Row) (*types.Document, error) {
	var d types.Document
	var sourceModified sql.NullTime
	err := row.Scan(&d.ID, &d.MemoryID, &d.Filename, &d.ContentHash, &d.SizeBytes, &d.ContentType,
		&d.ObjectURI, &d.SourcePath, &sourceModified, &d.IngestedAt, &d.TextLength)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("document not found")
	}
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("scan document: %w", err))
	}
	if sourceModified.Valid {
		d.SourceModifiedAt = sourceModified.Time
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, memoryID string) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx, documentSelect+` WHERE memory_id=$1 ORDER BY ingested_at`, memoryID)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("list documents: %w", err))
	}
	defer rows.Close()

	var out []types.Document
	for rows.Next() {
		var d types.Document
		var sourceModified sql.NullTime
		if err := rows.Scan(&d.ID, &d.MemoryID, &d.Filename, &d.ContentHash, &d.SizeBytes, &d.ContentType,
			&d.ObjectURI, &d.SourcePath, &sourceModified, &d.IngestedAt, &d.TextLength); err != nil {
			return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("scan document: %w", err))
		}
		if sourceModified.Valid {
			d.SourceModifiedAt = sourceModified.Time
		}
		out = append(out, d)
	}
	return out, nil
}

// DeleteDocument removes a document and its MENTIONS edges
// (entity_sources rows), then deletes any entity whose source_docs
// becomes empty, along with that entity's incident relations — the
// orphan cascade required by §4.3 and tested by §8 property 4.
func (s *Store) DeleteDocument(ctx context.Context, id string) (CascadeCounts, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
	}
	defer tx.Rollback()

	var memoryID string
	if err := tx.QueryRowContext(ctx, `SELECT memory_id FROM documents WHERE id=$1`, id).Scan(&memoryID); err != nil {
		if err == sql.ErrNoRows {
			return CascadeCounts{}, apperr.NotFound("document %q not found", id)
		}
		return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT entity_id FROM entity_sources WHERE document_id=$1`, id)
	if err != nil {
		return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
	}
	var candidateEntities []string
	for rows.Next() {
		var eid string
		if err := rows.Scan(&eid); err != nil {
			rows.Close()
			return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
		}
		candidateEntities = append(candidateEntities, eid)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, id); err != nil {
		return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
	}

	counts := CascadeCounts{Documents: 1}
	for _, eid := range candidateEntities {
		var remaining int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM entity_sources WHERE entity_id=$1`, eid).Scan(&remaining); err != nil {
			return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
		}
		if remaining > 0 {
			continue
		}
		var relCount int
		_ = tx.QueryRowContext(ctx, `SELECT count(*) FROM relations WHERE from_entity=$1 OR to_entity=$1`, eid).Scan(&relCount)
		counts.Relations += relCount
		counts.Entities++
		if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id=$1`, eid); err != nil {
			return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return CascadeCounts{}, apperr.DependencyFailure("graphstore", err)
	}
	_ = memoryID
	return counts, nil
}

func nullableTime(t interface{ IsZero() bool }) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
