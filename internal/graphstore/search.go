package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// FullTextSearchEntities issues a scored query against the accent-folded
// full-text index (name_tsv, built from name_fold), restricted to
// memoryID, per §4.7 tier 1. Grounded on the teacher's
// internal/storage/postgres/search_provider.go FullTextSearch
// (plainto_tsquery + ts_rank ordering), adapted from memory content to
// entity names and from Postgres unaccent to the Go-side fold already
// applied when name_fold was written.
func (s *Store) FullTextSearchEntities(ctx context.Context, memoryID string, tokens []string, limit int) ([]types.Entity, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	query := strings.Join(tokens, " & ")
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, ts_rank(e.name_tsv, to_tsquery('simple', $2)) AS rank
		FROM entities e
		WHERE e.memory_id = $1 AND e.name_tsv @@ to_tsquery('simple', $2)
		ORDER BY rank DESC
		LIMIT $3`, memoryID, query, limit)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("fulltext search: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, apperr.DependencyFailure("graphstore", err)
		}
		ids = append(ids, id)
	}
	return s.hydrateEntities(ctx, ids)
}

// ContainsSearchEntities implements the §4.7 tier 2 CONTAINS fallback:
// accept an entity if any token — raw or folded — is a substring of the
// lowercased entity name, ordered by (tokens matched desc, mentions
// desc).
func (s *Store) ContainsSearchEntities(ctx context.Context, memoryID string, tokens []string, limit int) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, name_fold, mentions FROM entities WHERE memory_id=$1`, memoryID)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("contains search: %w", err))
	}
	defer rows.Close()

	type candidate struct {
		id      string
		matched int
		mentions int
	}
	var candidates []candidate
	for rows.Next() {
		var id, name, nameFold string
		var mentions int
		if err := rows.Scan(&id, &name, &nameFold, &mentions); err != nil {
			return nil, apperr.DependencyFailure("graphstore", err)
		}
		lowered := strings.ToLower(name)
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(lowered, tok) || strings.Contains(nameFold, tok) {
				matched++
			}
		}
		if matched > 0 {
			candidates = append(candidates, candidate{id: id, matched: matched, mentions: mentions})
		}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if b.matched > a.matched || (b.matched == a.matched && b.mentions > a.mentions) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return s.hydrateEntities(ctx, ids)
}

func (s *Store) hydrateEntities(ctx context.Context, ids []string) ([]types.Entity, error) {
	out := make([]types.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetEntity(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}
