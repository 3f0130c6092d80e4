// Package query implements graph-guided retrieval (§4.7, §4.8): the
// two-tier entity search and the graph-then-vector retrieval core shared
// by the question_answer and memory_query entry points. Grounded on
// internal/storage/postgres/search_provider.go's HybridSearch shape,
// reworked from blind rank-fusion into graph-search-narrows-vector-search
// staging, since the specification's retrieval core is not a symmetric
// merge of two rankings but a two-stage narrowing pipeline.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/search"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// EntityMatch is one entity surfaced by graph search, with its 1-hop
// neighbourhood and the relations connecting it (§4.7 "full context").
type EntityMatch struct {
	Entity        types.Entity
	Neighbours    []types.Entity
	Relations     []types.Relation
	TokensMatched int
}

// SearchEntities runs the two-tier strategy: a scored full-text query,
// unioned with a CONTAINS substring fallback when the full-text tier
// yields fewer than limit/2 results. Results are deduplicated by entity
// identity and ordered by (tokens matched desc, mentions desc).
func SearchEntities(ctx context.Context, graph graphstore.GraphStore, memoryID, queryText string, limit int) ([]EntityMatch, []string, error) {
	tokens := search.Tokenize(queryText, search.DefaultStopwords)
	if limit <= 0 {
		limit = 10
	}
	if len(tokens) == 0 {
		return nil, tokens, nil
	}

	fulltext, err := graph.FullTextSearchEntities(ctx, memoryID, tokens, limit)
	if err != nil {
		return nil, tokens, err
	}

	byID := make(map[string]types.Entity, len(fulltext))
	order := make([]string, 0, len(fulltext))
	for _, e := range fulltext {
		if _, ok := byID[e.ID]; !ok {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}

	if len(fulltext) < limit/2 {
		contained, err := graph.ContainsSearchEntities(ctx, memoryID, tokens, limit)
		if err != nil {
			return nil, tokens, err
		}
		for _, e := range contained {
			if _, ok := byID[e.ID]; !ok {
				order = append(order, e.ID)
			}
			byID[e.ID] = e
		}
	}

	matches := make([]EntityMatch, 0, len(order))
	for _, id := range order {
		e := byID[id]
		matches = append(matches, EntityMatch{Entity: e, TokensMatched: countMatchedTokens(e.Name, tokens)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].TokensMatched != matches[j].TokensMatched {
			return matches[i].TokensMatched > matches[j].TokensMatched
		}
		return matches[i].Entity.Mentions > matches[j].Entity.Mentions
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	for i := range matches {
		neighbours, relations, err := graph.Neighbours(ctx, matches[i].Entity.ID, 1)
		if err != nil {
			return nil, tokens, err
		}
		matches[i].Neighbours = neighbours
		matches[i].Relations = relations
	}

	return matches, tokens, nil
}

// countMatchedTokens counts how many of tokens appear, in raw or
// accent-folded form, as a substring of the lowercased entity name —
// the ranking signal for §4.7's CONTAINS tier and the union ordering.
func countMatchedTokens(name string, tokens []string) int {
	lowered := strings.ToLower(name)
	folded := search.Fold(name)
	n := 0
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) || strings.Contains(folded, tok) {
			n++
		}
	}
	return n
}

// SourceDocuments returns the union of source documents referenced by
// matches, in first-seen order.
func SourceDocuments(matches []EntityMatch) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		for _, d := range m.Entity.SourceDocs {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}
