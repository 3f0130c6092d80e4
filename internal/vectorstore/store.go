package vectorstore

import (
	"database/sql"
	"fmt"

	"github.com/graphmemory/graphmemory/internal/apperr"
)

// Store is the pgvector-backed chunk store. It shares a *sql.DB with
// internal/graphstore (same physical Postgres instance, two logically
// separate components — see DESIGN.md) but owns its own table and
// migration, grounded on the teacher's search_provider.go VectorSearch.
type Store struct {
	db  *sql.DB
	dim int
}

// Open attaches a vector store to an already-open connection (typically
// graphstore.Store.DB()) and ensures the chunks table and its pgvector
// extension/index exist for the given embedding dimension.
func Open(db *sql.DB, dim int) (*Store, error) {
	if dim <= 0 {
		dim = 1024
	}
	s := &Store{db: db, dim: dim}
	if _, err := db.Exec(schema(dim)); err != nil {
		return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("migrate: %w", err))
	}
	if _, err := db.Exec(ivfflatIndex); err != nil {
		return nil, apperr.DependencyFailure("vectorstore", fmt.Errorf("ivfflat index: %w", err))
	}
	return s, nil
}
