// Package graphstore implements the Graph store adapter (§4.3): Memory
// CRUD, Document upsert, Entity/Relation merge, cascade delete with
// orphan cleanup, neighbourhood queries, graph search (§4.7), and the
// Token sub-store (§4.11). Grounded on the teacher's
// internal/storage/postgres package (schema.go, search_provider.go,
// interfaces.go), using github.com/lib/pq against Postgres.
package graphstore

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/graphmemory/graphmemory/internal/apperr"
)

// Store is the Postgres-backed graph store. It shares its *sql.DB with
// internal/vectorstore (see DESIGN.md on colocation) but each package
// exposes its own interface, since the specification frames graph and
// vector storage as distinct external systems.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and applies the schema and migrations
// idempotently, matching the teacher's guarded-migration style
// (internal/storage/postgres/schema.go's MigrationFTS/MigrationPgvector).
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("ping: %w", err))
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return apperr.DependencyFailure("graphstore", fmt.Errorf("apply schema: %w", err))
	}
	if _, err := s.db.Exec(ftsMigration); err != nil {
		return apperr.DependencyFailure("graphstore", fmt.Errorf("apply fts migration: %w", err))
	}
	return nil
}

// DB exposes the underlying connection for internal/vectorstore, which
// runs its own migration (pgvector column + index) against the same
// connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }
