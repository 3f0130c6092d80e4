package vectorstore

import "fmt"

// schema creates the chunks table with a pgvector column sized to dim.
// Run lazily by Open, mirroring the teacher's guarded-migration idiom
// (internal/storage/postgres/migrations.go) rather than a fixed-size
// embedded SQL file, since the embedding dimension is a runtime
// configuration value (§4.6), not a compile-time constant.
func schema(dim int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
	id            TEXT PRIMARY KEY,
	memory_id     TEXT NOT NULL,
	document_id   TEXT NOT NULL,
	sequence      INT NOT NULL,
	section_path  TEXT NOT NULL DEFAULT '',
	token_count   INT NOT NULL DEFAULT 0,
	text          TEXT NOT NULL,
	vector        vector(%d),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chunks_memory ON chunks (memory_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id);
`, dim)
}

// ivfflatIndex is applied once the table has enough rows to make the
// index useful; calling it against an empty table is harmless (ivfflat
// just builds a near-empty index), matching the teacher's precedent of
// creating the vector index unconditionally at migration time rather
// than deferring it to a row-count threshold.
const ivfflatIndex = `
CREATE INDEX IF NOT EXISTS idx_chunks_vec_cosine ON chunks
	USING ivfflat (vector vector_cosine_ops) WITH (lists = 100);
`
