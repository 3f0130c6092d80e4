package graphstore

// schema is the DDL applied at startup. Grounded on the teacher's
// internal/storage/postgres/schema.go table shapes (entities,
// relationships, and a join table for mention-style edges), adapted to
// this service's tenancy model: every table carries memory_id and all
// cross-entity constraints are scoped to it.
const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	ontology_name TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	memory_id          TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	filename           TEXT NOT NULL,
	content_hash       TEXT NOT NULL,
	size_bytes         BIGINT NOT NULL,
	content_type       TEXT NOT NULL DEFAULT '',
	object_uri         TEXT NOT NULL,
	source_path        TEXT NOT NULL DEFAULT '',
	source_modified_at TIMESTAMPTZ,
	ingested_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	text_length        INT NOT NULL DEFAULT 0,
	UNIQUE (memory_id, content_hash)
);

CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	memory_id   TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	name_fold   TEXT NOT NULL,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	mentions    INT NOT NULL DEFAULT 0,
	UNIQUE (memory_id, name, type)
);

CREATE INDEX IF NOT EXISTS idx_entities_memory_fold ON entities(memory_id, name_fold);

CREATE TABLE IF NOT EXISTS entity_sources (
	entity_id   TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	PRIMARY KEY (entity_id, document_id)
);

CREATE TABLE IF NOT EXISTS relations (
	id          TEXT PRIMARY KEY,
	memory_id   TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	from_entity TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	to_entity   TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source_doc  TEXT NOT NULL DEFAULT '',
	UNIQUE (memory_id, from_entity, to_entity, type)
);

CREATE TABLE IF NOT EXISTS tokens (
	token_hash   TEXT PRIMARY KEY,
	client_name  TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	permissions  TEXT NOT NULL DEFAULT '',
	memory_ids   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ,
	revoked_at   TIMESTAMPTZ
);
`

// ftsMigration adds an accent-folded tsvector column over entity names
// and a GIN index, mirroring the teacher's MigrationFTS idiom
// (internal/storage/postgres/schema.go) of a guarded additive migration
// rather than baking the column into the base schema. The tsvector is
// built from name_fold (already NFKD-folded in Go before insert, see
// internal/search) so the full-text tier is accent-insensitive without
// requiring the Postgres unaccent extension.
const ftsMigration = `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_name = 'entities' AND column_name = 'name_tsv'
	) THEN
		ALTER TABLE entities ADD COLUMN name_tsv tsvector
			GENERATED ALWAYS AS (to_tsvector('simple', name_fold)) STORED;
		CREATE INDEX idx_entities_name_tsv ON entities USING GIN (name_tsv);
	END IF;
END $$;
`
