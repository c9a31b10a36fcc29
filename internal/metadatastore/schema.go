package metadatastore

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup. It is idempotent (CREATE ... IF NOT EXISTS)
// so every process boot can call ApplySchema unconditionally, the same way
// the teacher's event store bootstraps its own table on open.
const schema = `
CREATE TABLE IF NOT EXISTS collections (
	collection_id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	doc_id TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(collection_id) ON DELETE CASCADE,
	source_key TEXT NOT NULL,
	name TEXT NOT NULL,
	mime TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	content_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	is_deleted BOOLEAN NOT NULL DEFAULT false,
	synced_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_documents_collection_id ON documents(collection_id);
CREATE INDEX IF NOT EXISTS idx_documents_collection_hash ON documents(collection_id, content_hash) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS chunks (
	point_id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
	collection_id TEXT NOT NULL,
	chunk_index INT NOT NULL,
	title_chain JSONB NOT NULL DEFAULT '[]',
	content_hash TEXT NOT NULL,
	content TEXT NOT NULL,
	fts tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_collection_id ON chunks(collection_id);
CREATE INDEX IF NOT EXISTS idx_chunks_fts ON chunks USING GIN(fts);

CREATE TABLE IF NOT EXISTS sync_jobs (
	job_id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL UNIQUE REFERENCES documents(doc_id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	retries INT NOT NULL DEFAULT 0,
	last_attempt_at TIMESTAMPTZ,
	last_error TEXT,
	error_category TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sync_jobs_status ON sync_jobs(status);
`

// ApplySchema creates every table and index the store needs, if they do not
// already exist. Safe to call on every process start.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("metadatastore: apply schema: %w", err)
	}
	return nil
}
