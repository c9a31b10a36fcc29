package metadatastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"docsync/internal/domain"
)

// BeginTx starts a relational transaction for callers (namely
// internal/txcoordinator) that need to interleave chunk writes with a
// vector-store call before deciding to commit or roll back.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: begin tx: %w", err)
	}
	return tx, nil
}

// InsertChunksTx inserts chunk rows (and, via the generated fts column,
// their full-text index entries) inside an already-open transaction. The
// caller controls commit/rollback — this is the hook TransactionCoordinator
// uses to keep the relational write open while it performs the vector
// upsert (§4.6).
func (s *Store) InsertChunksTx(ctx context.Context, tx *sql.Tx, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	const q = `
		INSERT INTO chunks (point_id, doc_id, collection_id, chunk_index, title_chain, content_hash, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("metadatastore: prepare insert chunks: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
		titleChainJSON, err := json.Marshal(c.TitleChain)
		if err != nil {
			return fmt.Errorf("metadatastore: marshal title chain: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.PointID, c.DocID, c.CollectionID, c.ChunkIndex, titleChainJSON, c.ContentHash, c.Content); err != nil {
			return fmt.Errorf("metadatastore: insert chunk %s: %w", c.PointID, err)
		}
	}
	return nil
}

// InsertChunks is the standalone (non-coordinated) equivalent of
// InsertChunksTx, used by tests and by any caller that does not need to
// interleave a vector-store write.
func (s *Store) InsertChunks(ctx context.Context, chunks []*domain.Chunk) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.InsertChunksTx(ctx, tx, chunks)
	})
}

// DeleteChunksTx removes every chunk belonging to docID inside an
// already-open transaction, used by the delete path where the relational
// delete must happen after the vector delete has already succeeded.
func (s *Store) DeleteChunksTx(ctx context.Context, tx *sql.Tx, docID string) error {
	const q = `DELETE FROM chunks WHERE doc_id = $1`
	if _, err := tx.ExecContext(ctx, q, docID); err != nil {
		return fmt.Errorf("metadatastore: delete chunks: %w", err)
	}
	return nil
}

// DeleteChunks is the standalone equivalent of DeleteChunksTx.
func (s *Store) DeleteChunks(ctx context.Context, docID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.DeleteChunksTx(ctx, tx, docID)
	})
}

// DeleteChunksByPointIDs removes a specific set of orphaned chunk rows
// inside a single transaction, used by AutoGC to drop metadata rows with no
// matching vector point (§4.10 step 1, the A \ B side of the diff).
func (s *Store) DeleteChunksByPointIDs(ctx context.Context, pointIDs []string) error {
	if len(pointIDs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `DELETE FROM chunks WHERE point_id = ANY($1)`
		if _, err := tx.ExecContext(ctx, q, pq.Array(pointIDs)); err != nil {
			return fmt.Errorf("metadatastore: delete chunks by point id: %w", err)
		}
		return nil
	})
}

// ListChunks returns a page of a document's chunks ordered by chunk index,
// plus the total chunk count for that document.
func (s *Store) ListChunks(ctx context.Context, docID string, page, limit int) ([]*domain.Chunk, int, error) {
	offset := (page - 1) * limit

	const countQ = `SELECT count(*) FROM chunks WHERE doc_id = $1`
	var total int
	if err := s.db.QueryRowContext(ctx, countQ, docID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("metadatastore: count chunks: %w", err)
	}

	const q = `
		SELECT point_id, doc_id, collection_id, chunk_index, title_chain, content_hash, content
		FROM chunks WHERE doc_id = $1 ORDER BY chunk_index ASC LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, q, docID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("metadatastore: list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, 0, err
	}
	return chunks, total, nil
}

// GetChunks enriches a set of pointIds with their chunk rows, scoped to one
// collection so a stale pointId from another collection can never leak in.
// Used by HybridSearch to enrich vector hits (§4.9 step 2).
func (s *Store) GetChunks(ctx context.Context, pointIDs []string, collectionID string) ([]*domain.Chunk, error) {
	if len(pointIDs) == 0 {
		return nil, nil
	}

	const q = `
		SELECT c.point_id, c.doc_id, c.collection_id, c.chunk_index, c.title_chain, c.content_hash, c.content
		FROM chunks c
		JOIN documents d ON d.doc_id = c.doc_id
		WHERE c.point_id = ANY($1) AND c.collection_id = $2 AND NOT d.is_deleted
	`
	rows, err := s.db.QueryContext(ctx, q, pq.Array(pointIDs), collectionID)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: get chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanChunks(rows)
}

// ListPointIDsByCollection returns every point id currently recorded for a
// collection, used by AutoGC's reconciliation diff (A in §4.10).
func (s *Store) ListPointIDsByCollection(ctx context.Context, collectionID string) ([]string, error) {
	const q = `SELECT point_id FROM chunks WHERE collection_id = $1`
	return s.queryPointIDs(ctx, q, collectionID)
}

// ListPointIDsByDoc returns every point id belonging to one document.
func (s *Store) ListPointIDsByDoc(ctx context.Context, docID string) ([]string, error) {
	const q = `SELECT point_id FROM chunks WHERE doc_id = $1`
	return s.queryPointIDs(ctx, q, docID)
}

func (s *Store) queryPointIDs(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list point ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var pointID string
		if err := rows.Scan(&pointID); err != nil {
			return nil, fmt.Errorf("metadatastore: scan point id: %w", err)
		}
		out = append(out, pointID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: list point ids: %w", err)
	}
	return out, nil
}

func scanChunks(rows *sql.Rows) ([]*domain.Chunk, error) {
	var out []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var titleChainJSON []byte
		if err := rows.Scan(&c.PointID, &c.DocID, &c.CollectionID, &c.ChunkIndex, &titleChainJSON, &c.ContentHash, &c.Content); err != nil {
			return nil, fmt.Errorf("metadatastore: scan chunk: %w", err)
		}
		if len(titleChainJSON) > 0 {
			if err := json.Unmarshal(titleChainJSON, &c.TitleChain); err != nil {
				return nil, fmt.Errorf("metadatastore: unmarshal title chain: %w", err)
			}
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: scan chunks: %w", err)
	}
	return out, nil
}
