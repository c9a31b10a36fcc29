package metadatastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
)

// CreateDocument inserts doc unless a non-deleted document with the same
// docId already exists in the same collection, in which case that existing
// row is returned unchanged and created is false. Since docId is the
// content hash of the uploaded bytes (see idcodec.DocID), this makes
// re-uploading identical content idempotent (P2) without the caller needing
// to pre-check.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) (existing *domain.Document, created bool, err error) {
	if err := doc.Validate(); err != nil {
		return nil, false, err
	}

	existing, err = s.findActiveDocument(ctx, doc.CollectionID, doc.DocID)
	if err != nil && !apperrors.Is(err, apperrors.ErrorCodeNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	const q = `
		INSERT INTO documents (
			doc_id, collection_id, source_key, name, mime, size_bytes,
			content_hash, status, created_at, updated_at, is_deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)
	`
	_, err = s.db.ExecContext(ctx, q,
		doc.DocID, doc.CollectionID, doc.SourceKey, doc.Name, doc.MIME, doc.SizeBytes,
		doc.ContentHash, doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("metadatastore: create document: %w", err)
	}
	return doc, true, nil
}

func (s *Store) findActiveDocument(ctx context.Context, collectionID, docID string) (*domain.Document, error) {
	const q = `
		SELECT doc_id, collection_id, source_key, name, mime, size_bytes,
		       content_hash, status, created_at, updated_at, is_deleted, synced_at
		FROM documents
		WHERE collection_id = $1 AND doc_id = $2 AND NOT is_deleted
	`
	row := s.db.QueryRowContext(ctx, q, collectionID, docID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("document", docID)
		}
		return nil, fmt.Errorf("metadatastore: find document: %w", err)
	}
	return doc, nil
}

// GetDocument returns a document regardless of soft-delete state; callers
// that must respect soft-deletes (search, listing) filter separately.
func (s *Store) GetDocument(ctx context.Context, docID string) (*domain.Document, error) {
	const q = `
		SELECT doc_id, collection_id, source_key, name, mime, size_bytes,
		       content_hash, status, created_at, updated_at, is_deleted, synced_at
		FROM documents WHERE doc_id = $1
	`
	row := s.db.QueryRowContext(ctx, q, docID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("document", docID)
		}
		return nil, fmt.Errorf("metadatastore: get document: %w", err)
	}
	return doc, nil
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	var d domain.Document
	var status string
	var syncedAt sql.NullTime
	if err := row.Scan(
		&d.DocID, &d.CollectionID, &d.SourceKey, &d.Name, &d.MIME, &d.SizeBytes,
		&d.ContentHash, &status, &d.CreatedAt, &d.UpdatedAt, &d.IsDeleted, &syncedAt,
	); err != nil {
		return nil, err
	}
	d.Status = domain.DocStatus(status)
	if syncedAt.Valid {
		t := syncedAt.Time
		d.SyncedAt = &t
	}
	return &d, nil
}

// UpdateDocumentStatus updates the denormalized status column, e.g. as the
// SyncStateMachine advances a document through its pipeline.
func (s *Store) UpdateDocumentStatus(ctx context.Context, docID string, status domain.DocStatus) error {
	const q = `UPDATE documents SET status = $2, updated_at = now() WHERE doc_id = $1`
	result, err := s.db.ExecContext(ctx, q, docID, string(status))
	if err != nil {
		return fmt.Errorf("metadatastore: update document status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadatastore: update document status: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("document", docID)
	}
	return nil
}

// MarkDocumentSynced sets status=SYNCED and stamps syncedAt, the terminal
// write of the Upsert step (§4.7).
func (s *Store) MarkDocumentSynced(ctx context.Context, docID string) error {
	const q = `UPDATE documents SET status = $2, synced_at = now(), updated_at = now() WHERE doc_id = $1`
	result, err := s.db.ExecContext(ctx, q, docID, string(domain.DocStatusSynced))
	if err != nil {
		return fmt.Errorf("metadatastore: mark document synced: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadatastore: mark document synced: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("document", docID)
	}
	return nil
}

// MarkDocDeleted soft-deletes a document; AutoGC performs the hard delete
// and vector purge on its next sweep.
func (s *Store) MarkDocDeleted(ctx context.Context, docID string) error {
	const q = `UPDATE documents SET is_deleted = true, updated_at = now() WHERE doc_id = $1`
	result, err := s.db.ExecContext(ctx, q, docID)
	if err != nil {
		return fmt.Errorf("metadatastore: mark document deleted: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadatastore: mark document deleted: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("document", docID)
	}
	return nil
}

// HardDelete removes the document row; ON DELETE CASCADE removes its
// chunks (and their generated FTS column) and sync job.
func (s *Store) HardDelete(ctx context.Context, docID string) error {
	const q = `DELETE FROM documents WHERE doc_id = $1`
	result, err := s.db.ExecContext(ctx, q, docID)
	if err != nil {
		return fmt.Errorf("metadatastore: hard delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadatastore: hard delete document: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("document", docID)
	}
	return nil
}

// ListSoftDeletedDocuments returns every soft-deleted, not-yet-purged
// document in a collection, for AutoGC's sweep.
func (s *Store) ListSoftDeletedDocuments(ctx context.Context, collectionID string) ([]*domain.Document, error) {
	const q = `
		SELECT doc_id, collection_id, source_key, name, mime, size_bytes,
		       content_hash, status, created_at, updated_at, is_deleted, synced_at
		FROM documents WHERE collection_id = $1 AND is_deleted
	`
	rows, err := s.db.QueryContext(ctx, q, collectionID)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list soft-deleted documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Document
	for rows.Next() {
		var d domain.Document
		var status string
		var syncedAt sql.NullTime
		if err := rows.Scan(
			&d.DocID, &d.CollectionID, &d.SourceKey, &d.Name, &d.MIME, &d.SizeBytes,
			&d.ContentHash, &status, &d.CreatedAt, &d.UpdatedAt, &d.IsDeleted, &syncedAt,
		); err != nil {
			return nil, fmt.Errorf("metadatastore: scan document: %w", err)
		}
		d.Status = domain.DocStatus(status)
		if syncedAt.Valid {
			t := syncedAt.Time
			d.SyncedAt = &t
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: list soft-deleted documents: %w", err)
	}
	return out, nil
}
