package metadatastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
)

// CreateCollection inserts a new collection. Name must be unique; a
// duplicate name surfaces as a Conflict AppError.
func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}

	const q = `
		INSERT INTO collections (collection_id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, q, c.CollectionID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Conflict(fmt.Sprintf("collection name %q already exists", c.Name))
		}
		return fmt.Errorf("metadatastore: create collection: %w", err)
	}
	return nil
}

// GetCollection returns a collection by id, or a NotFound AppError.
func (s *Store) GetCollection(ctx context.Context, collectionID string) (*domain.Collection, error) {
	const q = `
		SELECT collection_id, name, description, created_at
		FROM collections WHERE collection_id = $1
	`
	row := s.db.QueryRowContext(ctx, q, collectionID)

	var c domain.Collection
	var description sql.NullString
	if err := row.Scan(&c.CollectionID, &c.Name, &description, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("collection", collectionID)
		}
		return nil, fmt.Errorf("metadatastore: get collection: %w", err)
	}
	c.Description = description.String
	return &c, nil
}

// ListCollections returns a page of collections ordered by creation time,
// plus the total count across all pages.
func (s *Store) ListCollections(ctx context.Context, page, limit int) ([]*domain.Collection, int, error) {
	offset := (page - 1) * limit

	const countQ = `SELECT count(*) FROM collections`
	var total int
	if err := s.db.QueryRowContext(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("metadatastore: count collections: %w", err)
	}

	const q = `
		SELECT collection_id, name, description, created_at
		FROM collections ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("metadatastore: list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Collection
	for rows.Next() {
		var c domain.Collection
		var description sql.NullString
		if err := rows.Scan(&c.CollectionID, &c.Name, &description, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("metadatastore: scan collection: %w", err)
		}
		c.Description = description.String
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("metadatastore: list collections: %w", err)
	}

	return out, total, nil
}

// DeleteCollection hard-deletes the collection row; ON DELETE CASCADE on
// documents/chunks/sync_jobs takes care of the rest, atomically from the
// caller's perspective. The vector-side purge is the caller's
// responsibility (ImportService.deleteCollection coordinates both sides).
func (s *Store) DeleteCollection(ctx context.Context, collectionID string) error {
	const q = `DELETE FROM collections WHERE collection_id = $1`
	result, err := s.db.ExecContext(ctx, q, collectionID)
	if err != nil {
		return fmt.Errorf("metadatastore: delete collection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadatastore: delete collection: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("collection", collectionID)
	}
	return nil
}
