// Package domain defines the core entities of the ingestion and
// synchronization pipeline: collections, documents, chunks, sync jobs, and
// the vector points that mirror chunks in the external vector store.
package domain

import (
	"time"

	"docsync/internal/apperrors"
)

// Collection is a named grouping of documents. Deletion cascades to every
// owned document, chunk, and vector point.
type Collection struct {
	CollectionID string    `json:"collectionId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Validate checks structural invariants that must hold regardless of store.
func (c *Collection) Validate() error {
	if c.CollectionID == "" {
		return apperrors.ValidationField("collectionId", "cannot be empty")
	}
	if c.Name == "" {
		return apperrors.ValidationField("name", "cannot be empty")
	}
	return nil
}
