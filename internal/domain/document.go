package domain

import (
	"time"

	"docsync/internal/apperrors"
)

// DocStatus mirrors the terminal/non-terminal status of the document's
// owning SyncJob, denormalized onto the document row for cheap reads.
type DocStatus string

const (
	DocStatusNew      DocStatus = "NEW"
	DocStatusSplitOK  DocStatus = "SPLIT_OK"
	DocStatusEmbedOK  DocStatus = "EMBED_OK"
	DocStatusSynced   DocStatus = "SYNCED"
	DocStatusFailed   DocStatus = "FAILED"
	DocStatusRetrying DocStatus = "RETRYING"
	DocStatusDead     DocStatus = "DEAD"
)

// Valid reports whether s is one of the known document statuses.
func (s DocStatus) Valid() bool {
	switch s {
	case DocStatusNew, DocStatusSplitOK, DocStatusEmbedOK, DocStatusSynced, DocStatusFailed, DocStatusRetrying, DocStatusDead:
		return true
	}
	return false
}

// Document is a single uploaded file tracked by the pipeline. docId is the
// content hash of the original bytes: identical content uploaded twice into
// the same collection resolves to the same docId (see IdCodec, C1).
type Document struct {
	DocID        string    `json:"docId"`
	CollectionID string    `json:"collectionId"`
	SourceKey    string    `json:"sourceKey"`
	Name         string    `json:"name"`
	MIME         string    `json:"mime"`
	SizeBytes    int64     `json:"sizeBytes"`
	ContentHash  string    `json:"contentHash"`
	Status       DocStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	IsDeleted    bool       `json:"isDeleted"`
	SyncedAt     *time.Time `json:"syncedAt,omitempty"`
}

// Validate checks structural invariants independent of any store.
func (d *Document) Validate() error {
	if d.DocID == "" {
		return apperrors.ValidationField("docId", "cannot be empty")
	}
	if d.CollectionID == "" {
		return apperrors.ValidationField("collectionId", "cannot be empty")
	}
	if d.Name == "" {
		return apperrors.ValidationField("name", "cannot be empty")
	}
	if d.SizeBytes < 0 {
		return apperrors.ValidationField("sizeBytes", "cannot be negative")
	}
	if !d.Status.Valid() {
		return apperrors.ValidationField("status", "unknown document status")
	}
	return nil
}
