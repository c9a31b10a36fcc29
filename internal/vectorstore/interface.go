// Package vectorstore implements the VectorStore adapter contract (C4)
// against Qdrant. A single physical Qdrant collection (configured once via
// QdrantConfig.Collection) hosts every logical docsync collection,
// distinguished by a "collection_id" payload field — the same
// payload-filter multi-tenancy pattern the teacher uses to scope points by
// "repository" inside one physical Qdrant collection
// (internal/storage/qdrant.go's buildFilter). Every method below therefore
// takes the *logical* docsync collectionId, not the physical Qdrant
// collection name; the adapter applies the collection_id filter internally.
package vectorstore

import (
	"context"

	"docsync/internal/domain"
)

// DeleteFilter selects which points DeletePointsByFilter removes within the
// call's collectionID scope. DocID set narrows to one document (resync, or
// AutoGC purging a soft-deleted document); DocID empty tears down every
// point in the logical collection.
type DeleteFilter struct {
	DocID string
}

// SearchHit is one similarity result, higher Score is better.
type SearchHit struct {
	PointID string
	Score   float32
}

// VectorStore is the contract §4.4 requires of any vector backend.
type VectorStore interface {
	// EnsureCollection idempotently creates the physical Qdrant collection
	// with the given vector dimension if it does not already exist.
	EnsureCollection(ctx context.Context, name string, dim int) error

	// UpsertPoints writes points atomically from the caller's perspective:
	// either the whole batch lands or none of it does.
	UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error

	// DeletePoints removes specific points by id.
	DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error

	// DeletePointsByFilter removes every point matching filter.
	DeletePointsByFilter(ctx context.Context, collectionID string, filter DeleteFilter) error

	// ListAllPointIDs enumerates every live point id scoped to
	// collectionID, paging internally so the result is complete regardless
	// of how many points exist.
	ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error)

	// Search runs a similarity search scoped to collectionID and returns
	// up to limit hits ordered best-first.
	Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]SearchHit, error)

	// Ping satisfies the health handler's Pinger interface.
	Ping(ctx context.Context) error
}
