package txcoordinator

import (
	"context"
	"fmt"

	"docsync/internal/vectorstore"
)

// DeleteDocument implements §4.6 step 2: delete vector points first, then
// the relational rows in a single transaction. If the relational delete
// fails after the vector delete has already succeeded, that is an
// acceptable, self-healing divergence: AutoGC removes the now-orphaned
// relational rows (chunks with no matching vector points) on its next
// sweep, so the error is simply surfaced rather than compensated.
func (c *Coordinator) DeleteDocument(ctx context.Context, collectionID, docID string) error {
	if err := c.vectors.DeletePointsByFilter(ctx, collectionID, vectorstore.DeleteFilter{DocID: docID}); err != nil {
		return fmt.Errorf("txcoordinator: vector delete: %w", err)
	}

	tx, err := c.meta.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := c.meta.DeleteChunksTx(ctx, tx, docID); err != nil {
		return fmt.Errorf("txcoordinator: delete chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("txcoordinator: commit chunk delete: %w", err)
	}
	return nil
}

// DeleteCollection tears down every vector point tagged with collectionID
// across the shared physical Qdrant collection. The relational side is the
// caller's responsibility (metadatastore.DeleteCollection cascades via
// foreign keys) since it has no vector-store call to interleave.
func (c *Coordinator) DeleteCollection(ctx context.Context, collectionID string) error {
	if err := c.vectors.DeletePointsByFilter(ctx, collectionID, vectorstore.DeleteFilter{}); err != nil {
		return fmt.Errorf("txcoordinator: vector delete collection: %w", err)
	}
	return nil
}
