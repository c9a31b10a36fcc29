package txcoordinator

import (
	"context"
	"fmt"
	"log"

	"docsync/internal/domain"
)

// UpsertChunks implements §4.6 step 1: write relational chunk rows inside a
// transaction, hold it open, perform the vector upsert, and only then
// decide the relational side's fate.
//
//   - Vector upsert fails -> roll back the relational transaction. Nothing
//     is observably written on either side.
//   - Vector upsert succeeds but the relational commit itself fails ->
//     the points are now orphaned in the vector store with no relational
//     row behind them. A compensating VectorStore.DeletePoints is issued
//     (retried per c.compensation) to undo the upsert; if even that fails,
//     the error is logged for AutoGC to clean up the orphan on its next
//     sweep rather than lost silently.
func (c *Coordinator) UpsertChunks(ctx context.Context, collectionID string, chunks []*domain.Chunk, points []domain.VectorPoint) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := c.meta.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := c.meta.InsertChunksTx(ctx, tx, chunks); err != nil {
		return fmt.Errorf("txcoordinator: insert chunks: %w", err)
	}

	if err := c.vectors.UpsertPoints(ctx, collectionID, points); err != nil {
		return fmt.Errorf("txcoordinator: vector upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		committed = true // the transaction is done (committed-or-failed); nothing left to roll back
		c.compensateUpsert(ctx, collectionID, points)
		return fmt.Errorf("txcoordinator: commit after vector upsert succeeded, compensating: %w", err)
	}
	committed = true

	return nil
}

func (c *Coordinator) compensateUpsert(ctx context.Context, collectionID string, points []domain.VectorPoint) {
	pointIDs := make([]string, len(points))
	for i, p := range points {
		pointIDs[i] = p.PointID
	}

	result := c.compensation.Do(ctx, func(ctx context.Context) error {
		return c.vectors.DeletePoints(ctx, collectionID, pointIDs)
	})
	if result.Err != nil {
		log.Printf("txcoordinator: compensating delete failed after %d attempts, leaving orphaned points %v for AutoGC: %v",
			result.Attempts, pointIDs, result.Err)
	}
}
