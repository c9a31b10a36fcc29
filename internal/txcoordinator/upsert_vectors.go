package txcoordinator

import (
	"context"
	"fmt"

	"docsync/internal/domain"
)

// UpsertVectors durably commits vector points for chunks whose relational
// rows were already committed separately (SyncStateMachine's Split step
// writes chunk rows before the Upsert step ever runs — see §4.7). There is
// no relational write to interleave here, so none of UpsertChunks's
// compensation logic applies: on failure the sync job simply stays
// non-terminal and the state machine's own retry/backoff policy handles the
// next attempt.
func (c *Coordinator) UpsertVectors(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := c.vectors.UpsertPoints(ctx, collectionID, points); err != nil {
		return fmt.Errorf("txcoordinator: upsert vectors: %w", err)
	}
	return nil
}
