package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Search runs a cosine similarity query scoped to collectionID and returns
// up to limit hits ordered best first, translating each result's internal
// Qdrant UUID back to the docsync pointId carried in its payload.
func (c *Client) Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]SearchHit, error) {
	lim := uint64(limit)
	resp, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(vector...),
		Filter:         collectionFilter(collectionID),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}

	hits := make([]SearchHit, 0, len(resp))
	for _, p := range resp {
		hits = append(hits, SearchHit{
			PointID: payloadString(p.GetPayload(), payloadKeyPointID),
			Score:   p.GetScore(),
		})
	}
	return hits, nil
}
