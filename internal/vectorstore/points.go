package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"docsync/internal/domain"
)

// scrollPageSize is the batch size used by ListAllPointIDs's cursor loop.
const scrollPageSize = 256

// UpsertPoints writes points to the physical collection, each tagged with
// its logical collection id in the payload. Qdrant's Upsert is already
// atomic per call, so one batch is one Upsert request.
func (c *Client) UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	converted := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		p.Collection = collectionID
		ps, err := pointToQdrant(p)
		if err != nil {
			return err
		}
		converted = append(converted, ps)
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Points:         converted,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert points: %w", err)
	}
	return nil
}

// DeletePoints removes the given docsync pointIds, translating each through
// the same deterministic UUID mapping used on upsert.
func (c *Client) DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error {
	if len(pointIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, 0, len(pointIDs))
	for _, id := range pointIDs {
		ids = append(ids, toQdrantID(id))
	}

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete points: %w", err)
	}
	return nil
}

// DeletePointsByFilter removes every point matching filter, used both for
// resync (DocID set) and for tearing down a whole logical collection
// (DocID empty, CollectionID set).
func (c *Client) DeletePointsByFilter(ctx context.Context, collectionID string, filter DeleteFilter) error {
	var qf *qdrant.Filter
	if filter.DocID != "" {
		qf = docFilter(collectionID, filter.DocID)
	} else {
		qf = collectionFilter(collectionID)
	}

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: qf},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete points by filter: %w", err)
	}
	return nil
}

// ListAllPointIDs enumerates every live point id scoped to collectionID. It
// pages with Scroll using the real Offset cursor (the last point id
// returned becomes the next request's offset), continuing until a page
// comes back shorter than scrollPageSize. This diverges deliberately from
// the teacher's ListByRepository/ListBySession (internal/storage/qdrant.go),
// which issue a single large-limit Scroll and slice the result in Go - fine
// for the teacher's bounded memory listings, but not sufficient for AutoGC's
// "enumerate every live point" contract over collections of unbounded size.
func (c *Client) ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error) {
	var out []string
	var offset *qdrant.PointId
	limit := uint32(scrollPageSize)

	for {
		resp, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: c.name,
			Filter:         collectionFilter(collectionID),
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
			WithVectors:    &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: false}},
		})
		if err != nil {
			return nil, fmt.Errorf("vectorstore: scroll points: %w", err)
		}

		for _, rp := range resp {
			out = append(out, payloadString(rp.GetPayload(), payloadKeyPointID))
		}

		if len(resp) < scrollPageSize {
			break
		}
		offset = resp[len(resp)-1].GetId()
	}
	return out, nil
}
