package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// EnsureCollection creates the physical Qdrant collection with the given
// vector dimension if it does not already exist. name is normally the
// single configured QdrantConfig.Collection, called once at startup.
func (c *Client) EnsureCollection(ctx context.Context, name string, dim int) error {
	existing, err := c.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("vectorstore: list collections: %w", err)
	}
	for _, n := range existing {
		if n == name {
			return nil
		}
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection drops the entire physical collection. docsync never
// calls this in normal operation (logical collections share one physical
// collection and are torn down via DeletePointsByFilter); it exists for
// operator tooling and tests.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("vectorstore: delete collection %s: %w", name, err)
	}
	return nil
}
