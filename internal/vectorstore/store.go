package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"docsync/internal/config"
)

// Client is the Qdrant-backed VectorStore implementation. It wraps a single
// physical collection per config.QdrantConfig and scopes every call to a
// logical docsync collection via a collection_id payload filter (see
// collectionFilter in convert.go), mirroring the teacher's single-collection,
// payload-scoped multi-tenancy in internal/storage/qdrant.go.
type Client struct {
	client *qdrant.Client
	name   string
}

// New dials Qdrant per cfg and returns a ready Client. It does not create
// the physical collection; call EnsureCollection once at startup for that.
func New(cfg config.QdrantConfig) (*Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dial qdrant: %w", err)
	}
	return &Client{client: c, name: cfg.Collection}, nil
}

// Ping satisfies the health handler's Pinger interface by listing
// collections, the cheapest call that exercises the connection.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListCollections(ctx); err != nil {
		return fmt.Errorf("vectorstore: ping: %w", err)
	}
	return nil
}
