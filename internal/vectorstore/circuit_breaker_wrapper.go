package vectorstore

import (
	"context"

	"docsync/internal/circuitbreaker"
	"docsync/internal/domain"
)

// CircuitBreakerStore wraps a VectorStore with a circuit breaker, mirroring
// the teacher's CircuitBreakerVectorStore (internal/storage/circuit_breaker_wrapper.go).
// Read paths (ListAllPointIDs, Search) degrade to an empty result and a nil
// error whenever the call fails or the circuit is open, matching SPEC_FULL.md's
// note that hybrid search should fall back to keyword-only rather than fail
// outright when the vector side is unhealthy; write paths (UpsertPoints,
// DeletePoints, DeletePointsByFilter, EnsureCollection) always propagate.
type CircuitBreakerStore struct {
	store VectorStore
	cb    *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerStore wraps store with the given circuit breaker config,
// falling back to defaultCircuitBreakerConfig when config is nil.
func NewCircuitBreakerStore(store VectorStore, config *circuitbreaker.Config) VectorStore {
	if config == nil {
		config = defaultCircuitBreakerConfig()
	}
	return &CircuitBreakerStore{store: store, cb: circuitbreaker.New(config)}
}

func defaultCircuitBreakerConfig() *circuitbreaker.Config {
	return circuitbreaker.DefaultConfig()
}

func (c *CircuitBreakerStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	return c.cb.Execute(ctx, func(ctx context.Context) error {
		return c.store.EnsureCollection(ctx, name, dim)
	})
}

func (c *CircuitBreakerStore) UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	return c.cb.Execute(ctx, func(ctx context.Context) error {
		return c.store.UpsertPoints(ctx, collectionID, points)
	})
}

func (c *CircuitBreakerStore) DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error {
	return c.cb.Execute(ctx, func(ctx context.Context) error {
		return c.store.DeletePoints(ctx, collectionID, pointIDs)
	})
}

func (c *CircuitBreakerStore) DeletePointsByFilter(ctx context.Context, collectionID string, filter DeleteFilter) error {
	return c.cb.Execute(ctx, func(ctx context.Context) error {
		return c.store.DeletePointsByFilter(ctx, collectionID, filter)
	})
}

func (c *CircuitBreakerStore) ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error) {
	var out []string
	err := c.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		ids, err := c.store.ListAllPointIDs(ctx, collectionID)
		if err != nil {
			return err
		}
		out = ids
		return nil
	}, func(ctx context.Context, err error) error {
		out = nil
		return nil
	})
	return out, err
}

func (c *CircuitBreakerStore) Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]SearchHit, error) {
	var out []SearchHit
	err := c.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		hits, err := c.store.Search(ctx, collectionID, vector, limit)
		if err != nil {
			return err
		}
		out = hits
		return nil
	}, func(ctx context.Context, err error) error {
		out = nil
		return nil
	})
	return out, err
}

func (c *CircuitBreakerStore) Ping(ctx context.Context) error {
	return c.cb.Execute(ctx, c.store.Ping)
}
