package embeddings

import (
	"context"
	"fmt"
	"time"

	"docsync/internal/circuitbreaker"
)

// CircuitBreakerProvider wraps a Provider with circuit breaker protection,
// mirroring the teacher's CircuitBreakerEmbeddingService. Unlike
// vectorstore's read-path fallback, there is no meaningful degraded
// response for a missing embedding, so the fallback simply surfaces the
// circuit breaker's error - the caller (SyncStateMachine) treats it as a
// transient failure and retries later.
type CircuitBreakerProvider struct {
	provider Provider
	cb       *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerProvider wraps provider with config, falling back to a
// lower failure threshold than vectorstore's default since embedding calls
// are more expensive to retry.
func NewCircuitBreakerProvider(provider Provider, config *circuitbreaker.Config) Provider {
	if config == nil {
		config = &circuitbreaker.Config{
			FailureThreshold:      3,
			SuccessThreshold:      2,
			Timeout:               20 * time.Second,
			MaxConcurrentRequests: 5,
		}
	}
	return &CircuitBreakerProvider{provider: provider, cb: circuitbreaker.New(config)}
}

func (c *CircuitBreakerProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := c.cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			var err error
			vectors, err = c.provider.Embed(ctx, texts)
			return err
		},
		func(ctx context.Context, cbErr error) error {
			return fmt.Errorf("embeddings: provider unavailable: %w", cbErr)
		},
	)
	return vectors, err
}

func (c *CircuitBreakerProvider) Dimension() int {
	return c.provider.Dimension()
}

func (c *CircuitBreakerProvider) HealthCheck(ctx context.Context) error {
	return c.cb.Execute(ctx, c.provider.HealthCheck)
}
