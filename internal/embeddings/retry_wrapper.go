package embeddings

import (
	"context"
	"fmt"
	"time"

	"docsync/internal/retry"
)

// RetryableProvider wraps a Provider with retry logic, mirroring the
// teacher's RetryableEmbeddingService.
type RetryableProvider struct {
	provider Provider
	retrier  *retry.Retrier
}

// NewRetryableProvider wraps provider with config, falling back to
// defaultEmbeddingRetryConfig when config is nil.
func NewRetryableProvider(provider Provider, config *retry.Config) Provider {
	if config == nil {
		config = defaultEmbeddingRetryConfig()
	}
	return &RetryableProvider{provider: provider, retrier: retry.New(config)}
}

func defaultEmbeddingRetryConfig() *retry.Config {
	return &retry.Config{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.2,
		RetryIf:         retry.DefaultRetryIf,
	}
}

// Embed generates embeddings with retry logic, relying on
// retry.DefaultRetryIf to honor the TemporaryError/PermanentError tags
// classifyOpenAIError attaches.
func (r *RetryableProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	result := r.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = r.provider.Embed(ctx, texts)
		return err
	})
	if result.Err != nil {
		return nil, fmt.Errorf("embeddings: generate after %d attempts: %w", result.Attempts, result.Err)
	}
	return vectors, nil
}

func (r *RetryableProvider) Dimension() int {
	return r.provider.Dimension()
}

func (r *RetryableProvider) HealthCheck(ctx context.Context) error {
	return r.retrier.Do(ctx, r.provider.HealthCheck).Err
}
