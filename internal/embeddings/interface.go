// Package embeddings implements the EmbeddingProvider adapter contract
// (C5): batch text to fixed-dimension vectors, backed by OpenAI's
// embeddings API, grounded on the teacher's internal/embeddings/openai.go.
package embeddings

import "context"

// Provider is the §4.5 EmbeddingProvider contract: embed(texts[]) ->
// vectors[][] with a fixed dimension. Implementations must return exactly
// len(texts) vectors or a permanent error (retry.PermanentError) - a count
// mismatch is never retryable. Transient failures (rate limit, 5xx,
// network) are returned wrapped in retry.TemporaryError so callers can
// distinguish retry-worthy failures from dead-letter-worthy ones without
// string matching, per the spec's "tagged-variant errors" redesign flag.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	HealthCheck(ctx context.Context) error
}
