package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docsync/internal/config"
	"docsync/internal/retry"
)

// dimensionsByModel mirrors the teacher's GetDimension switch, since the
// OpenAI API does not report a model's output dimension in-band.
var dimensionsByModel = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIProvider implements Provider against OpenAI's embeddings API,
// grounded on the teacher's OpenAIEmbeddingService.
type OpenAIProvider struct {
	client      *openai.Client
	cfg         config.EmbeddingsConfig
	cache       *vectorCache
	rateLimiter *RateLimiter
}

// New builds a provider from cfg. rpm<=0 falls back to 60 requests/minute.
func New(cfg config.EmbeddingsConfig) *OpenAIProvider {
	rpm := cfg.RateLimitRPM
	if rpm <= 0 {
		rpm = 60
	}
	refillRate := time.Minute / time.Duration(rpm)

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		cfg:         cfg,
		cache:       newVectorCache(1000),
		rateLimiter: NewRateLimiter(rpm, refillRate),
	}
}

// Dimension reports the output vector width for the configured model,
// falling back to the configured dimension (or 1536) when the model is
// unrecognized.
func (p *OpenAIProvider) Dimension() int {
	if d, ok := dimensionsByModel[p.cfg.Model]; ok {
		return d
	}
	if p.cfg.Dimension > 0 {
		return p.cfg.Dimension
	}
	return 1536
}

// Embed batches texts to cfg.BatchSize, serving cache hits without a
// network round trip and returning a vector per input text in order.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &retry.PermanentError{Err: fmt.Errorf("embeddings: texts cannot be empty")}
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, &retry.PermanentError{Err: fmt.Errorf("embeddings: text cannot be empty")}
		}
	}

	out := make([][]float32, len(texts))
	var uncachedTexts []string
	var uncachedIdx []int

	for i, text := range texts {
		key := cacheKey(p.cfg.Model, text)
		if cached := p.cache.get(key); cached != nil {
			out[i] = cached
			continue
		}
		uncachedTexts = append(uncachedTexts, text)
		uncachedIdx = append(uncachedIdx, i)
	}

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(uncachedTexts); start += batchSize {
		end := start + batchSize
		if end > len(uncachedTexts) {
			end = len(uncachedTexts)
		}
		vectors, err := p.embedBatch(ctx, uncachedTexts[start:end])
		if err != nil {
			return nil, err
		}
		for j, v := range vectors {
			idx := uncachedIdx[start+j]
			out[idx] = v
			p.cache.put(cacheKey(p.cfg.Model, uncachedTexts[start+j]), v)
		}
	}

	return out, nil
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embeddings: rate limiter: %w", err)
	}

	timeout := time.Duration(p.cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(timeoutCtx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.cfg.Model),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, &retry.PermanentError{Err: fmt.Errorf(
			"embeddings: mismatch between input texts (%d) and embeddings (%d)", len(texts), len(resp.Data))}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// HealthCheck exercises the live API path with a minimal request.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	_, err := p.Embed(ctx, []string{"health check"})
	return err
}

// classifyOpenAIError tags a raw OpenAI client error as temporary or
// permanent, the same substring-based split the teacher's
// isRetryableEmbeddingError uses, reified here into the typed
// retry.TemporaryError/PermanentError the rest of docsync dispatches on.
func classifyOpenAIError(err error) error {
	msg := strings.ToLower(err.Error())

	permanentPatterns := []string{
		"invalid api key", "unauthorized", "forbidden",
		"insufficient_quota", "invalid_request_error",
		"model not found", "context length exceeded",
	}
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return &retry.PermanentError{Err: err}
		}
	}

	transientPatterns := []string{
		"connection refused", "connection reset", "timeout", "temporary failure",
		"i/o timeout", "eof", "429", "500", "502", "503", "504",
		"rate limit", "quota exceeded", "overloaded", "temporarily unavailable", "server_error",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return &retry.TemporaryError{Err: err}
		}
	}

	return &retry.PermanentError{Err: err}
}
