package vectorstore

import (
	"context"
	"strings"
	"time"

	"docsync/internal/domain"
	"docsync/internal/retry"
)

// RetryableStore wraps a VectorStore so every call is retried under
// isRetryableStoreError, mirroring the teacher's RetryableVectorStore
// (internal/storage/retry_wrapper.go).
type RetryableStore struct {
	store   VectorStore
	retrier *retry.Retrier
}

// NewRetryableStore wraps store with the given retry config, falling back
// to defaultRetryConfig when config is nil.
func NewRetryableStore(store VectorStore, config *retry.Config) VectorStore {
	if config == nil {
		config = defaultRetryConfig()
	}
	return &RetryableStore{store: store, retrier: retry.New(config)}
}

func defaultRetryConfig() *retry.Config {
	return &retry.Config{
		MaxAttempts:     3,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.1,
		RetryIf:         isRetryableStoreError,
	}
}

// isRetryableStoreError matches the class of errors the transport layer
// raises for transient conditions, following the same substring +
// Temporary() approach as the teacher's isRetryableStorageError.
func isRetryableStoreError(err error) bool {
	if err == nil {
		return false
	}
	type temporary interface{ Temporary() bool }
	if t, ok := err.(temporary); ok {
		return t.Temporary()
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "connection refused", "unavailable", "deadline exceeded", "reset by peer", "too many requests"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (r *RetryableStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	return r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.store.EnsureCollection(ctx, name, dim)
	}).Err
}

func (r *RetryableStore) UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	return r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.store.UpsertPoints(ctx, collectionID, points)
	}).Err
}

func (r *RetryableStore) DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error {
	return r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.store.DeletePoints(ctx, collectionID, pointIDs)
	}).Err
}

func (r *RetryableStore) DeletePointsByFilter(ctx context.Context, collectionID string, filter DeleteFilter) error {
	return r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.store.DeletePointsByFilter(ctx, collectionID, filter)
	}).Err
}

func (r *RetryableStore) ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error) {
	var out []string
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		ids, err := r.store.ListAllPointIDs(ctx, collectionID)
		if err != nil {
			return err
		}
		out = ids
		return nil
	}).Err
	return out, err
}

func (r *RetryableStore) Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]SearchHit, error) {
	var out []SearchHit
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		hits, err := r.store.Search(ctx, collectionID, vector, limit)
		if err != nil {
			return err
		}
		out = hits
		return nil
	}).Err
	return out, err
}

func (r *RetryableStore) Ping(ctx context.Context) error {
	return r.retrier.Do(ctx, r.store.Ping).Err
}
