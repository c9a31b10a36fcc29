// Package syncfsm implements the persistent, single-writer, per-document
// sync state machine (C7): split -> embed -> upsert with classified
// retry/backoff and crash recovery, as described in §4.7. It is grounded on
// internal/sync/realtime_coordinator.go's event-driven coordinator shape and
// internal/push/queue.go's channel-plus-retry-queue worker idiom, with
// backoff math mirroring internal/retry.Retrier.
package syncfsm

import (
	"context"

	"docsync/internal/embeddings"
	"docsync/internal/logging"
	"docsync/internal/metadatastore"
	"docsync/internal/txcoordinator"
)

// SourceReader fetches a document's original uploaded bytes by sourceKey,
// letting the Split step (re)run at any time — including after a crash —
// without the caller keeping the bytes around in memory.
type SourceReader interface {
	Read(ctx context.Context, sourceKey string) ([]byte, error)
}

// Deps bundles the collaborators a Machine drives each document through.
type Deps struct {
	Meta     *metadatastore.Store
	Embedder embeddings.Provider
	Coord    *txcoordinator.Coordinator
	Source   SourceReader
	Policy   RetryPolicy
	// Logger receives every state transition and failure; a no-op logger is
	// used when nil.
	Logger logging.Logger
	// Workers bounds how many documents progress through the pipeline at
	// once; distinct documents run in parallel up to this count (§4.7
	// concurrency model). Defaults to 4 if <= 0.
	Workers int
}
