// Package txcoordinator implements the §4.6 write-ordered compensation
// protocol that keeps MetadataStore (relational) and VectorStore (Qdrant)
// consistent without a real two-phase commit, grounded on the teacher's
// plain BeginTx/defer-Rollback/Commit transaction idiom
// (internal/storage/task_repository.go's BatchUpdate) extended with the
// savepoint and vector-ordering rules the spec requires.
package txcoordinator

import (
	"docsync/internal/metadatastore"
	"docsync/internal/retry"
	"docsync/internal/vectorstore"
)

// Coordinator composes the relational and vector stores and owns the
// ordering rule: writes commit vector-then-relational, deletes commit
// vector-then-relational too, bounding any divergence window to what
// AutoGC's reconciliation sweep can close.
type Coordinator struct {
	meta         *metadatastore.Store
	vectors      vectorstore.VectorStore
	compensation *retry.Retrier
}

// New builds a Coordinator. compensationRetry governs how hard a failed
// compensating vector delete is retried before being left for AutoGC;
// pass nil for retry.DefaultConfig().
func New(meta *metadatastore.Store, vectors vectorstore.VectorStore, compensationRetry *retry.Config) *Coordinator {
	if compensationRetry == nil {
		compensationRetry = retry.DefaultConfig()
	}
	return &Coordinator{meta: meta, vectors: vectors, compensation: retry.New(compensationRetry)}
}
