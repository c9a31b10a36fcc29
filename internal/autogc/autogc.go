// Package autogc implements the Auto-GC reconciler (C10): a periodic sweep
// that closes the divergence window the write-ordered compensation
// protocol (internal/txcoordinator) can leave behind, plus the hard-delete
// side of soft-deleted documents. Scheduling is grounded on the pack's
// clawinfra-evoclaw/internal/scheduler use of robfig/cron/v3 for interval
// jobs; the reconciliation algorithm itself is new, since nothing in the
// teacher reconciles two independently-written stores.
package autogc

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"docsync/internal/logging"
	"docsync/internal/metadatastore"
	"docsync/internal/vectorstore"
)

const collectionPageSize = 100

// SourceStore is the subset of internal/sourcestore.Store AutoGC needs to
// purge a soft-deleted document's original bytes alongside its rows.
type SourceStore interface {
	Delete(ctx context.Context, sourceKey string) error
}

// CollectionReport summarizes one collection's sweep.
type CollectionReport struct {
	CollectionID       string
	OrphanedVectors    int
	OrphanedMetadata   int
	HardDeletedDocs    int
	Err                error
}

// Report summarizes a full AutoGC run.
type Report struct {
	Collections []CollectionReport
}

// Reconciler runs the Auto-GC sweep, scheduled or on demand.
type Reconciler struct {
	meta    *metadatastore.Store
	vectors vectorstore.VectorStore
	source  SourceStore
	logger  logging.Logger
	cron    *cron.Cron
}

// New constructs a Reconciler. logger may be nil, in which case a no-op
// logger is used.
func New(meta *metadatastore.Store, vectors vectorstore.VectorStore, source SourceStore, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Reconciler{meta: meta, vectors: vectors, source: source, logger: logger.WithComponent("autogc")}
}

// Start schedules RunOnce to fire every intervalHours (default 24 if <= 0),
// logging the outcome of each run. It returns immediately; call Stop to
// halt the schedule.
func (r *Reconciler) Start(ctx context.Context, intervalHours int) error {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	r.cron = cron.New()
	_, err := r.cron.AddFunc(fmt.Sprintf("@every %dh", intervalHours), func() {
		report, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "autogc run failed", "error", err.Error())
			return
		}
		r.logger.InfoContext(ctx, "autogc run complete", "collections", len(report.Collections))
	})
	if err != nil {
		return fmt.Errorf("autogc: schedule sweep: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule, if running.
func (r *Reconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce performs one sweep across every collection. A failure reconciling
// one collection is recorded in its CollectionReport.Err and does not
// prevent the others from being swept (§4.10's per-collection isolation).
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	for page := 1; ; page++ {
		collections, total, err := r.meta.ListCollections(ctx, page, collectionPageSize)
		if err != nil {
			return report, fmt.Errorf("autogc: list collections: %w", err)
		}
		for _, c := range collections {
			report.Collections = append(report.Collections, r.reconcileCollection(ctx, c.CollectionID))
		}
		if page*collectionPageSize >= total || len(collections) == 0 {
			break
		}
	}
	return report, nil
}

func (r *Reconciler) reconcileCollection(ctx context.Context, collectionID string) CollectionReport {
	report := CollectionReport{CollectionID: collectionID}

	if err := r.reconcilePoints(ctx, collectionID, &report); err != nil {
		report.Err = err
		r.logger.ErrorContext(ctx, "autogc: point reconciliation failed", "collectionId", collectionID, "error", err.Error())
		return report
	}

	if err := r.purgeSoftDeleted(ctx, collectionID, &report); err != nil {
		report.Err = err
		r.logger.ErrorContext(ctx, "autogc: soft-delete purge failed", "collectionId", collectionID, "error", err.Error())
		return report
	}

	return report
}

// reconcilePoints diffs the metadata store's recorded point ids (A) against
// the vector store's actual points (B): B\A are orphaned vectors (deleted
// from the vector store), A\B are orphaned metadata rows (deleted from the
// metadata store, inside a transaction).
func (r *Reconciler) reconcilePoints(ctx context.Context, collectionID string, report *CollectionReport) error {
	a, err := r.meta.ListPointIDsByCollection(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list metadata point ids: %w", err)
	}
	b, err := r.vectors.ListAllPointIDs(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list vector point ids: %w", err)
	}

	inA := toSet(a)
	inB := toSet(b)

	var orphanedVectors []string
	for _, id := range b {
		if !inA[id] {
			orphanedVectors = append(orphanedVectors, id)
		}
	}
	var orphanedMetadata []string
	for _, id := range a {
		if !inB[id] {
			orphanedMetadata = append(orphanedMetadata, id)
		}
	}

	if len(orphanedVectors) > 0 {
		if err := r.vectors.DeletePoints(ctx, collectionID, orphanedVectors); err != nil {
			return fmt.Errorf("delete orphaned vectors: %w", err)
		}
		report.OrphanedVectors = len(orphanedVectors)
	}
	if len(orphanedMetadata) > 0 {
		if err := r.meta.DeleteChunksByPointIDs(ctx, orphanedMetadata); err != nil {
			return fmt.Errorf("delete orphaned metadata rows: %w", err)
		}
		report.OrphanedMetadata = len(orphanedMetadata)
	}
	return nil
}

// purgeSoftDeleted hard-deletes every soft-deleted document in the
// collection: its vector points, its original source bytes, then the
// document row itself (which cascades to its chunks and sync job).
func (r *Reconciler) purgeSoftDeleted(ctx context.Context, collectionID string, report *CollectionReport) error {
	docs, err := r.meta.ListSoftDeletedDocuments(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list soft-deleted documents: %w", err)
	}

	for _, doc := range docs {
		if err := r.vectors.DeletePointsByFilter(ctx, collectionID, vectorstore.DeleteFilter{DocID: doc.DocID}); err != nil {
			return fmt.Errorf("purge vectors for doc %s: %w", doc.DocID, err)
		}
		if err := r.source.Delete(ctx, doc.SourceKey); err != nil {
			return fmt.Errorf("purge source bytes for doc %s: %w", doc.DocID, err)
		}
		if err := r.meta.HardDelete(ctx, doc.DocID); err != nil {
			return fmt.Errorf("hard delete doc %s: %w", doc.DocID, err)
		}
		report.HardDeletedDocs++
	}
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
