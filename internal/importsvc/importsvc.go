// Package importsvc implements ImportService (C8): the entry point for
// getting a document into the pipeline and taking it back out. It owns
// input validation, content-addressed idempotency, and wiring the
// relational/vector/source stores together on upload, resync, and delete -
// actually moving chunks through Split/Embed/Upsert is SyncStateMachine's
// job (internal/syncfsm), which this package only triggers.
package importsvc

import (
	"context"
	"fmt"
	"time"

	"docsync/internal/apperrors"
	"docsync/internal/config"
	"docsync/internal/domain"
	"docsync/internal/idcodec"
	"docsync/internal/logging"
	"docsync/internal/metadatastore"
	"docsync/internal/txcoordinator"
)

// SourceStore persists and re-serves a document's original uploaded bytes.
type SourceStore interface {
	Write(ctx context.Context, sourceKey string, data []byte) error
	Read(ctx context.Context, sourceKey string) ([]byte, error)
	Delete(ctx context.Context, sourceKey string) error
}

// Trigger is the subset of syncfsm.Machine ImportService depends on,
// narrowed to ease testing with a fake.
type Trigger interface {
	Trigger(docID string)
	EnsureJob(ctx context.Context, docID string) error
}

// Service implements ImportService.
type Service struct {
	meta   *metadatastore.Store
	coord  *txcoordinator.Coordinator
	source SourceStore
	sync   Trigger
	upload config.UploadConfig
	logger logging.Logger
}

// New constructs a Service. logger may be nil, in which case a no-op
// logger is used.
func New(meta *metadatastore.Store, coord *txcoordinator.Coordinator, source SourceStore, sync Trigger, upload config.UploadConfig, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Service{
		meta:   meta,
		coord:  coord,
		source: source,
		sync:   sync,
		upload: upload,
		logger: logger.WithComponent("importsvc"),
	}
}

// UploadFile validates, stores, and admits a new document into the
// pipeline, or hands back the existing document if identical content was
// already uploaded into the same collection (§4.8's idempotent upload).
func (s *Service) UploadFile(ctx context.Context, collectionID string, data []byte, name, mime string) (*domain.Document, error) {
	if err := s.validateUpload(data, mime); err != nil {
		return nil, err
	}

	if _, err := s.meta.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	docID := idcodec.DocID(data)
	now := time.Now()
	doc := &domain.Document{
		DocID:        docID,
		CollectionID: collectionID,
		SourceKey:    docID,
		Name:         name,
		MIME:         mime,
		SizeBytes:    int64(len(data)),
		ContentHash:  docID,
		Status:       domain.DocStatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	existing, created, err := s.meta.CreateDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.InfoContext(ctx, "upload deduplicated by content hash", "docId", docID, "collectionId", collectionID)
		return existing, nil
	}

	if err := s.source.Write(ctx, doc.SourceKey, data); err != nil {
		return nil, fmt.Errorf("importsvc: persist source bytes: %w", err)
	}

	if err := s.sync.EnsureJob(ctx, docID); err != nil {
		return nil, fmt.Errorf("importsvc: create sync job: %w", err)
	}
	s.sync.Trigger(docID)

	s.logger.InfoContext(ctx, "document admitted", "docId", docID, "collectionId", collectionID, "sizeBytes", doc.SizeBytes)
	return doc, nil
}

// Resync re-enters a document into the pipeline under its existing docId:
// its chunks and vector points are torn down, its sync job reset to NEW,
// and the state machine re-triggered. The source bytes are re-read from
// SourceStore rather than resupplied by the caller.
func (s *Service) Resync(ctx context.Context, docID string) (string, error) {
	doc, err := s.meta.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if doc.IsDeleted {
		return "", apperrors.NotFound("document", docID)
	}

	if _, err := s.source.Read(ctx, doc.SourceKey); err != nil {
		return "", fmt.Errorf("importsvc: re-read source bytes: %w", err)
	}

	if err := s.coord.DeleteDocument(ctx, doc.CollectionID, docID); err != nil {
		return "", fmt.Errorf("importsvc: tear down chunks/vectors for resync: %w", err)
	}

	if err := s.meta.UpdateDocumentStatus(ctx, docID, domain.DocStatusNew); err != nil {
		return "", err
	}

	job, err := s.meta.GetSyncJobByDoc(ctx, docID)
	if err != nil {
		return "", err
	}
	job.Status = domain.JobStatusNew
	job.Retries = 0
	job.LastError = ""
	job.ErrorCategory = ""
	if err := s.meta.UpdateSyncJob(ctx, job); err != nil {
		return "", err
	}

	s.sync.Trigger(docID)
	s.logger.InfoContext(ctx, "document resync triggered", "docId", docID)
	return docID, nil
}

// DeleteDoc soft-deletes a document; AutoGC performs the hard delete and
// vector purge on its next sweep.
func (s *Service) DeleteDoc(ctx context.Context, docID string) error {
	if err := s.meta.MarkDocDeleted(ctx, docID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "document soft-deleted", "docId", docID)
	return nil
}

// DeleteCollection purges every vector point of the collection and then
// deletes the collection row, which cascades to its documents, chunks and
// sync jobs. The two steps are separate calls: if the row delete fails, the
// vector points are already gone.
func (s *Service) DeleteCollection(ctx context.Context, collectionID string) error {
	if err := s.coord.DeleteCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("importsvc: delete collection vectors: %w", err)
	}
	if err := s.meta.DeleteCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("importsvc: delete collection row: %w", err)
	}
	s.logger.InfoContext(ctx, "collection deleted", "collectionId", collectionID)
	return nil
}

func (s *Service) validateUpload(data []byte, mime string) error {
	if len(data) == 0 {
		return apperrors.ValidationField("file", "cannot be empty")
	}
	if s.upload.MaxSizeBytes > 0 && int64(len(data)) > s.upload.MaxSizeBytes {
		return apperrors.ValidationField("file", fmt.Sprintf("exceeds maximum upload size of %d bytes", s.upload.MaxSizeBytes))
	}
	if len(s.upload.AllowedMimeType) > 0 && !containsString(s.upload.AllowedMimeType, mime) {
		return apperrors.ValidationField("mime", fmt.Sprintf("unsupported content type %q", mime))
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
