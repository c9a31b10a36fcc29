package importsvc

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	_ "github.com/lib/pq"

	"docsync/internal/apperrors"
	"docsync/internal/config"
	"docsync/internal/domain"
	"docsync/internal/metadatastore"
	"docsync/internal/txcoordinator"
	"docsync/internal/vectorstore"
)

type fakeSourceStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeSourceStore() *fakeSourceStore { return &fakeSourceStore{files: map[string][]byte{}} }

func (f *fakeSourceStore) Write(ctx context.Context, sourceKey string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[sourceKey] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSourceStore) Read(ctx context.Context, sourceKey string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[sourceKey]
	if !ok {
		return nil, apperrors.NotFound("source bytes", sourceKey)
	}
	return data, nil
}

func (f *fakeSourceStore) Delete(ctx context.Context, sourceKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, sourceKey)
	return nil
}

type fakeTrigger struct {
	mu        sync.Mutex
	ensured   []string
	triggered []string
}

func (f *fakeTrigger) Trigger(docID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered = append(f.triggered, docID)
}

func (f *fakeTrigger) EnsureJob(ctx context.Context, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, docID)
	return nil
}

type fakeVectorStore struct{}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	return nil
}
func (f *fakeVectorStore) UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	return nil
}
func (f *fakeVectorStore) DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error {
	return nil
}
func (f *fakeVectorStore) DeletePointsByFilter(ctx context.Context, collectionID string, filter vectorstore.DeleteFilter) error {
	return nil
}
func (f *fakeVectorStore) ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error) {
	return nil, nil
}
func (f *fakeVectorStore) Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]vectorstore.SearchHit, error) {
	return nil, nil
}
func (f *fakeVectorStore) Ping(ctx context.Context) error { return nil }

// ImportServiceSuite exercises UploadFile/Resync/DeleteDoc/DeleteCollection
// against a real PostgreSQL database, the same TEST_DATABASE_URL-gated
// pattern as internal/txcoordinator and internal/syncfsm's suites.
type ImportServiceSuite struct {
	suite.Suite
	db   *sql.DB
	meta *metadatastore.Store
	ctx  context.Context
}

func TestImportServiceSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping importsvc integration tests")
	}
	suite.Run(t, &ImportServiceSuite{})
}

func (s *ImportServiceSuite) SetupSuite() {
	s.ctx = context.Background()
	db, err := sql.Open("postgres", os.Getenv("TEST_DATABASE_URL"))
	require.NoError(s.T(), err)
	s.db = db
	require.NoError(s.T(), metadatastore.ApplySchema(s.ctx, db))
	s.meta = metadatastore.New(db)
}

func (s *ImportServiceSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *ImportServiceSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE collections, documents, chunks, sync_jobs CASCADE`)
	require.NoError(s.T(), err)
}

func (s *ImportServiceSuite) newService() (*Service, *fakeSourceStore, *fakeTrigger) {
	coord := txcoordinator.New(s.meta, &fakeVectorStore{}, nil)
	source := newFakeSourceStore()
	trigger := &fakeTrigger{}
	svc := New(s.meta, coord, source, trigger, config.UploadConfig{
		MaxSizeBytes:    1024,
		AllowedMimeType: []string{"text/markdown"},
	}, nil)
	return svc, source, trigger
}

func (s *ImportServiceSuite) seedCollection(collectionID string) {
	require.NoError(s.T(), s.meta.CreateCollection(s.ctx, &domain.Collection{
		CollectionID: collectionID, Name: fmt.Sprintf("col-%s", collectionID), CreatedAt: time.Now(),
	}))
}

func (s *ImportServiceSuite) TestUploadFile_AdmitsNewDocument() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, source, trigger := s.newService()

	doc, err := svc.UploadFile(s.ctx, collectionID, []byte("# hi\n\nbody"), "a.md", "text/markdown")
	require.NoError(s.T(), err)
	s.Equal(domain.DocStatusNew, doc.Status)

	stored, err := source.Read(s.ctx, doc.SourceKey)
	require.NoError(s.T(), err)
	s.Equal("# hi\n\nbody", string(stored))
	s.Contains(trigger.triggered, doc.DocID)
	s.Contains(trigger.ensured, doc.DocID)
}

func (s *ImportServiceSuite) TestUploadFile_DuplicateContentIsIdempotent() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, _, trigger := s.newService()

	first, err := svc.UploadFile(s.ctx, collectionID, []byte("same bytes"), "a.md", "text/markdown")
	require.NoError(s.T(), err)
	second, err := svc.UploadFile(s.ctx, collectionID, []byte("same bytes"), "b.md", "text/markdown")
	require.NoError(s.T(), err)

	s.Equal(first.DocID, second.DocID)
	s.Len(trigger.triggered, 1)
}

func (s *ImportServiceSuite) TestUploadFile_RejectsOversizedFile() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, _, _ := s.newService()

	_, err := svc.UploadFile(s.ctx, collectionID, make([]byte, 2048), "a.md", "text/markdown")
	assert.Equal(s.T(), apperrors.ErrorCodeValidation, apperrors.CodeOf(err))
}

func (s *ImportServiceSuite) TestUploadFile_RejectsUnsupportedMIME() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, _, _ := s.newService()

	_, err := svc.UploadFile(s.ctx, collectionID, []byte("hi"), "a.bin", "application/octet-stream")
	assert.Equal(s.T(), apperrors.ErrorCodeValidation, apperrors.CodeOf(err))
}

func (s *ImportServiceSuite) TestResync_ResetsJobAndRetriggers() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, _, trigger := s.newService()

	doc, err := svc.UploadFile(s.ctx, collectionID, []byte("# hi\n\nbody"), "a.md", "text/markdown")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.meta.CreateSyncJob(s.ctx, &domain.SyncJob{
		JobID: uuid.New().String(), DocID: doc.DocID, Status: domain.JobStatusFailed, Retries: 3,
		ErrorCategory: domain.ErrorCategoryTransientNetwork, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	gotID, err := svc.Resync(s.ctx, doc.DocID)
	require.NoError(s.T(), err)
	s.Equal(doc.DocID, gotID)

	job, err := s.meta.GetSyncJobByDoc(s.ctx, doc.DocID)
	require.NoError(s.T(), err)
	s.Equal(domain.JobStatusNew, job.Status)
	s.Equal(0, job.Retries)
	s.Contains(trigger.triggered, doc.DocID)
}

func (s *ImportServiceSuite) TestDeleteDoc_SoftDeletes() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, _, _ := s.newService()

	doc, err := svc.UploadFile(s.ctx, collectionID, []byte("# hi\n\nbody"), "a.md", "text/markdown")
	require.NoError(s.T(), err)

	require.NoError(s.T(), svc.DeleteDoc(s.ctx, doc.DocID))

	got, err := s.meta.GetDocument(s.ctx, doc.DocID)
	require.NoError(s.T(), err)
	s.True(got.IsDeleted)
}

func (s *ImportServiceSuite) TestDeleteCollection_RemovesCollectionRow() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	svc, _, _ := s.newService()

	_, err := svc.UploadFile(s.ctx, collectionID, []byte("# hi\n\nbody"), "a.md", "text/markdown")
	require.NoError(s.T(), err)

	require.NoError(s.T(), svc.DeleteCollection(s.ctx, collectionID))

	_, err = s.meta.GetCollection(s.ctx, collectionID)
	assert.Equal(s.T(), apperrors.ErrorCodeNotFound, apperrors.CodeOf(err))
}
